package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/zhouzirui/interview-coach/backend/internal/model/interview"
)

// SQLiteStore implements SessionStore on SQLite. Multiple processes may share
// one database file; the version column detects lost updates between them.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the database at dbPath.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := "file:" + dbPath +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		role_profile TEXT NOT NULL,
		status TEXT NOT NULL,
		version INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS turns (
		session_id TEXT NOT NULL REFERENCES sessions(id),
		idx INTEGER NOT NULL,
		question TEXT NOT NULL,
		answer TEXT,
		content_score INTEGER,
		structure_score INTEGER,
		communication_score INTEGER,
		feedback_json TEXT,
		retrieved_json TEXT,
		degraded INTEGER NOT NULL DEFAULT 0,
		asked_at INTEGER NOT NULL,
		answered_at INTEGER,
		PRIMARY KEY (session_id, idx)
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Create inserts the session and its turns.
func (s *SQLiteStore) Create(ctx context.Context, sess *interview.Session) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sessions (id, role_profile, status, version, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			sess.ID, sess.RoleProfile, string(sess.Status), sess.Version,
			sess.CreatedAt.UnixMilli(), sess.UpdatedAt.UnixMilli(),
		)
		if err != nil {
			if isConstraint(err) {
				return fmt.Errorf("%w: %s", ErrAlreadyExists, sess.ID)
			}
			return fmt.Errorf("insert session: %w", err)
		}
		return upsertTurns(ctx, tx, sess.ID, sess.Turns)
	})
}

// Get loads a session with its turns.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*interview.Session, error) {
	return loadSession(ctx, s.db, id)
}

// Update applies a versioned, append-only write.
func (s *SQLiteStore) Update(ctx context.Context, sess *interview.Session, expectedVersion int) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := loadSession(ctx, tx, sess.ID)
		if err != nil {
			return err
		}
		if current.Version != expectedVersion {
			return fmt.Errorf("%w: have %d, expected %d", ErrVersionConflict, current.Version, expectedVersion)
		}
		if err := checkAppendOnly(current, sess); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE sessions SET status = ?, version = ?, updated_at = ?
			WHERE id = ? AND version = ?`,
			string(sess.Status), sess.Version, sess.UpdatedAt.UnixMilli(), sess.ID, expectedVersion,
		)
		if err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if rows == 0 {
			return ErrVersionConflict
		}

		// only the previously pending turn and new ones can change
		from := len(current.Turns) - 1
		if from < 0 {
			from = 0
		}
		return upsertTurns(ctx, tx, sess.ID, sess.Turns[from:])
	})
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapBusy(fmt.Errorf("begin transaction: %w", err))
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return mapBusy(err)
	}
	if err := tx.Commit(); err != nil {
		return mapBusy(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

func upsertTurns(ctx context.Context, tx *sql.Tx, sessionID string, turns []interview.Turn) error {
	const query = `
	INSERT INTO turns (session_id, idx, question, answer, content_score, structure_score, communication_score,
		feedback_json, retrieved_json, degraded, asked_at, answered_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(session_id, idx) DO UPDATE SET
		answer = excluded.answer,
		content_score = excluded.content_score,
		structure_score = excluded.structure_score,
		communication_score = excluded.communication_score,
		feedback_json = excluded.feedback_json,
		retrieved_json = excluded.retrieved_json,
		degraded = excluded.degraded,
		answered_at = excluded.answered_at
	WHERE turns.answer IS NULL`

	for _, t := range turns {
		var answer, feedback, retrieved any
		var content, structure, communication, answeredAt any
		if t.Answered() {
			answer = t.Answer
			content, structure, communication = t.Scores.Content, t.Scores.Structure, t.Scores.Communication
			answeredAt = t.AnsweredAt.UnixMilli()
		}
		if len(t.Feedback) > 0 {
			raw, err := json.Marshal(t.Feedback)
			if err != nil {
				return fmt.Errorf("encode feedback: %w", err)
			}
			feedback = string(raw)
		}
		if len(t.RetrievedIDs) > 0 {
			raw, err := json.Marshal(t.RetrievedIDs)
			if err != nil {
				return fmt.Errorf("encode retrieved ids: %w", err)
			}
			retrieved = string(raw)
		}

		_, err := tx.ExecContext(ctx, query,
			sessionID, t.Index, t.Question, answer, content, structure, communication,
			feedback, retrieved, t.Degraded, t.AskedAt.UnixMilli(), answeredAt,
		)
		if err != nil {
			return fmt.Errorf("upsert turn %d: %w", t.Index, err)
		}
	}
	return nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func loadSession(ctx context.Context, q querier, id string) (*interview.Session, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, role_profile, status, version, created_at, updated_at
		FROM sessions WHERE id = ?`, id)

	var sess interview.Session
	var status string
	var createdAt, updatedAt int64
	err := row.Scan(&sess.ID, &sess.RoleProfile, &status, &sess.Version, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}
	sess.Status = interview.Status(status)
	sess.CreatedAt = time.UnixMilli(createdAt)
	sess.UpdatedAt = time.UnixMilli(updatedAt)

	rows, err := q.QueryContext(ctx, `
		SELECT idx, question, answer, content_score, structure_score, communication_score,
		       feedback_json, retrieved_json, degraded, asked_at, answered_at
		FROM turns WHERE session_id = ? ORDER BY idx`, id)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t interview.Turn
		var answer, feedback, retrieved sql.NullString
		var content, structure, communication, answeredAt sql.NullInt64
		var askedAt int64
		if err := rows.Scan(&t.Index, &t.Question, &answer, &content, &structure, &communication,
			&feedback, &retrieved, &t.Degraded, &askedAt, &answeredAt); err != nil {
			return nil, fmt.Errorf("scan turn row: %w", err)
		}

		t.AskedAt = time.UnixMilli(askedAt)
		if answer.Valid {
			t.Answer = answer.String
			t.Scores = &interview.Scores{
				Content:       int(content.Int64),
				Structure:     int(structure.Int64),
				Communication: int(communication.Int64),
			}
		}
		if answeredAt.Valid {
			t.AnsweredAt = time.UnixMilli(answeredAt.Int64)
		}
		if feedback.Valid {
			if err := json.Unmarshal([]byte(feedback.String), &t.Feedback); err != nil {
				return nil, fmt.Errorf("decode feedback of turn %d: %w", t.Index, err)
			}
		}
		if retrieved.Valid {
			if err := json.Unmarshal([]byte(retrieved.String), &t.RetrievedIDs); err != nil {
				return nil, fmt.Errorf("decode retrieved ids of turn %d: %w", t.Index, err)
			}
		}
		sess.Turns = append(sess.Turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return &sess, nil
}

func sqliteCode(err error) (int, bool) {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() & 0xff, true
	}
	return 0, false
}

func isConstraint(err error) bool {
	code, ok := sqliteCode(err)
	return ok && code == sqlite3.SQLITE_CONSTRAINT
}

// mapBusy reports lock contention with another writer as a version conflict.
func mapBusy(err error) error {
	code, ok := sqliteCode(err)
	if ok && (code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED) {
		return fmt.Errorf("%w: %v", ErrVersionConflict, err)
	}
	return err
}
