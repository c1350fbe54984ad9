package live

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/interview-coach/backend/internal/middleware"
	domain "github.com/zhouzirui/interview-coach/backend/internal/model/interview"
	"github.com/zhouzirui/interview-coach/backend/internal/observability"
	"github.com/zhouzirui/interview-coach/backend/internal/service/interview"
	"github.com/zhouzirui/interview-coach/backend/pkg/utils"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Engine is the part of the session engine the live channel drives.
type Engine interface {
	SubmitAnswer(ctx context.Context, sessionID, answerText string) (interview.AnswerResult, error)
	GetReport(ctx context.Context, sessionID string) (domain.Report, error)
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
}

// Handler carries one interview session over a WebSocket.
type Handler struct {
	engine   Engine
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// New creates a live handler. A nil policy accepts every origin.
func New(engine Engine, policy *middleware.OriginPolicy, logger *zap.Logger) *Handler {
	return &Handler{
		engine: engine,
		logger: observability.OrNop(logger).Named("http.live"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || policy == nil || policy.Allowed(origin)
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes registers the WebSocket route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
}

// AnswerMessage is the payload of an inbound "answer" message.
type AnswerMessage struct {
	Text string `json:"text"`
}

// OutgoingMessage is every message the server sends.
type OutgoingMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// ConnectedData describes the session when the channel opens.
type ConnectedData struct {
	Status          domain.Status `json:"status"`
	PendingQuestion string        `json:"pendingQuestion,omitempty"`
	Answered        int           `json:"answered"`
}

// ErrorData is the payload of an "error" message.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess, err := h.engine.GetSession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, interview.ErrSessionNotFound) {
			utils.RespondErrorCode(w, http.StatusNotFound, interview.CodeSessionNotFound, "session not found")
			return
		}
		h.logger.Error("load session for live channel", zap.String("session_id", sessionID), zap.Error(err))
		utils.RespondErrorCode(w, http.StatusInternalServerError, interview.Code(err), "internal error")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	logger := h.logger.With(zap.String("session_id", sessionID))
	logger.Debug("live channel opened")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go pingLoop(ctx, conn)

	connected := ConnectedData{Status: sess.Status, Answered: sess.AnsweredCount()}
	if pending, ok := sess.PendingTurn(); ok {
		connected.PendingQuestion = pending.Question
	}
	h.send(conn, logger, "connected", sessionID, connected)

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("live channel read failed", zap.Error(err))
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		if msg.SessionID != "" && msg.SessionID != sessionID {
			h.sendError(conn, logger, sessionID, "SESSION_MISMATCH", "session mismatch")
			continue
		}

		h.handleMessage(ctx, conn, logger, sessionID, &msg)
	}
}

func (h *Handler) handleMessage(ctx context.Context, conn *websocket.Conn, logger *zap.Logger, sessionID string, msg *inboundMessage) {
	switch msg.Type {
	case "answer":
		var payload AnswerMessage
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &payload); err != nil {
				h.sendError(conn, logger, sessionID, "BAD_MESSAGE", "invalid answer payload")
				return
			}
		}
		res, err := h.engine.SubmitAnswer(ctx, sessionID, payload.Text)
		if err != nil {
			h.sendEngineError(conn, logger, sessionID, err)
			return
		}
		h.send(conn, logger, "feedback", sessionID, res)
	case "report":
		rep, err := h.engine.GetReport(ctx, sessionID)
		if err != nil {
			h.sendEngineError(conn, logger, sessionID, err)
			return
		}
		h.send(conn, logger, "report", sessionID, rep)
	default:
		h.sendError(conn, logger, sessionID, "BAD_MESSAGE", "unsupported message type: "+strings.TrimSpace(msg.Type))
	}
}

func (h *Handler) sendEngineError(conn *websocket.Conn, logger *zap.Logger, sessionID string, err error) {
	code := interview.Code(err)
	message := err.Error()
	if code == interview.CodeStoreFailure || code == interview.CodeInternal {
		logger.Error("live request failed", zap.Error(err))
		message = "internal error"
	}
	h.sendError(conn, logger, sessionID, code, message)
}

func (h *Handler) sendError(conn *websocket.Conn, logger *zap.Logger, sessionID, code, message string) {
	h.send(conn, logger, "error", sessionID, ErrorData{Code: code, Message: message})
}

func (h *Handler) send(conn *websocket.Conn, logger *zap.Logger, kind, sessionID string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		logger.Warn("marshal live message", zap.String("type", kind), zap.Error(err))
		return
	}
	msg := OutgoingMessage{
		Type:      kind,
		SessionID: sessionID,
		Data:      raw,
		Timestamp: time.Now().Unix(),
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		logger.Debug("write live message", zap.String("type", kind), zap.Error(err))
	}
}

// pingLoop keeps the read deadline alive. WriteControl may run concurrently
// with the writer in the read loop.
func pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
