package live

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap/zaptest"

	"github.com/zhouzirui/interview-coach/backend/internal/middleware"
	domain "github.com/zhouzirui/interview-coach/backend/internal/model/interview"
	"github.com/zhouzirui/interview-coach/backend/internal/service/interview"
	"github.com/zhouzirui/interview-coach/backend/internal/service/interview/interviewtest"
)

func newServer(t *testing.T, maxTurns int) (*httptest.Server, *interview.Service) {
	t.Helper()
	engine := interviewtest.NewEngine(t, nil, maxTurns)
	policy, err := middleware.NewOriginPolicy([]string{"http://localhost:3000"}, "")
	if err != nil {
		t.Fatalf("NewOriginPolicy err: %v", err)
	}

	r := chi.NewRouter()
	New(engine, policy, zaptest.NewLogger(t)).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, engine
}

func dial(t *testing.T, srv *httptest.Server, sessionID string, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + sessionID
	return websocket.DefaultDialer.Dial(url, header)
}

func readMessage(t *testing.T, conn *websocket.Conn) OutgoingMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg OutgoingMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read message: %v", err)
	}
	return msg
}

func TestLiveAnswerAndReport(t *testing.T) {
	srv, engine := newServer(t, 2)
	start, err := engine.StartSession(context.Background(), "junior-developer")
	if err != nil {
		t.Fatalf("StartSession err: %v", err)
	}

	conn, _, err := dial(t, srv, start.SessionID, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	msg := readMessage(t, conn)
	if msg.Type != "connected" || msg.SessionID != start.SessionID {
		t.Fatalf("unexpected first message %+v", msg)
	}
	var connected ConnectedData
	if err := json.Unmarshal(msg.Data, &connected); err != nil {
		t.Fatalf("decode connected: %v", err)
	}
	if connected.PendingQuestion != start.FirstQuestion || connected.Status != domain.StatusActive {
		t.Fatalf("unexpected connected payload %+v", connected)
	}

	for i := 0; i < 2; i++ {
		if err := conn.WriteJSON(map[string]any{"type": "answer", "data": map[string]string{"text": "I rewrote the build pipeline."}}); err != nil {
			t.Fatalf("write answer: %v", err)
		}
		msg = readMessage(t, conn)
		if msg.Type != "feedback" {
			t.Fatalf("expected feedback, got %+v", msg)
		}
		var res interview.AnswerResult
		if err := json.Unmarshal(msg.Data, &res); err != nil {
			t.Fatalf("decode feedback: %v", err)
		}
		if res.TurnIndex != i {
			t.Fatalf("expected turn %d, got %d", i, res.TurnIndex)
		}
		if last := i == 1; res.Completed != last {
			t.Fatalf("turn %d: completed=%v", i, res.Completed)
		}
	}

	if err := conn.WriteJSON(map[string]string{"type": "report"}); err != nil {
		t.Fatalf("write report: %v", err)
	}
	msg = readMessage(t, conn)
	if msg.Type != "report" {
		t.Fatalf("expected report, got %+v", msg)
	}
	var rep domain.Report
	if err := json.Unmarshal(msg.Data, &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if rep.Status != domain.StatusCompleted {
		t.Fatalf("expected completed report, got %s", rep.Status)
	}
}

func TestLiveReportsEngineErrors(t *testing.T) {
	srv, engine := newServer(t, 5)
	start, err := engine.StartSession(context.Background(), "junior-developer")
	if err != nil {
		t.Fatalf("StartSession err: %v", err)
	}

	conn, _, err := dial(t, srv, start.SessionID, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	readMessage(t, conn)

	cases := []struct {
		name string
		msg  any
		code string
	}{
		{"empty answer", map[string]any{"type": "answer", "data": map[string]string{"text": "  "}}, interview.CodeEmptyAnswer},
		{"report before answers", map[string]string{"type": "report"}, interview.CodeReportNotAvailable},
		{"unknown type", map[string]string{"type": "audio"}, "BAD_MESSAGE"},
		{"session mismatch", map[string]string{"type": "report", "sessionId": "other"}, "SESSION_MISMATCH"},
	}

	for _, tc := range cases {
		if err := conn.WriteJSON(tc.msg); err != nil {
			t.Fatalf("%s: write: %v", tc.name, err)
		}
		msg := readMessage(t, conn)
		if msg.Type != "error" {
			t.Fatalf("%s: expected error, got %+v", tc.name, msg)
		}
		var data ErrorData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			t.Fatalf("%s: decode: %v", tc.name, err)
		}
		if data.Code != tc.code {
			t.Fatalf("%s: expected code %s, got %s", tc.name, tc.code, data.Code)
		}
	}
}

func TestLiveUnknownSession(t *testing.T) {
	srv, _ := newServer(t, 5)

	_, resp, err := dial(t, srv, "missing", nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 response, got %+v", resp)
	}
}

func TestLiveRejectsForeignOrigin(t *testing.T) {
	srv, engine := newServer(t, 5)
	start, err := engine.StartSession(context.Background(), "junior-developer")
	if err != nil {
		t.Fatalf("StartSession err: %v", err)
	}

	_, resp, err := dial(t, srv, start.SessionID, http.Header{"Origin": []string{"http://evil.example"}})
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 response, got %+v", resp)
	}
}
