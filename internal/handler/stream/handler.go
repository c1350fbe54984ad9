package stream

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/interview-coach/backend/internal/handler/session"
	"github.com/zhouzirui/interview-coach/backend/internal/observability"
	"github.com/zhouzirui/interview-coach/backend/internal/service/interview"
	"github.com/zhouzirui/interview-coach/backend/pkg/utils"
)

// Answerer submits answers on behalf of the stream.
type Answerer interface {
	SubmitAnswer(ctx context.Context, sessionID, answerText string) (interview.AnswerResult, error)
}

// Handler streams the processing of one answer via Server-Sent Events.
type Handler struct {
	engine    Answerer
	heartbeat time.Duration
	logger    *zap.Logger
}

// New creates a stream handler. heartbeat <= 0 uses 8s.
func New(engine Answerer, heartbeat time.Duration, logger *zap.Logger) *Handler {
	if heartbeat <= 0 {
		heartbeat = 8 * time.Second
	}
	return &Handler{
		engine:    engine,
		heartbeat: heartbeat,
		logger:    observability.OrNop(logger).Named("http.stream"),
	}
}

// RegisterRoutes registers the streaming route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session/answer/stream", h.handleAnswerStream)
}

// Event payloads.
type (
	StartEvent struct {
		SessionID string `json:"session_id"`
	}
	HeartbeatEvent struct {
		Message string `json:"message"`
		Time    string `json:"time"`
	}
	FeedbackEvent struct {
		TurnIndex int                `json:"turn_index"`
		Feedback  interview.Feedback `json:"feedback"`
	}
	QuestionEvent struct {
		Question string `json:"question"`
	}
	CompleteEvent struct {
		SessionID string `json:"session_id"`
	}
	EndEvent struct {
		Finished bool `json:"finished"`
	}
	ErrorEvent struct {
		Code  string `json:"code"`
		Error string `json:"error"`
	}
)

func (h *Handler) handleAnswerStream(w http.ResponseWriter, r *http.Request) {
	payload, ok := session.DecodeAnswer(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	utils.SendSSEEvent(w, flusher, "start", StartEvent{SessionID: payload.SessionID})

	type outcome struct {
		res interview.AnswerResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := h.engine.SubmitAnswer(r.Context(), payload.SessionID, payload.AnswerText)
		done <- outcome{res: res, err: err}
	}()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	var result outcome
wait:
	for {
		select {
		case <-r.Context().Done():
			// the engine finishes the turn on its own
			h.logger.Debug("client left during answer processing", zap.String("session_id", payload.SessionID))
			return
		case t := <-ticker.C:
			utils.SendSSEEvent(w, flusher, "heartbeat", HeartbeatEvent{
				Message: "evaluating answer",
				Time:    t.UTC().Format(time.RFC3339),
			})
		case result = <-done:
			break wait
		}
	}

	if result.err != nil {
		message := result.err.Error()
		if session.StatusFor(result.err) == http.StatusInternalServerError {
			h.logger.Error("streamed answer failed", zap.Error(result.err))
			message = "internal error"
		}
		utils.SendSSEEvent(w, flusher, "error", ErrorEvent{Code: interview.Code(result.err), Error: message})
		return
	}

	utils.SendSSEEvent(w, flusher, "feedback", FeedbackEvent{TurnIndex: result.res.TurnIndex, Feedback: result.res.Feedback})
	if result.res.Completed {
		utils.SendSSEEvent(w, flusher, "complete", CompleteEvent{SessionID: payload.SessionID})
	} else if result.res.NextQuestion != nil {
		utils.SendSSEEvent(w, flusher, "question", QuestionEvent{Question: *result.res.NextQuestion})
	}
	utils.SendSSEEvent(w, flusher, "end", EndEvent{Finished: true})
}
