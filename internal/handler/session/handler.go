package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	domain "github.com/zhouzirui/interview-coach/backend/internal/model/interview"
	"github.com/zhouzirui/interview-coach/backend/internal/observability"
	"github.com/zhouzirui/interview-coach/backend/internal/service/interview"
	"github.com/zhouzirui/interview-coach/backend/pkg/utils"
)

// Engine is the session state machine as seen by the transports.
type Engine interface {
	StartSession(ctx context.Context, roleProfile string) (interview.StartResult, error)
	SubmitAnswer(ctx context.Context, sessionID, answerText string) (interview.AnswerResult, error)
	GetReport(ctx context.Context, sessionID string) (domain.Report, error)
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
}

// Handler serves the interview session REST API.
type Handler struct {
	engine Engine
	logger *zap.Logger
}

// New creates a session handler.
func New(engine Engine, logger *zap.Logger) *Handler {
	return &Handler{
		engine: engine,
		logger: observability.OrNop(logger).Named("http.session"),
	}
}

// RegisterRoutes registers the session routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session/start", h.handleStart)
	r.Post("/session/answer", h.handleAnswer)
	r.Get("/session/{sessionID}", h.handleGetSession)
	r.Get("/session/{sessionID}/report", h.handleReport)
}

type startRequest struct {
	RoleProfile string `json:"role_profile"`
}

// AnswerRequest is the body of the answer endpoints.
type AnswerRequest struct {
	SessionID  string `json:"session_id"`
	AnswerText string `json:"answer_text"`
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	var payload startRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.engine.StartSession(r.Context(), payload.RoleProfile)
	if err != nil {
		h.respondEngineError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, res)
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	payload, ok := DecodeAnswer(w, r)
	if !ok {
		return
	}

	res, err := h.engine.SubmitAnswer(r.Context(), payload.SessionID, payload.AnswerText)
	if err != nil {
		h.respondEngineError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, res)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.engine.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.respondEngineError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, sess)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.engine.GetReport(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.respondEngineError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, rep)
}

// DecodeAnswer reads an answer request, writing a 400 when it is malformed.
func DecodeAnswer(w http.ResponseWriter, r *http.Request) (AnswerRequest, bool) {
	var payload AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return AnswerRequest{}, false
	}
	if payload.SessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "session_id is required")
		return AnswerRequest{}, false
	}
	return payload, true
}

// StatusFor maps an engine error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, interview.ErrInvalidRoleProfile), errors.Is(err, interview.ErrEmptyAnswer):
		return http.StatusBadRequest
	case errors.Is(err, interview.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, interview.ErrSessionAlreadyCompleted),
		errors.Is(err, interview.ErrConcurrentModification),
		errors.Is(err, interview.ErrReportNotAvailable):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respondEngineError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("session request failed", zap.Error(err))
		message = "internal error"
	}
	utils.RespondErrorCode(w, status, interview.Code(err), message)
}
