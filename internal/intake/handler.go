package intake

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sokrateshealth/anamnesis-platform/pkg/logging"
)

// Lifecycle is the engine surface the handler needs.
type Lifecycle interface {
	CreateSession(ctx context.Context, clinicCode string) (*Session, error)
	SendMessage(ctx context.Context, sessionID int64, text string) (*Message, error)
	CompleteSession(ctx context.Context, sessionID int64) (*Anamnesis, error)
	SubmitRating(ctx context.Context, sessionID int64, score int, comment *string) (*Rating, error)
	GetSession(ctx context.Context, sessionID int64) (*Session, error)
	ListMessages(ctx context.Context, sessionID int64) ([]Message, error)
}

// Handler serves the patient-facing session endpoints.
type Handler struct {
	engine Lifecycle
	logger *logging.Logger
}

// NewHandler builds the patient-facing handler.
func NewHandler(engine Lifecycle, logger *logging.Logger) *Handler {
	if engine == nil {
		panic("intake: engine cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{engine: engine, logger: logger}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// statusForKind maps stable error kinds to HTTP statuses. Retryable
// provider faults surface as gateway errors so clients can distinguish
// "try again" from terminal rejections.
func statusForKind(kind Kind) int {
	switch kind {
	case KindClinicNotFound, KindSessionNotFound:
		return http.StatusNotFound
	case KindSessionNotActive, KindSessionCompleted, KindSessionNotCompleted, KindRatingExists:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	case KindProviderTimeout:
		return http.StatusGatewayTimeout
	case KindProviderError, KindExtractionFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	kind := KindOf(err)
	status := statusForKind(kind)
	if status >= http.StatusInternalServerError {
		h.logger.Error("intake request failed", "kind", string(kind), "error", err)
	}
	writeJSON(w, status, errorBody{Error: errorDetail{Kind: string(kind), Message: err.Error()}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func sessionIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "sessionID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrSessionNotFound
	}
	return id, nil
}

// HandleCreateSession starts a new intake session for a clinic code. The
// greeting is returned to the client but never persisted as a turn.
func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClinicCode string `json:"clinicCode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.Join(ErrEmptyClinicCode, err))
		return
	}

	sess, err := h.engine.CreateSession(r.Context(), req.ClinicCode)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"session":  sess,
		"greeting": GreetingMessage,
	})
}

// HandleGetSession returns the session plus its transcript.
func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDParam(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	sess, err := h.engine.GetSession(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	messages, err := h.engine.ListMessages(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if messages == nil {
		messages = []Message{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session":  sess,
		"messages": messages,
	})
}

// HandleSendMessage runs one chat turn and returns the assistant reply.
func (h *Handler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDParam(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.Join(ErrEmptyMessage, err))
		return
	}

	reply, err := h.engine.SendMessage(r.Context(), id, req.Content)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"message": reply})
}

// HandleCompleteSession extracts the anamnesis and closes the session.
func (h *Handler) HandleCompleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDParam(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	anamnesis, err := h.engine.CompleteSession(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"anamnesis": anamnesis})
}

// HandleSubmitRating records the patient's rating for a completed session.
func (h *Handler) HandleSubmitRating(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDParam(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req struct {
		Score   int     `json:"score"`
		Comment *string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.Join(ErrInvalidScore, err))
		return
	}

	rating, err := h.engine.SubmitRating(r.Context(), id, req.Score, req.Comment)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"rating": rating})
}
