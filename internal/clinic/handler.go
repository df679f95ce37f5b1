package clinic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sokrateshealth/anamnesis-platform/internal/http/middleware"
	"github.com/sokrateshealth/anamnesis-platform/internal/intake"
	"github.com/sokrateshealth/anamnesis-platform/pkg/logging"
)

// SessionReader is the repository surface the handler needs.
type SessionReader interface {
	ListSessions(ctx context.Context, clinicCode, status string, cursor int64, limit int) (*SessionPage, error)
	GetSessionDetail(ctx context.Context, clinicCode string, sessionID int64) (*SessionDetail, error)
	SessionStatsFor(ctx context.Context, clinicCode string) (*SessionStats, error)
}

// Handler serves the doctor dashboard endpoints. Every route is scoped to
// the clinic code carried in the doctor's token.
type Handler struct {
	repo     SessionReader
	gatherer prometheus.Gatherer
	logger   *logging.Logger
}

// NewHandler builds the dashboard handler.
func NewHandler(repo SessionReader, gatherer prometheus.Gatherer, logger *logging.Logger) *Handler {
	if repo == nil {
		panic("clinic: repository cannot be nil")
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, gatherer: gatherer, logger: logger}
}

// Routes returns the dashboard route set. Callers mount it behind the
// doctor JWT middleware.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/sessions", h.HandleListSessions)
	r.Get("/sessions/{sessionID}", h.HandleGetSessionDetail)
	r.Get("/stats", h.HandleStats)
	return r
}

func clinicCodeFrom(r *http.Request) (string, bool) {
	claims, ok := middleware.DoctorClaimsFromContext(r.Context())
	if !ok || claims.ClinicCode == "" {
		return "", false
	}
	return claims.ClinicCode, true
}

// HandleListSessions returns a cursor-paginated session list.
// GET /dashboard/sessions?status=<all|active|completed>&cursor=<id>&limit=<n>
func (h *Handler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	clinicCode, ok := clinicCodeFrom(r)
	if !ok {
		http.Error(w, `{"error":"missing doctor claims"}`, http.StatusUnauthorized)
		return
	}

	status := r.URL.Query().Get("status")
	switch status {
	case "", "all":
		status = ""
	case string(intake.StatusActive), string(intake.StatusCompleted):
	default:
		http.Error(w, `{"error":"invalid status filter"}`, http.StatusBadRequest)
		return
	}

	var cursor int64
	if raw := r.URL.Query().Get("cursor"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			http.Error(w, `{"error":"invalid cursor"}`, http.StatusBadRequest)
			return
		}
		cursor = parsed
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, `{"error":"invalid limit"}`, http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	page, err := h.repo.ListSessions(r.Context(), clinicCode, status, cursor, limit)
	if err != nil {
		h.logger.Error("failed to list sessions", "clinic_code", clinicCode, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(page)
}

// HandleGetSessionDetail returns one session's transcript, anamnesis, and
// rating. GET /dashboard/sessions/{sessionID}
func (h *Handler) HandleGetSessionDetail(w http.ResponseWriter, r *http.Request) {
	clinicCode, ok := clinicCodeFrom(r)
	if !ok {
		http.Error(w, `{"error":"missing doctor claims"}`, http.StatusUnauthorized)
		return
	}

	sessionID, err := strconv.ParseInt(chi.URLParam(r, "sessionID"), 10, 64)
	if err != nil || sessionID <= 0 {
		http.Error(w, `{"error":"invalid session id"}`, http.StatusNotFound)
		return
	}

	detail, err := h.repo.GetSessionDetail(r.Context(), clinicCode, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		http.Error(w, `{"error":"session not found"}`, http.StatusNotFound)
		return
	}
	if errors.Is(err, ErrForbidden) {
		http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
		return
	}
	if err != nil {
		h.logger.Error("failed to load session detail", "clinic_code", clinicCode, "session_id", sessionID, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(detail)
}

// DashboardStats is the header payload: aggregate counters plus the
// provider latency snapshot.
type DashboardStats struct {
	ClinicCode      string                  `json:"clinic_code"`
	Sessions        SessionStats            `json:"sessions"`
	ProviderLatency ProviderLatencySnapshot `json:"provider_latency"`
}

// HandleStats returns clinic aggregates. GET /dashboard/stats
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	clinicCode, ok := clinicCodeFrom(r)
	if !ok {
		http.Error(w, `{"error":"missing doctor claims"}`, http.StatusUnauthorized)
		return
	}

	stats, err := h.repo.SessionStatsFor(r.Context(), clinicCode)
	if err != nil {
		h.logger.Error("failed to load clinic stats", "clinic_code", clinicCode, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(DashboardStats{
		ClinicCode:      clinicCode,
		Sessions:        *stats,
		ProviderLatency: snapshotProviderLatency(h.gatherer),
	})
}
