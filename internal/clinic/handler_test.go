package clinic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokrateshealth/anamnesis-platform/internal/auth"
	"github.com/sokrateshealth/anamnesis-platform/internal/http/middleware"
	"github.com/sokrateshealth/anamnesis-platform/internal/intake"
	"github.com/sokrateshealth/anamnesis-platform/pkg/logging"
)

type stubSessionReader struct {
	page   *SessionPage
	detail *SessionDetail
	stats  *SessionStats
	err    error

	gotClinicCode string
	gotStatus     string
	gotCursor     int64
	gotLimit      int
	gotSessionID  int64
}

func (s *stubSessionReader) ListSessions(_ context.Context, clinicCode, status string, cursor int64, limit int) (*SessionPage, error) {
	s.gotClinicCode = clinicCode
	s.gotStatus = status
	s.gotCursor = cursor
	s.gotLimit = limit
	return s.page, s.err
}

func (s *stubSessionReader) GetSessionDetail(_ context.Context, clinicCode string, sessionID int64) (*SessionDetail, error) {
	s.gotClinicCode = clinicCode
	s.gotSessionID = sessionID
	return s.detail, s.err
}

func (s *stubSessionReader) SessionStatsFor(_ context.Context, clinicCode string) (*SessionStats, error) {
	s.gotClinicCode = clinicCode
	return s.stats, s.err
}

// withClaims simulates the doctor JWT middleware for handler tests.
func withClaims(clinicCode string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := &auth.Claims{DoctorID: 1, ClinicCode: clinicCode}
		next.ServeHTTP(w, r.WithContext(middleware.ContextWithDoctorClaims(r.Context(), claims)))
	})
}

func newDashboardServer(repo SessionReader, clinicCode string) http.Handler {
	h := NewHandler(repo, stubGatherer{}, logging.New("error"))
	r := chi.NewRouter()
	r.Mount("/dashboard", h.Routes())
	if clinicCode == "" {
		return r
	}
	return withClaims(clinicCode, r)
}

func TestHandleListSessions(t *testing.T) {
	next := int64(8)
	repo := &stubSessionReader{page: &SessionPage{
		Sessions: []SessionSummary{
			{ID: 10, Status: intake.StatusCompleted, MessageCount: 6, HasAnamnesis: true},
			{ID: 9, Status: intake.StatusActive, MessageCount: 2},
		},
		NextCursor: &next,
	}}
	srv := newDashboardServer(repo, "DEMO_CLINIC")

	req := httptest.NewRequest(http.MethodGet, "/dashboard/sessions?cursor=12&limit=2", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "DEMO_CLINIC", repo.gotClinicCode)
	assert.Equal(t, int64(12), repo.gotCursor)
	assert.Equal(t, 2, repo.gotLimit)

	var page SessionPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Sessions, 2)
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, int64(8), *page.NextCursor)
}

func TestHandleListSessions_StatusFilter(t *testing.T) {
	repo := &stubSessionReader{page: &SessionPage{Sessions: []SessionSummary{}}}
	srv := newDashboardServer(repo, "DEMO_CLINIC")

	req := httptest.NewRequest(http.MethodGet, "/dashboard/sessions?status=completed", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "completed", repo.gotStatus)

	// "all" collapses to no filter.
	req = httptest.NewRequest(http.MethodGet, "/dashboard/sessions?status=all", nil)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", repo.gotStatus)
}

func TestHandleListSessions_InvalidStatus(t *testing.T) {
	srv := newDashboardServer(&stubSessionReader{}, "DEMO_CLINIC")

	req := httptest.NewRequest(http.MethodGet, "/dashboard/sessions?status=archived", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleListSessions_InvalidCursor(t *testing.T) {
	srv := newDashboardServer(&stubSessionReader{}, "DEMO_CLINIC")

	req := httptest.NewRequest(http.MethodGet, "/dashboard/sessions?cursor=abc", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleListSessions_NoClaims(t *testing.T) {
	srv := newDashboardServer(&stubSessionReader{}, "")

	req := httptest.NewRequest(http.MethodGet, "/dashboard/sessions", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleGetSessionDetail(t *testing.T) {
	now := time.Now()
	repo := &stubSessionReader{detail: &SessionDetail{
		Session: intake.Session{ID: 7, ClinicCode: "DEMO_CLINIC", Status: intake.StatusCompleted, CreatedAt: now, CompletedAt: &now},
		Messages: []intake.Message{
			{ID: 1, SessionID: 7, Role: "user", Content: "Hei"},
		},
		Anamnesis: &intake.Anamnesis{ID: 3, SessionID: 7, Hovedplage: "Hodepine"},
	}}
	srv := newDashboardServer(repo, "DEMO_CLINIC")

	req := httptest.NewRequest(http.MethodGet, "/dashboard/sessions/7", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(7), repo.gotSessionID)

	var detail SessionDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, int64(7), detail.Session.ID)
	require.NotNil(t, detail.Anamnesis)
	assert.Equal(t, "Hodepine", detail.Anamnesis.Hovedplage)
}

func TestHandleGetSessionDetail_Forbidden(t *testing.T) {
	srv := newDashboardServer(&stubSessionReader{err: ErrForbidden}, "DEMO_CLINIC")

	req := httptest.NewRequest(http.MethodGet, "/dashboard/sessions/7", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleGetSessionDetail_NotFound(t *testing.T) {
	srv := newDashboardServer(&stubSessionReader{err: ErrSessionNotFound}, "DEMO_CLINIC")

	req := httptest.NewRequest(http.MethodGet, "/dashboard/sessions/404", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleStats(t *testing.T) {
	repo := &stubSessionReader{stats: &SessionStats{
		TotalSessions:     10,
		CompletedSessions: 4,
		CompletionPct:     40,
		RatingsCount:      3,
		AverageRating:     4.5,
	}}
	srv := newDashboardServer(repo, "DEMO_CLINIC")

	req := httptest.NewRequest(http.MethodGet, "/dashboard/stats", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var stats DashboardStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, "DEMO_CLINIC", stats.ClinicCode)
	assert.Equal(t, int64(10), stats.Sessions.TotalSessions)
	assert.InDelta(t, 4.5, stats.Sessions.AverageRating, 0.001)
}
