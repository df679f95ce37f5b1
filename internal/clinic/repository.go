package clinic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sokrateshealth/anamnesis-platform/internal/intake"
)

var (
	ErrSessionNotFound = errors.New("clinic: session not found")
	// ErrForbidden covers sessions that exist but belong to another clinic.
	ErrForbidden = errors.New("clinic: session belongs to another clinic")
)

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// SessionSummary is one row in the dashboard session list.
type SessionSummary struct {
	ID           int64                `json:"id"`
	Status       intake.SessionStatus `json:"status"`
	CreatedAt    time.Time            `json:"created_at"`
	CompletedAt  *time.Time           `json:"completed_at,omitempty"`
	MessageCount int64                `json:"message_count"`
	HasAnamnesis bool                 `json:"has_anamnesis"`
	RatingScore  *int                 `json:"rating_score,omitempty"`
}

// SessionDetail is the full doctor-facing view of one session.
type SessionDetail struct {
	Session   intake.Session    `json:"session"`
	Messages  []intake.Message  `json:"messages"`
	Anamnesis *intake.Anamnesis `json:"anamnesis,omitempty"`
	Rating    *intake.Rating    `json:"rating,omitempty"`
}

// SessionPage is a cursor-paginated slice of session summaries. NextCursor
// is nil on the last page.
type SessionPage struct {
	Sessions   []SessionSummary `json:"sessions"`
	NextCursor *int64           `json:"next_cursor,omitempty"`
}

// Repository reads clinic-scoped session data for the dashboard.
type Repository struct {
	db DB
}

// NewRepository builds a repository over a pgx pool (or compatible handle).
func NewRepository(db DB) *Repository {
	if db == nil {
		panic("clinic: db handle cannot be nil")
	}
	return &Repository{db: db}
}

// ListSessions returns the clinic's sessions newest first. status narrows
// the list to one lifecycle state; empty means all. cursor=0 starts at the
// top; otherwise only rows with id < cursor are returned. One extra row is
// fetched to decide whether a next page exists.
func (r *Repository) ListSessions(ctx context.Context, clinicCode, status string, cursor int64, limit int) (*SessionPage, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	rows, err := r.db.Query(ctx,
		`SELECT s.id, s.status, s.created_at, s.completed_at,
                COUNT(m.id) AS message_count,
                (a.id IS NOT NULL) AS has_anamnesis,
                rt.score
         FROM sessions s
         LEFT JOIN messages m ON m.session_id = s.id
         LEFT JOIN anamneses a ON a.session_id = s.id
         LEFT JOIN ratings rt ON rt.session_id = s.id
         WHERE s.clinic_code = $1
           AND ($2 = '' OR s.status = $2)
           AND ($3::bigint = 0 OR s.id < $3)
         GROUP BY s.id, s.status, s.created_at, s.completed_at, a.id, rt.score
         ORDER BY s.id DESC
         LIMIT $4`,
		clinicCode, status, cursor, limit+1,
	)
	if err != nil {
		return nil, fmt.Errorf("clinic: list sessions: %w", err)
	}
	defer rows.Close()

	summaries := make([]SessionSummary, 0, limit)
	for rows.Next() {
		var s SessionSummary
		if err := rows.Scan(&s.ID, &s.Status, &s.CreatedAt, &s.CompletedAt,
			&s.MessageCount, &s.HasAnamnesis, &s.RatingScore); err != nil {
			return nil, fmt.Errorf("clinic: scan session summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("clinic: iterate sessions: %w", err)
	}

	page := &SessionPage{Sessions: summaries}
	if len(summaries) > limit {
		page.Sessions = summaries[:limit]
		next := page.Sessions[limit-1].ID
		page.NextCursor = &next
	}
	return page, nil
}

// GetSessionDetail returns the transcript, anamnesis, and rating for one
// session, refusing access across clinic boundaries.
func (r *Repository) GetSessionDetail(ctx context.Context, clinicCode string, sessionID int64) (*SessionDetail, error) {
	var sess intake.Session
	err := r.db.QueryRow(ctx,
		`SELECT id, clinic_code, status, provider_thread_id, created_at, completed_at
         FROM sessions WHERE id = $1`,
		sessionID,
	).Scan(&sess.ID, &sess.ClinicCode, &sess.Status, &sess.ProviderThreadID, &sess.CreatedAt, &sess.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("clinic: get session: %w", err)
	}
	if sess.ClinicCode != clinicCode {
		return nil, ErrForbidden
	}

	detail := &SessionDetail{Session: sess, Messages: []intake.Message{}}

	rows, err := r.db.Query(ctx,
		`SELECT id, session_id, role, content, created_at
         FROM messages
         WHERE session_id = $1
         ORDER BY created_at ASC, id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("clinic: list session messages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m intake.Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("clinic: scan session message: %w", err)
		}
		detail.Messages = append(detail.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("clinic: iterate session messages: %w", err)
	}

	var a intake.Anamnesis
	err = r.db.QueryRow(ctx,
		`SELECT id, session_id, hovedplage, tidligere_sykdommer, medisinering,
                allergier, familiehistorie, sosial_livsstil, ros, pasient_maal,
                fri_oppsummering, created_at
         FROM anamneses WHERE session_id = $1`,
		sessionID,
	).Scan(&a.ID, &a.SessionID, &a.Hovedplage, &a.TidligereSykdommer, &a.Medisinering,
		&a.Allergier, &a.Familiehistorie, &a.SosialLivsstil, &a.ROS, &a.PasientMaal,
		&a.FriOppsummering, &a.CreatedAt)
	switch {
	case err == nil:
		detail.Anamnesis = &a
	case errors.Is(err, pgx.ErrNoRows):
		// Active sessions have no anamnesis yet.
	default:
		return nil, fmt.Errorf("clinic: get anamnesis: %w", err)
	}

	var rt intake.Rating
	err = r.db.QueryRow(ctx,
		`SELECT id, session_id, score, comment, created_at
         FROM ratings WHERE session_id = $1`,
		sessionID,
	).Scan(&rt.ID, &rt.SessionID, &rt.Score, &rt.Comment, &rt.CreatedAt)
	switch {
	case err == nil:
		detail.Rating = &rt
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return nil, fmt.Errorf("clinic: get rating: %w", err)
	}

	return detail, nil
}

// SessionStats aggregates clinic-level counters for the dashboard header.
type SessionStats struct {
	TotalSessions     int64   `json:"total_sessions"`
	CompletedSessions int64   `json:"completed_sessions"`
	CompletionPct     float64 `json:"completion_pct"`
	RatingsCount      int64   `json:"ratings_count"`
	AverageRating     float64 `json:"average_rating"`
}

// SessionStatsFor computes the clinic's aggregate counters.
func (r *Repository) SessionStatsFor(ctx context.Context, clinicCode string) (*SessionStats, error) {
	var stats SessionStats
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(s.id),
                COUNT(s.id) FILTER (WHERE s.status = 'completed'),
                COUNT(rt.id),
                COALESCE(AVG(rt.score), 0)
         FROM sessions s
         LEFT JOIN ratings rt ON rt.session_id = s.id
         WHERE s.clinic_code = $1`,
		clinicCode,
	).Scan(&stats.TotalSessions, &stats.CompletedSessions, &stats.RatingsCount, &stats.AverageRating)
	if err != nil {
		return nil, fmt.Errorf("clinic: session stats: %w", err)
	}
	if stats.TotalSessions > 0 {
		stats.CompletionPct = float64(stats.CompletedSessions) / float64(stats.TotalSessions) * 100.0
	}
	return &stats, nil
}
