package intake

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the store needs. pgxmock satisfies it in
// tests.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store persists sessions, messages, anamneses, and ratings to PostgreSQL.
type Store struct {
	db DB
}

// NewStore builds a store over a pgx pool (or compatible handle).
func NewStore(db DB) *Store {
	if db == nil {
		panic("intake: db handle cannot be nil")
	}
	return &Store{db: db}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// FindDoctorByClinicCode resolves a clinic code to its doctor.
func (s *Store) FindDoctorByClinicCode(ctx context.Context, clinicCode string) (*Doctor, error) {
	var d Doctor
	err := s.db.QueryRow(ctx,
		`SELECT id, email, clinic_code, created_at FROM doctors WHERE clinic_code = $1`,
		clinicCode,
	).Scan(&d.ID, &d.Email, &d.ClinicCode, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrClinicNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("intake: lookup clinic code: %w", err)
	}
	return &d, nil
}

// CreateSession inserts a new active session for the clinic.
func (s *Store) CreateSession(ctx context.Context, clinicCode string) (*Session, error) {
	var sess Session
	err := s.db.QueryRow(ctx,
		`INSERT INTO sessions (clinic_code, status)
         VALUES ($1, 'active')
         RETURNING id, clinic_code, status, provider_thread_id, created_at, completed_at`,
		clinicCode,
	).Scan(&sess.ID, &sess.ClinicCode, &sess.Status, &sess.ProviderThreadID, &sess.CreatedAt, &sess.CompletedAt)
	if err != nil {
		return nil, fmt.Errorf("intake: create session: %w", err)
	}
	return &sess, nil
}

// GetSession fetches a session by id.
func (s *Store) GetSession(ctx context.Context, sessionID int64) (*Session, error) {
	var sess Session
	err := s.db.QueryRow(ctx,
		`SELECT id, clinic_code, status, provider_thread_id, created_at, completed_at
         FROM sessions WHERE id = $1`,
		sessionID,
	).Scan(&sess.ID, &sess.ClinicCode, &sess.Status, &sess.ProviderThreadID, &sess.CreatedAt, &sess.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("intake: get session: %w", err)
	}
	return &sess, nil
}

// SetProviderThreadID stores the optional provider-side correlation token.
func (s *Store) SetProviderThreadID(ctx context.Context, sessionID int64, threadID string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE sessions SET provider_thread_id = $2 WHERE id = $1`,
		sessionID, threadID,
	)
	if err != nil {
		return fmt.Errorf("intake: set provider thread id: %w", err)
	}
	return nil
}

// InsertMessage appends one turn to a session transcript.
func (s *Store) InsertMessage(ctx context.Context, sessionID int64, role, content string) (*Message, error) {
	var m Message
	err := s.db.QueryRow(ctx,
		`INSERT INTO messages (session_id, role, content)
         VALUES ($1, $2, $3)
         RETURNING id, session_id, role, content, created_at`,
		sessionID, role, content,
	).Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("intake: insert message: %w", err)
	}
	return &m, nil
}

// ListMessages returns the full ordered transcript for a session.
func (s *Store) ListMessages(ctx context.Context, sessionID int64) ([]Message, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, session_id, role, content, created_at
         FROM messages
         WHERE session_id = $1
         ORDER BY created_at ASC, id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("intake: list messages: %w", err)
	}
	defer rows.Close()

	var transcript []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("intake: scan message: %w", err)
		}
		transcript = append(transcript, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("intake: iterate messages: %w", err)
	}
	return transcript, nil
}

// CompleteSession atomically stores the anamnesis and flips the session to
// completed. Either both writes land or the session stays active with no
// partial anamnesis, so a retried completion can never violate the
// one-anamnesis-per-session invariant.
func (s *Store) CompleteSession(ctx context.Context, sessionID int64, fields AnamnesisFields) (*Anamnesis, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("intake: begin completion tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Guarding on status makes repeated completions fail cleanly instead of
	// duplicating work.
	tag, err := tx.Exec(ctx,
		`UPDATE sessions SET status = 'completed', completed_at = now()
         WHERE id = $1 AND status = 'active'`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("intake: mark session completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var status SessionStatus
		err := tx.QueryRow(ctx, `SELECT status FROM sessions WHERE id = $1`, sessionID).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("intake: check session status: %w", err)
		}
		return nil, ErrSessionCompleted
	}

	var a Anamnesis
	err = tx.QueryRow(ctx,
		`INSERT INTO anamneses (session_id, hovedplage, tidligere_sykdommer, medisinering,
                                allergier, familiehistorie, sosial_livsstil, ros,
                                pasient_maal, fri_oppsummering)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
         RETURNING id, session_id, hovedplage, tidligere_sykdommer, medisinering,
                   allergier, familiehistorie, sosial_livsstil, ros, pasient_maal,
                   fri_oppsummering, created_at`,
		sessionID,
		fields.Hovedplage, fields.TidligereSykdommer, fields.Medisinering,
		fields.Allergier, fields.Familiehistorie, fields.SosialLivsstil,
		fields.ROS, fields.PasientMaal, fields.FriOppsummering,
	).Scan(&a.ID, &a.SessionID, &a.Hovedplage, &a.TidligereSykdommer, &a.Medisinering,
		&a.Allergier, &a.Familiehistorie, &a.SosialLivsstil, &a.ROS, &a.PasientMaal,
		&a.FriOppsummering, &a.CreatedAt)
	if isUniqueViolation(err) {
		return nil, ErrSessionCompleted
	}
	if err != nil {
		return nil, fmt.Errorf("intake: insert anamnesis: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("intake: commit completion tx: %w", err)
	}
	return &a, nil
}

// InsertRating stores the one-and-only rating for a session.
func (s *Store) InsertRating(ctx context.Context, sessionID int64, score int, comment *string) (*Rating, error) {
	var r Rating
	err := s.db.QueryRow(ctx,
		`INSERT INTO ratings (session_id, score, comment)
         VALUES ($1, $2, $3)
         RETURNING id, session_id, score, comment, created_at`,
		sessionID, score, comment,
	).Scan(&r.ID, &r.SessionID, &r.Score, &r.Comment, &r.CreatedAt)
	if isUniqueViolation(err) {
		return nil, ErrRatingExists
	}
	if err != nil {
		return nil, fmt.Errorf("intake: insert rating: %w", err)
	}
	return &r, nil
}
