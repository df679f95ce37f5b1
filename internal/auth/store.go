package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Doctor is the credentialed account row, including the bcrypt hash. It
// never leaves this package with the hash attached.
type Doctor struct {
	ID           int64
	Email        string
	PasswordHash string
	ClinicCode   string
	CreatedAt    time.Time
}

// DB is the subset of pgxpool.Pool the store needs.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store persists doctor accounts.
type Store struct {
	db DB
}

// NewStore builds a store over a pgx pool (or compatible handle).
func NewStore(db DB) *Store {
	if db == nil {
		panic("auth: db handle cannot be nil")
	}
	return &Store{db: db}
}

// CreateDoctor inserts a new account. Unique violations map to the taken
// sentinel matching the violated constraint.
func (s *Store) CreateDoctor(ctx context.Context, email, passwordHash, clinicCode string) (*Doctor, error) {
	var d Doctor
	err := s.db.QueryRow(ctx,
		`INSERT INTO doctors (email, password_hash, clinic_code)
         VALUES ($1, $2, $3)
         RETURNING id, email, password_hash, clinic_code, created_at`,
		email, passwordHash, clinicCode,
	).Scan(&d.ID, &d.Email, &d.PasswordHash, &d.ClinicCode, &d.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if pgErr.ConstraintName == "doctors_clinic_code_key" {
				return nil, ErrClinicCodeTaken
			}
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("auth: create doctor: %w", err)
	}
	return &d, nil
}

// FindDoctorByEmail fetches an account for credential verification.
func (s *Store) FindDoctorByEmail(ctx context.Context, email string) (*Doctor, error) {
	var d Doctor
	err := s.db.QueryRow(ctx,
		`SELECT id, email, password_hash, clinic_code, created_at
         FROM doctors WHERE email = $1`,
		email,
	).Scan(&d.ID, &d.Email, &d.PasswordHash, &d.ClinicCode, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("auth: find doctor by email: %w", err)
	}
	return &d, nil
}
