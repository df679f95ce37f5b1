package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/sokrateshealth/anamnesis-platform/pkg/logging"
)

// bcryptCost matches what the account seeds were hashed with.
const bcryptCost = 12

const minPasswordLength = 8

var (
	ErrEmailTaken         = errors.New("auth: email already registered")
	ErrClinicCodeTaken    = errors.New("auth: clinic code already in use")
	ErrInvalidCredentials = errors.New("auth: invalid email or password")
	ErrInvalidEmail       = errors.New("auth: invalid email address")
	ErrWeakPassword       = errors.New("auth: password must be at least 8 characters")
	ErrEmptyClinicCode    = errors.New("auth: clinic code must not be empty")
)

// Claims is the doctor token payload. ClinicCode rides along so the
// dashboard can scope queries without a database round trip.
type Claims struct {
	DoctorID   int64  `json:"doctorId"`
	ClinicCode string `json:"clinicCode"`
	jwt.RegisteredClaims
}

// AccountStore is the persistence surface the service needs.
type AccountStore interface {
	CreateDoctor(ctx context.Context, email, passwordHash, clinicCode string) (*Doctor, error)
	FindDoctorByEmail(ctx context.Context, email string) (*Doctor, error)
}

// Account is the hash-free view returned to handlers.
type Account struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	ClinicCode string    `json:"clinic_code"`
	CreatedAt  time.Time `json:"created_at"`
}

// Service registers doctors and issues session tokens.
type Service struct {
	store    AccountStore
	secret   []byte
	tokenTTL time.Duration
	logger   *logging.Logger
}

// NewService wires the auth service. The secret must be non-empty; a
// guessable or empty secret makes every dashboard token forgeable.
func NewService(store AccountStore, secret string, tokenTTL time.Duration, logger *logging.Logger) *Service {
	if store == nil {
		panic("auth: store cannot be nil")
	}
	if secret == "" {
		panic("auth: jwt secret cannot be empty")
	}
	if tokenTTL <= 0 {
		tokenTTL = 7 * 24 * time.Hour
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, secret: []byte(secret), tokenTTL: tokenTTL, logger: logger}
}

func accountOf(d *Doctor) *Account {
	return &Account{ID: d.ID, Email: d.Email, ClinicCode: d.ClinicCode, CreatedAt: d.CreatedAt}
}

// Register creates a doctor account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, email, password, clinicCode string) (*Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	clinicCode = strings.TrimSpace(clinicCode)

	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}
	if clinicCode == "" {
		return nil, ErrEmptyClinicCode
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}

	doctor, err := s.store.CreateDoctor(ctx, email, string(hash), clinicCode)
	if err != nil {
		return nil, err
	}

	s.logger.Info("doctor registered", "doctor_id", doctor.ID, "clinic_code", doctor.ClinicCode)
	return accountOf(doctor), nil
}

// Login verifies credentials and returns a signed token plus the account.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (string, *Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	doctor, err := s.store.FindDoctorByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(doctor.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.issueToken(doctor)
	if err != nil {
		return "", nil, err
	}

	s.logger.Info("doctor logged in", "doctor_id", doctor.ID)
	return token, accountOf(doctor), nil
}

func (s *Service) issueToken(doctor *Doctor) (string, error) {
	now := time.Now()
	claims := Claims{
		DoctorID:   doctor.ID,
		ClinicCode: doctor.ClinicCode,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(doctor.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a doctor token and returns its claims.
func ParseToken(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidCredentials
	}
	return claims, nil
}
