package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sokrateshealth/anamnesis-platform/pkg/logging"
)

type fakeAccountStore struct {
	byEmail      map[string]*Doctor
	byClinicCode map[string]*Doctor
	nextID       int64
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{
		byEmail:      make(map[string]*Doctor),
		byClinicCode: make(map[string]*Doctor),
	}
}

func (s *fakeAccountStore) CreateDoctor(_ context.Context, email, passwordHash, clinicCode string) (*Doctor, error) {
	if _, exists := s.byEmail[email]; exists {
		return nil, ErrEmailTaken
	}
	if _, exists := s.byClinicCode[clinicCode]; exists {
		return nil, ErrClinicCodeTaken
	}
	s.nextID++
	d := &Doctor{ID: s.nextID, Email: email, PasswordHash: passwordHash, ClinicCode: clinicCode, CreatedAt: time.Now()}
	s.byEmail[email] = d
	s.byClinicCode[clinicCode] = d
	return d, nil
}

func (s *fakeAccountStore) FindDoctorByEmail(_ context.Context, email string) (*Doctor, error) {
	d, ok := s.byEmail[email]
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return d, nil
}

func newTestService(store *fakeAccountStore) *Service {
	return NewService(store, "test-secret", time.Hour, logging.New("error"))
}

func TestRegister(t *testing.T) {
	store := newFakeAccountStore()
	svc := newTestService(store)

	account, err := svc.Register(context.Background(), "Demo@Sokrates.no", "demo1234", "DEMO_CLINIC")
	require.NoError(t, err)
	assert.Equal(t, "demo@sokrates.no", account.Email, "email is normalized")
	assert.Equal(t, "DEMO_CLINIC", account.ClinicCode)

	stored := store.byEmail["demo@sokrates.no"]
	require.NotNil(t, stored)
	assert.NotEqual(t, "demo1234", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("demo1234")))
}

func TestRegister_Validation(t *testing.T) {
	svc := newTestService(newFakeAccountStore())

	_, err := svc.Register(context.Background(), "not-an-email", "demo1234", "CLINIC")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.Register(context.Background(), "a@b.no", "short", "CLINIC")
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = svc.Register(context.Background(), "a@b.no", "demo1234", "  ")
	assert.ErrorIs(t, err, ErrEmptyClinicCode)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc := newTestService(newFakeAccountStore())

	_, err := svc.Register(context.Background(), "a@b.no", "demo1234", "CLINIC_A")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "a@b.no", "demo1234", "CLINIC_B")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLogin(t *testing.T) {
	store := newFakeAccountStore()
	svc := newTestService(store)

	_, err := svc.Register(context.Background(), "demo@sokrates.no", "demo1234", "DEMO_CLINIC")
	require.NoError(t, err)

	token, account, err := svc.Login(context.Background(), "demo@sokrates.no", "demo1234")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "demo@sokrates.no", account.Email)

	claims, err := ParseToken(token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, account.ID, claims.DoctorID)
	assert.Equal(t, "DEMO_CLINIC", claims.ClinicCode)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc := newTestService(newFakeAccountStore())

	_, err := svc.Register(context.Background(), "demo@sokrates.no", "demo1234", "DEMO_CLINIC")
	require.NoError(t, err)

	_, _, err = svc.Login(context.Background(), "demo@sokrates.no", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc := newTestService(newFakeAccountStore())

	_, _, err := svc.Login(context.Background(), "nobody@sokrates.no", "demo1234")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestParseToken_WrongSecret(t *testing.T) {
	store := newFakeAccountStore()
	svc := newTestService(store)

	_, err := svc.Register(context.Background(), "demo@sokrates.no", "demo1234", "DEMO_CLINIC")
	require.NoError(t, err)
	token, _, err := svc.Login(context.Background(), "demo@sokrates.no", "demo1234")
	require.NoError(t, err)

	_, err = ParseToken(token, "other-secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestParseToken_Expired(t *testing.T) {
	store := newFakeAccountStore()
	svc := NewService(store, "test-secret", time.Nanosecond, logging.New("error"))

	_, err := svc.Register(context.Background(), "demo@sokrates.no", "demo1234", "DEMO_CLINIC")
	require.NoError(t, err)
	token, _, err := svc.Login(context.Background(), "demo@sokrates.no", "demo1234")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	_, err = ParseToken(token, "test-secret")
	assert.Error(t, err)
}
