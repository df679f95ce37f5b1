package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokrateshealth/anamnesis-platform/pkg/logging"
)

type fakeAuthenticator struct {
	account *Account
	token   string
	err     error
}

func (f *fakeAuthenticator) Register(_ context.Context, email, password, clinicCode string) (*Account, error) {
	return f.account, f.err
}

func (f *fakeAuthenticator) Login(_ context.Context, email, password string) (string, *Account, error) {
	return f.token, f.account, f.err
}

func TestHandleRegister(t *testing.T) {
	svc := &fakeAuthenticator{account: &Account{ID: 1, Email: "demo@sokrates.no", ClinicCode: "DEMO_CLINIC"}}
	h := NewHandler(svc, logging.New("error"))

	body := `{"email":"demo@sokrates.no","password":"demo1234","clinicCode":"DEMO_CLINIC"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.HandleRegister(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Doctor Account `json:"doctor"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "demo@sokrates.no", resp.Doctor.Email)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestHandleRegister_EmailTaken(t *testing.T) {
	h := NewHandler(&fakeAuthenticator{err: ErrEmailTaken}, logging.New("error"))

	body := `{"email":"demo@sokrates.no","password":"demo1234","clinicCode":"DEMO_CLINIC"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.HandleRegister(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "email_taken")
}

func TestHandleRegister_Validation(t *testing.T) {
	h := NewHandler(&fakeAuthenticator{err: ErrWeakPassword}, logging.New("error"))

	body := `{"email":"demo@sokrates.no","password":"x","clinicCode":"DEMO_CLINIC"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.HandleRegister(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation")
}

func TestHandleLogin(t *testing.T) {
	svc := &fakeAuthenticator{
		token:   "signed-token",
		account: &Account{ID: 1, Email: "demo@sokrates.no", ClinicCode: "DEMO_CLINIC"},
	}
	h := NewHandler(svc, logging.New("error"))

	body := `{"email":"demo@sokrates.no","password":"demo1234"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.HandleLogin(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Token  string  `json:"token"`
		Doctor Account `json:"doctor"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "signed-token", resp.Token)
	assert.Equal(t, "DEMO_CLINIC", resp.Doctor.ClinicCode)
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	h := NewHandler(&fakeAuthenticator{err: ErrInvalidCredentials}, logging.New("error"))

	body := `{"email":"demo@sokrates.no","password":"wrong"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.HandleLogin(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_credentials")
}

func TestHandleLogin_BadBody(t *testing.T) {
	h := NewHandler(&fakeAuthenticator{}, logging.New("error"))

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{broken`))
	w := httptest.NewRecorder()
	h.HandleLogin(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
