package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/restage/server/internal/auth"
	"codeberg.org/restage/server/restage/users"
)

type memoryStore struct {
	mu    sync.Mutex
	users map[string]*users.User
	codes map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{users: map[string]*users.User{}, codes: map[string]string{}}
}

func (s *memoryStore) Create(_ context.Context, req users.CreateUserRequest) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == req.Email {
			return nil, users.ErrEmailTaken
		}
	}

	u := &users.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: req.PasswordHash,
		Name:         req.Name,
		Provider:     users.ProviderLocal,
		Credits:      req.Credits,
		CreatedAt:    time.Now(),
	}

	s.users[u.ID] = u
	s.codes[u.ID] = req.VerificationCode

	return u, nil
}

func (s *memoryStore) FindByID(_ context.Context, userID string) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[userID]; ok {
		return u, nil
	}

	return nil, users.ErrUserNotFound
}

func (s *memoryStore) FindByEmail(_ context.Context, email string) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}

	return nil, users.ErrUserNotFound
}

func (s *memoryStore) FindOrCreateByProvider(_ context.Context, provider, providerID, email, name string, credits int) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Provider == provider && u.ProviderID == providerID {
			return u, nil
		}
	}

	u := &users.User{ID: uuid.NewString(), Email: email, Name: name, Provider: provider, ProviderID: providerID, Credits: credits}
	s.users[u.ID] = u

	return u, nil
}

func (s *memoryStore) VerifyEmail(_ context.Context, userID, code string) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok || s.codes[userID] != code {
		return nil, users.ErrInvalidVerificationCode
	}

	u.EmailVerified = true
	delete(s.codes, userID)

	return u, nil
}

func (s *memoryStore) SetVerificationCode(_ context.Context, userID, code string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok || u.EmailVerified {
		return users.ErrUserNotFound
	}

	s.codes[userID] = code

	return nil
}

type capturedMail struct {
	to, subject, body string
}

type fakeMailer struct {
	sent []capturedMail
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	m.sent = append(m.sent, capturedMail{to, subject, body})
	return nil
}

func setup(t *testing.T) (*gin.Engine, *memoryStore, *fakeMailer) {
	t.Helper()
	t.Setenv("JWT_SECRET", "auth-handler-secret")
	gin.SetMode(gin.TestMode)
	auth.InitializeSessions("session-secret-for-tests-0123456", false)

	store := newMemoryStore()
	mailer := &fakeMailer{}

	router := gin.New()
	RegisterRoutes(router.Group("/api"), store, mailer, auth.AuthMiddleware(store), Options{
		SignupCredits: 3,
		Providers:     []string{"google"},
	})

	return router, store, mailer
}

func do(router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func register(t *testing.T, router http.Handler) AuthResponse {
	t.Helper()

	w := do(router, http.MethodPost, "/api/auth/register", "", `{"email":"Ana@Example.com","password":"correct-horse","name":"Ana"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	return resp
}

func TestRegister(t *testing.T) {
	router, _, mailer := setup(t)

	resp := register(t, router)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "ana@example.com", resp.User.Email)
	assert.Equal(t, 3, resp.User.Credits)
	assert.False(t, resp.User.EmailVerified)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "ana@example.com", mailer.sent[0].to)

	w := do(router, http.MethodPost, "/api/auth/register", "", `{"email":"ana@example.com","password":"another-pass"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRegister_Validation(t *testing.T) {
	router, _, _ := setup(t)

	cases := []string{
		`{"email":"not-an-email","password":"correct-horse"}`,
		`{"email":"a@b.co","password":"short"}`,
		`{"password":"correct-horse"}`,
	}

	for _, body := range cases {
		w := do(router, http.MethodPost, "/api/auth/register", "", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestLogin(t *testing.T) {
	router, _, _ := setup(t)
	register(t, router)

	w := do(router, http.MethodPost, "/api/auth/login", "", `{"email":"ana@example.com","password":"correct-horse"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("Set-Cookie"))

	w = do(router, http.MethodPost, "/api/auth/login", "", `{"email":"ana@example.com","password":"wrong-horse"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(router, http.MethodPost, "/api/auth/login", "", `{"email":"nobody@example.com","password":"correct-horse"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMe(t *testing.T) {
	router, _, _ := setup(t)
	resp := register(t, router)

	w := do(router, http.MethodGet, "/api/auth/me", resp.Token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), resp.User.ID)
	assert.NotContains(t, w.Body.String(), "correct-horse")

	w = do(router, http.MethodGet, "/api/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVerifyEmail(t *testing.T) {
	router, store, _ := setup(t)
	resp := register(t, router)

	code := store.codes[resp.User.ID]

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	w := do(router, http.MethodPost, "/api/auth/verify", resp.Token, `{"code":"`+wrong+`"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodPost, "/api/auth/verify", resp.Token, `{"code":"`+code+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"emailVerified":true`)
}

func TestResendVerification(t *testing.T) {
	router, store, mailer := setup(t)
	resp := register(t, router)

	w := do(router, http.MethodPost, "/api/auth/verify/resend", resp.Token, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, mailer.sent, 2)
	assert.Contains(t, mailer.sent[1].body, store.codes[resp.User.ID])

	w = do(router, http.MethodPost, "/api/auth/verify", resp.Token, `{"code":"`+store.codes[resp.User.ID]+`"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(router, http.MethodPost, "/api/auth/verify/resend", resp.Token, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogout(t *testing.T) {
	router, _, _ := setup(t)

	w := do(router, http.MethodPost, "/api/auth/logout", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Header().Get("Set-Cookie"), "Max-Age=0") ||
		strings.Contains(w.Header().Get("Set-Cookie"), "Expires="))
}

func TestBeginAuth_UnknownProvider(t *testing.T) {
	router, _, _ := setup(t)

	w := do(router, http.MethodGet, "/api/auth/github", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateVerificationCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := generateVerificationCode()
		require.NoError(t, err)
		assert.Len(t, code, 6)
	}
}
