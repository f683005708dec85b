package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/restage/server/restage/users"
)

const testSecret = "test-secret-key-for-testing"

func TestGenerateJWT_Success(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	token, err := GenerateJWT("user-123", "test@example.com", false)

	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, 3, len(strings.Split(token, ".")), "JWT should have 3 parts")
}

func TestGenerateJWT_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := GenerateJWT("user-123", "test@example.com", false)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET not set")
}

func TestValidateJWT_ValidToken(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	token, err := GenerateJWT("user-123", "test@example.com", true)
	require.NoError(t, err)

	claims, err := ValidateJWT(token)

	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "test@example.com", claims.Email)
	assert.True(t, claims.IsAdmin)
}

func TestValidateJWT_ExpiredAfterOneDay(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	token, err := generateJWTAt("user-123", "test@example.com", false, time.Now().Add(-25*time.Hour))
	require.NoError(t, err)

	_, err = ValidateJWT(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestValidateJWT_MissingExpiry(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	claims := Claims{UserID: "user-123", Email: "test@example.com"}
	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = ValidateJWT(tokenString)
	assert.Error(t, err, "tokens without exp should be rejected")
}

func TestValidateJWT_TamperedToken(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	token, err := GenerateJWT("user-123", "test@example.com", false)
	require.NoError(t, err)

	tamperedToken := token[:len(token)-5] + "XXXXX"

	_, err = ValidateJWT(tamperedToken)
	assert.Error(t, err, "tampered token should be rejected")
}

func TestValidateJWT_WrongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	token, err := GenerateJWT("user-123", "test@example.com", false)
	require.NoError(t, err)

	t.Setenv("JWT_SECRET", "different-secret-key")

	_, err = ValidateJWT(token)
	assert.Error(t, err, "token signed with different secret should be rejected")
}

func TestValidateJWT_AlgorithmConfusionAttack(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	claims := Claims{
		UserID: "attacker",
		Email:  "attacker@evil.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	tokenString, _ := token.SignedString(jwt.UnsafeAllowNoneSignatureType) //nolint:errcheck // test code

	_, err := ValidateJWT(tokenString)
	assert.Error(t, err, "token with 'none' algorithm should be rejected")
}

func TestValidateJWT_MalformedToken(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	malformedTokens := []string{
		"",
		"not.a.jwt",
		"only.two",
		"too.many.parts.in.this.token",
		"<script>alert('xss')</script>",
	}

	for _, token := range malformedTokens {
		_, err := ValidateJWT(token)
		assert.Error(t, err, "malformed token '%s' should be rejected", token)
	}
}

func TestJWT_TokenExpiration(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	token, err := GenerateJWT("user-123", "test@example.com", false)
	require.NoError(t, err)

	claims, err := ValidateJWT(token)
	require.NoError(t, err)

	expectedExpiry := time.Now().Add(24 * time.Hour)
	timeDiff := claims.ExpiresAt.Time.Sub(expectedExpiry).Abs()

	assert.Less(t, timeDiff, 5*time.Second, "expiration should be approximately 24 hours from now")
}

func TestPassword_HashAndCheck(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	require.NoError(t, err)

	assert.True(t, CheckPassword(hash, "correct horse battery"))
	assert.False(t, CheckPassword(hash, "wrong password"))
	assert.False(t, CheckPassword("", "correct horse battery"), "oauth users without a hash never match")

	_, err = HashPassword("short")
	assert.Error(t, err)
}

// implements UserLookup for testing
type mockLookup struct {
	users map[string]*users.User
}

func (m *mockLookup) FindByID(_ context.Context, userID string) (*users.User, error) {
	if user, ok := m.users[userID]; ok {
		return user, nil
	}

	return nil, users.ErrUserNotFound
}

func newTestRouter(lookup UserLookup) *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	protected := router.Group("/", AuthMiddleware(lookup))
	protected.GET("/whoami", func(c *gin.Context) {
		userID, _ := GetUserID(c)
		c.JSON(http.StatusOK, gin.H{"userId": userID})
	})
	protected.GET("/admin", AdminMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	return router
}

func testLookup() *mockLookup {
	return &mockLookup{users: map[string]*users.User{
		"user-1":  {ID: "user-1", Email: "one@example.com"},
		"admin-1": {ID: "admin-1", Email: "admin@example.com", IsAdmin: true},
	}}
}

func TestAuthMiddleware_BearerToken(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	router := newTestRouter(testLookup())

	token, err := GenerateJWT("user-1", "one@example.com", false)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "user-1", body["userId"])
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	router := newTestRouter(testLookup())

	expired, err := generateJWTAt("user-1", "one@example.com", false, time.Now().Add(-48*time.Hour))
	require.NoError(t, err)

	deleted, err := GenerateJWT("gone-user", "gone@example.com", false)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"malformed token", "Bearer not.a.jwt"},
		{"expired token", "Bearer " + expired},
		{"deleted user", "Bearer " + deleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), `"error":"unauthorized"`)
		})
	}
}

func TestAuthMiddleware_SessionCookie(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	InitializeSessions("session-secret-for-tests-0123456", false)

	router := newTestRouter(testLookup())

	token, err := GenerateJWT("user-1", "one@example.com", false)
	require.NoError(t, err)

	// issue the cookie the same way the login handler does
	issue := httptest.NewRecorder()
	require.NoError(t, SetSessionToken(issue, httptest.NewRequest(http.MethodPost, "/login", nil), token))

	cookies := issue.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-1")
}

func TestAdminMiddleware(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	router := newTestRouter(testLookup())

	userToken, err := GenerateJWT("user-1", "one@example.com", false)
	require.NoError(t, err)

	// the claim alone does not grant admin, the stored user must be an admin
	forgedAdmin, err := GenerateJWT("user-1", "one@example.com", true)
	require.NoError(t, err)

	adminToken, err := GenerateJWT("admin-1", "admin@example.com", true)
	require.NoError(t, err)

	for token, want := range map[string]int{
		userToken:   http.StatusForbidden,
		forgedAdmin: http.StatusForbidden,
		adminToken:  http.StatusNoContent,
	} {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, want, w.Code)
	}
}
