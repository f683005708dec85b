package designs

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/restage/server/internal/auth"
	"codeberg.org/restage/server/internal/designer"
	apierrors "codeberg.org/restage/server/internal/errors"
	"codeberg.org/restage/server/internal/outbox"
	"codeberg.org/restage/server/internal/replicate"
	"codeberg.org/restage/server/restage/credits"
	"codeberg.org/restage/server/restage/users"
)

const testSecret = "designs-test-secret"

var jpegImage = base64.StdEncoding.EncodeToString([]byte{0xff, 0xd8, 0xff, 0xe0, 0, 0x10, 'J', 'F', 'I', 'F', 0})

type staticLookup struct{}

func (staticLookup) FindByID(_ context.Context, userID string) (*users.User, error) {
	if userID != "user-1" {
		return nil, users.ErrUserNotFound
	}

	return &users.User{ID: "user-1", Email: "one@example.com"}, nil
}

// counts calls and records the last input
type countingInference struct {
	calls     atomic.Int32
	lastInput map[string]any
}

func (c *countingInference) Run(_ context.Context, _ string, input map[string]any) ([]string, error) {
	c.calls.Add(1)
	c.lastInput = input
	return []string{"https://cdn.example/result.png"}, nil
}

func newRouter(svc Designer) *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	RegisterRoutes(router.Group("/api"), svc, auth.AuthMiddleware(staticLookup{}))

	return router
}

func newService(inference designer.Inference, balance int) (*designer.Service, *credits.MemoryLedger) {
	ledger := credits.NewMemoryLedger()
	ledger.SetBalance("user-1", balance)

	return designer.New(inference, ledger, outbox.NewMemoryQueue(), nil, designer.Config{
		UnstageModel:  "test/unstage",
		GenerateModel: "test/generate",
		InpaintModel:  "test/inpaint",
	}), ledger
}

func post(t *testing.T, router http.Handler, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func validToken(t *testing.T) string {
	t.Helper()

	token, err := auth.GenerateJWT("user-1", "one@example.com", false)
	require.NoError(t, err)

	return token
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apierrors.ErrorResponse {
	t.Helper()

	var resp apierrors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	return resp
}

func TestUnstage_NormalizesBareBase64(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	inference := &countingInference{}
	svc, ledger := newService(inference, 3)
	router := newRouter(svc)

	w := post(t, router, "/api/unstage", validToken(t), UnstageRequest{Image: jpegImage})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp UnstageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "https://cdn.example/result.png", resp.EmptyRoomURL)
	assert.Equal(t, "data:image/jpeg;base64,"+jpegImage, inference.lastInput["image"])

	balance, err := ledger.Balance(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, balance)
}

func TestInpaint_PrefixedImagePassesThrough(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	inference := &countingInference{}
	svc, _ := newService(inference, 3)
	router := newRouter(svc)

	prefixed := "data:image/png;base64," + jpegImage

	w := post(t, router, "/api/inpaint", validToken(t), InpaintRequest{Image: prefixed, Mask: prefixed, Prompt: "add a plant"})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, prefixed, inference.lastInput["image"])
	assert.Contains(t, w.Body.String(), `"inpaintedImage":"https://cdn.example/result.png"`)
}

func TestPaidEndpoints_ExpiredTokenRejectedBeforeLedger(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	inference := &countingInference{}
	svc, ledger := newService(inference, 10)
	router := newRouter(svc)

	issued := time.Now().Add(-25 * time.Hour)
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		UserID: "user-1",
		Email:  "one@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(auth.TokenTTL)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	bodies := map[string]any{
		"/api/unstage":  UnstageRequest{Image: jpegImage},
		"/api/generate": GenerateRequest{Image: jpegImage, Style: "modern"},
		"/api/inpaint":  InpaintRequest{Image: jpegImage, Mask: jpegImage, Prompt: "x"},
	}

	for path, body := range bodies {
		w := post(t, router, path, expired, body)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	assert.Zero(t, inference.calls.Load())

	balance, err := ledger.Balance(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 10, balance)

	history, err := ledger.History(context.Background(), "user-1", 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestGenerate_InsufficientCredits(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	inference := &countingInference{}
	svc, _ := newService(inference, 0)
	router := newRouter(svc)

	w := post(t, router, "/api/generate", validToken(t), GenerateRequest{Image: jpegImage, Style: "modern"})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, apierrors.CodeInsufficientCredits, decodeError(t, w).Error)
	assert.Zero(t, inference.calls.Load())
}

func TestGenerate_ValidationErrors(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	svc, _ := newService(&countingInference{}, 5)
	router := newRouter(svc)

	w := post(t, router, "/api/generate", validToken(t), map[string]string{"image": jpegImage})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(t, router, "/api/unstage", validToken(t), UnstageRequest{Image: "%%%"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid image data", decodeError(t, w).Message)
}

// fake Replicate API whose predictions fail after two polls
func newFailingReplicate(t *testing.T, message string) *httptest.Server {
	var polls atomic.Int32

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := "starting"
		var errMsg any

		if r.Method == http.MethodGet && polls.Add(1) >= 2 {
			status = "failed"
			errMsg = message
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "p1",
			"status": status,
			"error":  errMsg,
			"urls": map[string]string{
				"get":    server.URL + "/v1/predictions/p1",
				"cancel": server.URL + "/v1/predictions/p1/cancel",
			},
		})
	}))
	t.Cleanup(server.Close)

	return server
}

func TestInpaint_RemoteFailureReturns500WithMessage(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	server := newFailingReplicate(t, "NSFW content detected")
	client := replicate.NewClient(replicate.Config{
		APIToken:          "r8_test",
		BaseURL:           server.URL + "/v1",
		PollInterval:      5 * time.Millisecond,
		MaxWait:           2 * time.Second,
		RequestsPerSecond: 1000,
		Burst:             100,
	})

	svc, ledger := newService(client, 10)
	router := newRouter(svc)

	w := post(t, router, "/api/inpaint", validToken(t), InpaintRequest{Image: jpegImage, Mask: jpegImage, Prompt: "remove the chair"})

	require.Equal(t, http.StatusInternalServerError, w.Code)

	resp := decodeError(t, w)
	assert.Equal(t, apierrors.CodeRemoteServiceError, resp.Error)
	assert.True(t, strings.Contains(resp.Message, "NSFW content detected"), resp.Message)

	balance, err := ledger.Balance(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 10, balance)

	history, err := ledger.History(context.Background(), "user-1", 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRespondOperationError_Timeout(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/generate", nil)

	respondOperationError(c, replicate.ErrTimeout)

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, apierrors.CodeTimeout, decodeError(t, w).Error)
}
