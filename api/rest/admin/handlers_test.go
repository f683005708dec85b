package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/restage/server/internal/auth"
	"codeberg.org/restage/server/restage/credits"
	"codeberg.org/restage/server/restage/users"
)

const (
	adminID = "6f1c2a9e-8d4b-4c1e-9f3a-2b7d5e8c1a40"
	userID  = "0b3e7c55-1f2a-4d6b-8e9c-7a1d2f3b4c5d"
)

type lookup map[string]*users.User

func (l lookup) FindByID(_ context.Context, id string) (*users.User, error) {
	if u, ok := l[id]; ok {
		return u, nil
	}

	return nil, users.ErrUserNotFound
}

func setup(t *testing.T) (*gin.Engine, *credits.MemoryLedger) {
	t.Helper()
	t.Setenv("JWT_SECRET", "admin-test-secret")
	gin.SetMode(gin.TestMode)

	ledger := credits.NewMemoryLedger()
	ledger.SetBalance(adminID, 0)
	ledger.SetBalance(userID, 2)

	router := gin.New()
	RegisterRoutes(router.Group("/api"), ledger, auth.AuthMiddleware(lookup{
		adminID: {ID: adminID, IsAdmin: true},
		userID:  {ID: userID},
	}))

	return router, ledger
}

func request(t *testing.T, router http.Handler, callerID string, body string) *httptest.ResponseRecorder {
	t.Helper()

	token, err := auth.GenerateJWT(callerID, "x@example.com", false)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/add-credits", bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func TestAddCredits_DefaultsToSelfAndTen(t *testing.T) {
	router, ledger := setup(t)

	w := request(t, router, adminID, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp AddCreditsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, adminID, resp.UserID)
	assert.Equal(t, 10, resp.Credits)

	history, err := ledger.History(context.Background(), adminID, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, credits.OperationGrant, history[0].OperationType)
	assert.Equal(t, -10, history[0].CreditsUsed)
}

func TestAddCredits_ToOtherUser(t *testing.T) {
	router, _ := setup(t)

	w := request(t, router, adminID, `{"userId":"`+userID+`","amount":5}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"credits":7`)
}

func TestAddCredits_RequiresAdmin(t *testing.T) {
	router, ledger := setup(t)

	w := request(t, router, userID, `{"amount":100}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	balance, err := ledger.Balance(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 2, balance)
}

func TestAddCredits_Errors(t *testing.T) {
	router, _ := setup(t)

	w := request(t, router, adminID, `{"userId":"a1b2c3d4-0000-4000-8000-000000000000"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = request(t, router, adminID, `{"amount":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = request(t, router, adminID, `{"userId":"not-a-uuid"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
