package credits

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"codeberg.org/restage/server/internal/auth"
	"codeberg.org/restage/server/internal/errors"
	"codeberg.org/restage/server/restage/credits"
)

// GetBalanceHandler godoc
// @Summary Get credit balance
// @Description Returns the authenticated user's remaining credits
// @Tags credits
// @Produce json
// @Success 200 {object} BalanceResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /api/credits/balance [get]
// @Security BearerAuth
func GetBalanceHandler(ledger credits.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := auth.GetUserID(c)
		if !exists {
			errors.Unauthorized(c, "")
			return
		}

		balance, err := ledger.Balance(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, credits.ErrUserNotFound) {
				errors.Unauthorized(c, "user no longer exists")
				return
			}

			errors.InternalError(c, "failed to get balance", err)
			return
		}

		c.JSON(http.StatusOK, BalanceResponse{Credits: balance})
	}
}

// GetHistoryHandler godoc
// @Summary List credit history
// @Description Returns ledger entries, most recent first
// @Tags credits
// @Produce json
// @Param limit query int false "Max entries (default 50, max 200)"
// @Success 200 {object} HistoryResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /api/credits/history [get]
// @Security BearerAuth
func GetHistoryHandler(ledger credits.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := auth.GetUserID(c)
		if !exists {
			errors.Unauthorized(c, "")
			return
		}

		var params HistoryParams
		if err := c.ShouldBindQuery(&params); err != nil {
			errors.ValidationError(c, err)
			return
		}

		history, err := ledger.History(c.Request.Context(), userID, params.Limit)
		if err != nil {
			if errors.Is(err, credits.ErrUserNotFound) {
				errors.Unauthorized(c, "user no longer exists")
				return
			}

			errors.InternalError(c, "failed to get credit history", err)
			return
		}

		c.JSON(http.StatusOK, HistoryResponse{History: history})
	}
}
