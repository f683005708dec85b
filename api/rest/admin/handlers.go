package admin

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"codeberg.org/restage/server/internal/auth"
	"codeberg.org/restage/server/internal/errors"
	"codeberg.org/restage/server/internal/logger"
	"codeberg.org/restage/server/restage/credits"
)

// AddCreditsHandler godoc
// @Summary Grant credits
// @Description Admin-only endpoint that adds credits to a user (defaults: caller, 10 credits)
// @Tags admin
// @Accept json
// @Produce json
// @Param request body AddCreditsRequest false "Target user and amount"
// @Success 200 {object} AddCreditsResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /api/admin/add-credits [post]
// @Security BearerAuth
func AddCreditsHandler(ledger credits.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminID, exists := auth.GetUserID(c)
		if !exists {
			errors.Unauthorized(c, "")
			return
		}

		// the body is optional
		var req AddCreditsRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			errors.ValidationError(c, err)
			return
		}

		targetID := req.UserID
		if targetID == "" {
			targetID = adminID
		}

		if !errors.ValidateUUID(c, targetID, "user") {
			return
		}

		amount := defaultGrantAmount
		if req.Amount != nil {
			amount = *req.Amount
		}

		description := req.Description
		if description == "" {
			description = fmt.Sprintf("admin grant of %d credits", amount)
		}

		balance, err := ledger.Grant(c.Request.Context(), targetID, amount, description)
		if err != nil {
			if errors.Is(err, credits.ErrUserNotFound) {
				errors.NotFound(c, "user")
				return
			}

			errors.InternalError(c, "failed to add credits", err)
			return
		}

		logger.FromContext(c.Request.Context()).Info("credits granted",
			"admin_id", adminID,
			"target_user_id", targetID,
			"amount", amount,
		)

		c.JSON(http.StatusOK, AddCreditsResponse{UserID: targetID, Credits: balance})
	}
}
