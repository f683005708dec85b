package designs

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"codeberg.org/restage/server/internal/auth"
	"codeberg.org/restage/server/internal/designer"
	"codeberg.org/restage/server/internal/errors"
	"codeberg.org/restage/server/internal/logger"
	"codeberg.org/restage/server/internal/replicate"
	"codeberg.org/restage/server/restage/credits"
)

// nginx convention for a client that went away before the response
const statusClientClosedRequest = 499

// UnstageHandler godoc
// @Summary Remove furniture from a room photo
// @Description Runs the unstage model and charges one credit on success
// @Tags designs
// @Accept json
// @Produce json
// @Param request body UnstageRequest true "Room photo"
// @Success 200 {object} UnstageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Failure 504 {object} errors.ErrorResponse
// @Router /api/unstage [post]
// @Security BearerAuth
func UnstageHandler(svc Designer) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := auth.GetUserID(c)
		if !exists {
			errors.Unauthorized(c, "")
			return
		}

		var req UnstageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		emptyRoom, err := svc.Unstage(c.Request.Context(), userID, req.Image)
		if err != nil {
			respondOperationError(c, err)
			return
		}

		c.JSON(http.StatusOK, UnstageResponse{EmptyRoomURL: emptyRoom})
	}
}

// GenerateHandler godoc
// @Summary Redesign a room
// @Description Unstages the photo, then renders it in the requested style. Charges one credit.
// @Tags designs
// @Accept json
// @Produce json
// @Param request body GenerateRequest true "Room photo and style options"
// @Success 200 {object} GenerateResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Failure 504 {object} errors.ErrorResponse
// @Router /api/generate [post]
// @Security BearerAuth
func GenerateHandler(svc Designer) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := auth.GetUserID(c)
		if !exists {
			errors.Unauthorized(c, "")
			return
		}

		var req GenerateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		designs, err := svc.Generate(c.Request.Context(), designer.GenerateRequest{
			UserID:     userID,
			Image:      req.Image,
			Style:      req.Style,
			RoomType:   req.RoomType,
			ColorTheme: req.ColorTheme,
			Prompt:     req.Prompt,
		})
		if err != nil {
			respondOperationError(c, err)
			return
		}

		c.JSON(http.StatusOK, GenerateResponse{Designs: designs})
	}
}

// InpaintHandler godoc
// @Summary Edit a masked area of an image
// @Description Repaints the white area of the mask following the prompt. Charges one credit.
// @Tags designs
// @Accept json
// @Produce json
// @Param request body InpaintRequest true "Image, mask and prompt"
// @Success 200 {object} InpaintResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Failure 504 {object} errors.ErrorResponse
// @Router /api/inpaint [post]
// @Security BearerAuth
func InpaintHandler(svc Designer) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := auth.GetUserID(c)
		if !exists {
			errors.Unauthorized(c, "")
			return
		}

		var req InpaintRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		inpainted, err := svc.Inpaint(c.Request.Context(), designer.InpaintRequest{
			UserID: userID,
			Image:  req.Image,
			Mask:   req.Mask,
			Prompt: req.Prompt,
		})
		if err != nil {
			respondOperationError(c, err)
			return
		}

		c.JSON(http.StatusOK, InpaintResponse{InpaintedImage: inpainted})
	}
}

// maps orchestrator failures onto the HTTP error taxonomy
func respondOperationError(c *gin.Context, err error) {
	var (
		predictionErr *replicate.PredictionError
		apiErr        *replicate.APIError
	)

	switch {
	case errors.Is(err, designer.ErrInvalidImage):
		errors.BadRequest(c, "invalid image data", err)

	case errors.Is(err, credits.ErrInsufficientCredits):
		errors.InsufficientCredits(c)

	case errors.Is(err, credits.ErrUserNotFound):
		errors.Unauthorized(c, "user no longer exists")

	case errors.Is(err, replicate.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		errors.Timeout(c, "image generation timed out")

	case errors.Is(err, context.Canceled):
		logger.FromContext(c.Request.Context()).Info("client disconnected during operation", "path", c.Request.URL.Path)
		c.AbortWithStatus(statusClientClosedRequest)

	case errors.As(err, &predictionErr), errors.As(err, &apiErr), errors.Is(err, replicate.ErrEmptyOutput):
		errors.RemoteServiceError(c, err)

	default:
		errors.InternalError(c, "operation failed", err)
	}
}
