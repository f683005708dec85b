package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/markbates/goth/gothic"

	"codeberg.org/restage/server/internal/auth"
	"codeberg.org/restage/server/internal/email"
	"codeberg.org/restage/server/internal/errors"
	"codeberg.org/restage/server/internal/logger"
	"codeberg.org/restage/server/restage/users"
)

// RegisterHandler godoc
// @Summary Register
// @Description Create an email/password account with the signup credit balance and send a verification code
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Account details"
// @Success 201 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /api/auth/register [post]
func RegisterHandler(store UserStore, mailer email.Sender, opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest

		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			errors.BadRequest(c, "invalid password", err)
			return
		}

		code, err := generateVerificationCode()
		if err != nil {
			errors.InternalError(c, "failed to create account", err)
			return
		}

		user, err := store.Create(c.Request.Context(), users.CreateUserRequest{
			Email:                 normalizeEmail(req.Email),
			PasswordHash:          hash,
			Name:                  req.Name,
			Credits:               opts.SignupCredits,
			VerificationCode:      code,
			VerificationExpiresAt: time.Now().Add(verificationTTL),
		})

		if err != nil {
			if errors.Is(err, users.ErrEmailTaken) {
				errors.Conflict(c, "email already registered")
				return
			}

			errors.InternalError(c, "failed to create account", err)
			return
		}

		// a failed email does not undo the signup
		subject, body := email.VerificationEmail(user.Name, code)
		if err := mailer.Send(c.Request.Context(), user.Email, subject, body); err != nil {
			logger.ErrorCtx(c.Request.Context(), err, "failed to send verification email", "user_id", user.ID)
		}

		token, err := issueToken(c, user)
		if err != nil {
			errors.InternalError(c, "failed to generate token", err)
			return
		}

		logger.FromContext(c.Request.Context()).Info("user registered",
			"user_id", user.ID,
			"credits", user.Credits,
		)

		c.JSON(http.StatusCreated, AuthResponse{User: user, Token: token})
	}
}

// LoginHandler godoc
// @Summary Login
// @Description Exchange email and password for a JWT; the token is also stored in the session cookie
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /api/auth/login [post]
func LoginHandler(store UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest

		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		user, err := store.FindByEmail(c.Request.Context(), normalizeEmail(req.Email))
		if err != nil && !errors.Is(err, users.ErrUserNotFound) {
			errors.InternalError(c, "failed to log in", err)
			return
		}

		// OAuth-only accounts have no hash and never match
		if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
			errors.Unauthorized(c, "invalid email or password")
			return
		}

		token, err := issueToken(c, user)
		if err != nil {
			errors.InternalError(c, "failed to generate token", err)
			return
		}

		c.JSON(http.StatusOK, AuthResponse{User: user, Token: token})
	}
}

// LogoutHandler godoc
// @Summary Logout
// @Description Clear the session cookie and any OAuth session
// @Tags auth
// @Produce json
// @Success 200 {object} MessageResponse
// @Router /api/auth/logout [post]
func LogoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := auth.ClearSession(c.Writer, c.Request); err != nil {
			logger.ErrorErr(err, "failed to clear session")
		}

		if gothic.Store != nil {
			if err := gothic.Logout(c.Writer, c.Request); err != nil {
				logger.ErrorErr(err, "failed to logout user from gothic session")
			}
		}

		c.JSON(http.StatusOK, MessageResponse{Message: "logged out successfully"})
	}
}

// GetCurrentUserHandler godoc
// @Summary Get current user
// @Description Get the authenticated user's profile and credit balance
// @Tags auth
// @Produce json
// @Success 200 {object} UserResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /api/auth/me [get]
// @Security BearerAuth
func GetCurrentUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, exists := auth.GetUser(c)
		if !exists {
			errors.Unauthorized(c, "")
			return
		}

		c.JSON(http.StatusOK, UserResponse{User: user})
	}
}

// VerifyEmailHandler godoc
// @Summary Verify email
// @Description Confirm the authenticated user's email with the emailed six digit code
// @Tags auth
// @Accept json
// @Produce json
// @Param request body VerifyEmailRequest true "Verification code"
// @Success 200 {object} UserResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /api/auth/verify [post]
// @Security BearerAuth
func VerifyEmailHandler(store UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := auth.GetUserID(c)
		if !exists {
			errors.Unauthorized(c, "")
			return
		}

		var req VerifyEmailRequest

		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		user, err := store.VerifyEmail(c.Request.Context(), userID, req.Code)
		if err != nil {
			if errors.Is(err, users.ErrInvalidVerificationCode) {
				errors.BadRequest(c, "invalid or expired verification code", nil)
				return
			}

			errors.InternalError(c, "failed to verify email", err)
			return
		}

		c.JSON(http.StatusOK, UserResponse{User: user})
	}
}

// ResendVerificationHandler godoc
// @Summary Resend verification code
// @Description Issue a new verification code to the authenticated user's email
// @Tags auth
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /api/auth/verify/resend [post]
// @Security BearerAuth
func ResendVerificationHandler(store UserStore, mailer email.Sender) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, exists := auth.GetUser(c)
		if !exists {
			errors.Unauthorized(c, "")
			return
		}

		if user.EmailVerified {
			errors.BadRequest(c, "email already verified", nil)
			return
		}

		code, err := generateVerificationCode()
		if err != nil {
			errors.InternalError(c, "failed to create verification code", err)
			return
		}

		if err := store.SetVerificationCode(c.Request.Context(), user.ID, code, time.Now().Add(verificationTTL)); err != nil {
			errors.InternalError(c, "failed to create verification code", err)
			return
		}

		subject, body := email.VerificationEmail(user.Name, code)
		if err := mailer.Send(c.Request.Context(), user.Email, subject, body); err != nil {
			errors.InternalError(c, "failed to send verification email", err)
			return
		}

		c.JSON(http.StatusOK, MessageResponse{Message: "verification code sent"})
	}
}

// BeginAuthHandler godoc
// @Summary Start OAuth authentication
// @Description Begin OAuth authentication flow with specified provider
// @Tags auth
// @Param provider path string true "OAuth provider" Enums(google, github)
// @Success 302 {string} string "Redirect to OAuth provider"
// @Failure 400 {object} errors.ErrorResponse
// @Router /api/auth/{provider} [get]
func BeginAuthHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		provider := c.Param("provider")

		if !isValidProvider(opts.Providers, provider) {
			errors.BadRequest(c, "invalid provider", nil)
			return
		}

		withProvider(c, provider)
		gothic.BeginAuthHandler(c.Writer, c.Request)
	}
}

// CallbackHandler godoc
// @Summary OAuth callback
// @Description OAuth provider callback. Returns user data and JWT token
// @Tags auth
// @Produce json
// @Param provider path string true "OAuth provider" Enums(google, github)
// @Success 200 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /api/auth/{provider}/callback [get]
func CallbackHandler(store UserStore, opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		provider := c.Param("provider")

		if !isValidProvider(opts.Providers, provider) {
			errors.BadRequest(c, "invalid provider", nil)
			return
		}

		withProvider(c, provider)

		gothUser, err := gothic.CompleteUserAuth(c.Writer, c.Request)
		if err != nil {
			errors.InternalError(c, "authentication failed", err)
			return
		}

		if gothUser.Email == "" {
			errors.BadRequest(c, "provider did not return an email address", nil)
			return
		}

		user, err := store.FindOrCreateByProvider(
			c.Request.Context(),
			gothUser.Provider,
			gothUser.UserID,
			normalizeEmail(gothUser.Email),
			gothUser.Name,
			opts.SignupCredits,
		)

		if err != nil {
			if errors.Is(err, users.ErrEmailTaken) {
				errors.Conflict(c, "email already registered with another login method")
				return
			}

			errors.InternalError(c, "failed to create user", err)
			return
		}

		token, err := issueToken(c, user)
		if err != nil {
			errors.InternalError(c, "failed to generate token", err)
			return
		}

		c.JSON(http.StatusOK, AuthResponse{User: user, Token: token})
	}
}
