package handlers

import (
	"errors"

	"storefinder/internal/middleware"
	"storefinder/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// AuthHandler handles HTTP requests for accounts, sessions and password resets.
type AuthHandler struct {
	authService *services.AuthService
	mw          *middleware.Auth
	render      *Renderer
	baseURL     string
	logger      logrus.FieldLogger
}

// NewAuthHandler creates a new AuthHandler. When baseURL is empty reset
// links are built from the request host.
func NewAuthHandler(authService *services.AuthService, mw *middleware.Auth, render *Renderer, baseURL string, logger logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		mw:          mw,
		render:      render,
		baseURL:     baseURL,
		logger:      logger,
	}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/login", h.HandleLoginForm)
	router.Post("/login", h.HandleLogin)
	router.Get("/register", h.HandleRegisterForm)
	router.Post("/register", h.HandleRegister)
	router.Get("/logout", h.HandleLogout)
	router.Post("/logout", h.HandleLogout)

	account := router.Group("/account")
	account.Post("/forgot", h.HandleForgot)
	account.Get("/reset/:token", h.HandleResetForm)
	account.Post("/reset/:token", h.mw.ConfirmPasswordsMatch(), h.HandleReset)

	router.Post("/api/v1/auth/token", h.HandleToken)
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// HandleLoginForm renders the login form.
func (h *AuthHandler) HandleLoginForm(c *fiber.Ctx) error {
	return h.render.Render(c, fiber.StatusOK, "login", "Login", nil)
}

// HandleRegisterForm renders the registration form.
func (h *AuthHandler) HandleRegisterForm(c *fiber.Ctx) error {
	return h.render.Render(c, fiber.StatusOK, "register", "Register", nil)
}

// HandleRegister creates the account and logs the new user in.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var in services.RegisterInput
	if err := c.BodyParser(&in); err != nil {
		return h.render.RedirectBack(c, "/register", middleware.FlashError, "Invalid request body")
	}

	user, err := h.authService.Register(c.UserContext(), in)
	switch {
	case err == nil:
	case services.IsValidation(err):
		return h.render.RedirectBack(c, "/register", middleware.FlashError, validationMessages(err)...)
	case errors.Is(err, services.ErrConflict):
		return h.render.RedirectBack(c, "/register", middleware.FlashError, "That email is already registered")
	default:
		return err
	}

	return h.startSession(c, user.ID, "Welcome! You are now registered and logged in.")
}

// HandleLogin checks credentials and starts a session.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return h.render.Redirect(c, "/login", middleware.FlashError, "Failed Login")
	}

	user, err := h.authService.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			h.logger.WithField("email", req.Email).Info("failed login")
			return h.render.Redirect(c, "/login", middleware.FlashError, "Failed Login")
		}
		return err
	}
	return h.startSession(c, user.ID, "You are now logged in!")
}

func (h *AuthHandler) startSession(c *fiber.Ctx, userID, notice string) error {
	sess, err := h.mw.Session(c)
	if err != nil {
		return err
	}
	if err := middleware.Login(sess, userID); err != nil {
		return err
	}
	middleware.AddFlash(sess, middleware.FlashSuccess, notice)
	if err := sess.Save(); err != nil {
		return err
	}
	return c.Redirect("/")
}

// HandleLogout ends the session.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	sess, err := h.mw.Session(c)
	if err != nil {
		return err
	}
	if err := middleware.Logout(sess); err != nil {
		return err
	}
	middleware.AddFlash(sess, middleware.FlashSuccess, "You are now logged out")
	if err := sess.Save(); err != nil {
		return err
	}
	return c.Redirect("/")
}

// HandleForgot issues a password reset token and mails the link.
func (h *AuthHandler) HandleForgot(c *fiber.Ctx) error {
	baseURL := h.baseURL
	if baseURL == "" {
		baseURL = c.BaseURL()
	}

	err := h.authService.ForgotPassword(c.UserContext(), c.FormValue("email"), baseURL)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return h.render.Redirect(c, "/login", middleware.FlashError, "No account with that email exists")
		}
		return err
	}
	return h.render.Redirect(c, "/login", middleware.FlashSuccess, "You have been emailed a password reset link.")
}

// HandleResetForm shows the reset form while the token is valid.
func (h *AuthHandler) HandleResetForm(c *fiber.Ctx) error {
	if _, err := h.authService.ValidateResetToken(c.UserContext(), c.Params("token")); err != nil {
		if errors.Is(err, services.ErrInvalidResetToken) {
			return h.render.Redirect(c, "/login", middleware.FlashError, "Password reset token is invalid or has expired")
		}
		return err
	}
	return h.render.Render(c, fiber.StatusOK, "reset", "Reset your Password", nil)
}

// HandleReset sets the new password and logs the user in.
func (h *AuthHandler) HandleReset(c *fiber.Ctx) error {
	user, err := h.authService.ResetPassword(c.UserContext(), c.Params("token"), c.FormValue("password"))
	switch {
	case err == nil:
	case errors.Is(err, services.ErrInvalidResetToken):
		return h.render.Redirect(c, "/login", middleware.FlashError, "Password reset token is invalid or has expired")
	case services.IsValidation(err):
		return h.render.RedirectBack(c, "/login", middleware.FlashError, validationMessages(err)...)
	default:
		return err
	}
	return h.startSession(c, user.ID, "Nice! Your password has been reset! You are now logged in!")
}

// HandleToken issues a JWT for API clients.
func (h *AuthHandler) HandleToken(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	token, err := h.authService.IssueToken(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authentication failed",
			})
		}
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
	})
}
