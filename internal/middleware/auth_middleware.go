package middleware

import (
	"errors"
	"strings"

	"storefinder/internal/models"
	"storefinder/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/sirupsen/logrus"
)

const (
	userIDKey  = "user_id"
	localsUser = "user"
)

// Auth ties sessions and bearer tokens to the current user.
type Auth struct {
	sessions *session.Store
	auth     *services.AuthService
	logger   logrus.FieldLogger
}

// NewAuth creates the authentication middleware set.
func NewAuth(sessions *session.Store, auth *services.AuthService, logger logrus.FieldLogger) *Auth {
	return &Auth{sessions: sessions, auth: auth, logger: logger}
}

// Session returns the request's session. Save it after changing it.
func (a *Auth) Session(c *fiber.Ctx) (*session.Session, error) {
	return a.sessions.Get(c)
}

// Login binds userID to a fresh session id.
func Login(sess *session.Session, userID string) error {
	if err := sess.Regenerate(); err != nil {
		return err
	}
	sess.Set(userIDKey, userID)
	return nil
}

// Logout forgets the user but keeps the session for the goodbye notice.
func Logout(sess *session.Session) error {
	sess.Delete(userIDKey)
	return sess.Regenerate()
}

// Flash saves a single notice in the request's session.
func (a *Auth) Flash(c *fiber.Ctx, kind, msg string) error {
	sess, err := a.Session(c)
	if err != nil {
		return err
	}
	AddFlash(sess, kind, msg)
	return sess.Save()
}

// LoadUser resolves the current user from the session or a bearer token
// and stores it in the request locals. Anonymous requests pass through.
func (a *Auth) LoadUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := a.bearerUserID(c)
		if userID == "" {
			sess, err := a.Session(c)
			if err != nil {
				return err
			}
			userID, _ = sess.Get(userIDKey).(string)
		}
		if userID == "" {
			return c.Next()
		}

		user, err := a.auth.UserByID(c.UserContext(), userID)
		switch {
		case err == nil:
			c.Locals(localsUser, user)
		case errors.Is(err, services.ErrNotFound):
			a.logger.WithField("user_id", userID).Warn("session refers to unknown user")
		default:
			return err
		}
		return c.Next()
	}
}

func (a *Auth) bearerUserID(c *fiber.Ctx) string {
	authHeader := c.Get(fiber.HeaderAuthorization)
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	claims, err := a.auth.ValidateToken(parts[1])
	if err != nil {
		a.logger.WithError(err).Debug("JWT validation failed")
		return ""
	}
	id, _ := claims["user_id"].(string)
	return id
}

// RequireAuthenticated lets the request through only for a logged in user.
// Browsers are sent home with a notice; API clients get a 401.
func (a *Auth) RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if CurrentUser(c) != nil {
			return c.Next()
		}
		if strings.HasPrefix(c.Path(), "/api/") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authentication required",
			})
		}
		if err := a.Flash(c, FlashError, "You must be logged in to do that"); err != nil {
			return err
		}
		return c.Redirect("/")
	}
}

// ConfirmPasswordsMatch stops the chain when the password confirmation differs.
func (a *Auth) ConfirmPasswordsMatch() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if services.PasswordsMatch(c.FormValue("password"), c.FormValue("password-confirm")) {
			return c.Next()
		}
		if err := a.Flash(c, FlashError, "Passwords do not match"); err != nil {
			return err
		}
		return c.RedirectBack("/login")
	}
}

// CurrentUser returns the logged in user, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(localsUser).(*models.User)
	return user
}
