package handlers

import (
	"errors"

	"storefinder/internal/middleware"
	"storefinder/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// Renderer produces view documents for the template layer and issues
// redirects that carry flash notices.
type Renderer struct {
	auth   *middleware.Auth
	logger logrus.FieldLogger
}

// NewRenderer creates a new Renderer.
func NewRenderer(auth *middleware.Auth, logger logrus.FieldLogger) *Renderer {
	return &Renderer{auth: auth, logger: logger}
}

// Render writes the named view with the pending flashes and current user.
func (r *Renderer) Render(c *fiber.Ctx, status int, view, title string, data fiber.Map) error {
	sess, err := r.auth.Session(c)
	if err != nil {
		return err
	}
	flashes := middleware.PopFlashes(sess)
	if len(flashes) > 0 {
		if err := sess.Save(); err != nil {
			return err
		}
	}

	body := fiber.Map{
		"view":    view,
		"title":   title,
		"flashes": flashes,
		"user":    middleware.CurrentUser(c),
	}
	for k, v := range data {
		body[k] = v
	}
	return c.Status(status).JSON(body)
}

// Redirect queues a notice and redirects to location.
func (r *Renderer) Redirect(c *fiber.Ctx, location, kind, msg string) error {
	if err := r.auth.Flash(c, kind, msg); err != nil {
		return err
	}
	return c.Redirect(location)
}

// RedirectBack queues one notice per message and returns to the referring page.
func (r *Renderer) RedirectBack(c *fiber.Ctx, fallback, kind string, msgs ...string) error {
	sess, err := r.auth.Session(c)
	if err != nil {
		return err
	}
	for _, msg := range msgs {
		middleware.AddFlash(sess, kind, msg)
	}
	if err := sess.Save(); err != nil {
		return err
	}
	return c.RedirectBack(fallback)
}

// NotFound renders the 404 view.
func (r *Renderer) NotFound(c *fiber.Ctx) error {
	return r.Render(c, fiber.StatusNotFound, "notFound", "Not Found", nil)
}

// validationMessages flattens a ValidationError for flashing.
func validationMessages(err error) []string {
	var ve *services.ValidationError
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}
	msgs := make([]string, 0, len(ve.Fields))
	for _, msg := range ve.Fields {
		msgs = append(msgs, msg)
	}
	return msgs
}

// ErrorHandler is the fallback for errors no handler dealt with.
func ErrorHandler(logger logrus.FieldLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}
		if code >= fiber.StatusInternalServerError {
			logger.WithError(err).WithFields(logrus.Fields{
				"method": c.Method(),
				"path":   c.Path(),
			}).Error("request failed")
		}
		message := "Something went wrong"
		if code < fiber.StatusInternalServerError {
			message = err.Error()
		}
		return c.Status(code).JSON(fiber.Map{
			"view":    "error",
			"title":   "Error",
			"message": message,
		})
	}
}
