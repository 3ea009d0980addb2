package handlers

import (
	"errors"

	"storefinder/internal/middleware"
	"storefinder/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ReviewHandler handles HTTP requests for reviews.
type ReviewHandler struct {
	reviews *services.ReviewService
	mw      *middleware.Auth
	render  *Renderer
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(reviews *services.ReviewService, mw *middleware.Auth, render *Renderer) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, mw: mw, render: render}
}

// RegisterRoutes registers the review routes with the Fiber app.
func (h *ReviewHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/reviews/:id", h.mw.RequireAuthenticated(), h.HandleCreate)
}

// HandleCreate saves a review and returns to the store page.
func (h *ReviewHandler) HandleCreate(c *fiber.Ctx) error {
	var in services.ReviewInput
	if err := c.BodyParser(&in); err != nil {
		return h.render.RedirectBack(c, "/stores", middleware.FlashError, "Invalid request body")
	}

	user := middleware.CurrentUser(c)
	_, err := h.reviews.Create(c.UserContext(), user.ID, c.Params("id"), in)
	switch {
	case err == nil:
	case services.IsValidation(err):
		return h.render.RedirectBack(c, "/stores", middleware.FlashError, validationMessages(err)...)
	case errors.Is(err, services.ErrNotFound):
		return h.render.NotFound(c)
	default:
		return err
	}
	return h.render.RedirectBack(c, "/stores", middleware.FlashSuccess, "Review Saved!")
}
