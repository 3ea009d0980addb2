package handlers

import (
	"storefinder/internal/services"

	"github.com/gofiber/fiber/v2"
)

// APIHandler serves the JSON endpoints used by the map and search box.
type APIHandler struct {
	stores *services.StoreService
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(stores *services.StoreService) *APIHandler {
	return &APIHandler{stores: stores}
}

// RegisterRoutes registers the API routes with the Fiber app.
func (h *APIHandler) RegisterRoutes(router fiber.Router) {
	api := router.Group("/api/v1")
	api.Get("/stores", h.HandleStores)
	api.Get("/stores/near", h.HandleNear)
	api.Get("/search", h.HandleSearch)
}

// HandleStores returns every store.
func (h *APIHandler) HandleStores(c *fiber.Ctx) error {
	stores, err := h.stores.ListAll(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(stores)
}

// HandleSearch returns stores matching the q parameter.
func (h *APIHandler) HandleSearch(c *fiber.Ctx) error {
	stores, err := h.stores.Search(c.UserContext(), c.Query("q"))
	if err != nil {
		return err
	}
	return c.JSON(stores)
}

// NearQuery holds the coordinates of a proximity search.
type NearQuery struct {
	Lat *float64 `query:"lat"`
	Lng *float64 `query:"lng"`
}

// HandleNear returns stores close to lat/lng.
func (h *APIHandler) HandleNear(c *fiber.Ctx) error {
	var q NearQuery
	if err := c.QueryParser(&q); err != nil || q.Lat == nil || q.Lng == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "lat and lng query parameters are required",
		})
	}

	stores, err := h.stores.Near(c.UserContext(), *q.Lat, *q.Lng)
	if err != nil {
		if services.IsValidation(err) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": err.Error(),
			})
		}
		return err
	}
	return c.JSON(stores)
}
