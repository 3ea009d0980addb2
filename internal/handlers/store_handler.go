package handlers

import (
	"errors"
	"fmt"
	"html"
	"io"
	"mime/multipart"
	"net/url"

	"storefinder/internal/middleware"
	"storefinder/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// StoreHandler handles HTTP requests for store listings.
type StoreHandler struct {
	stores *services.StoreService
	photos *services.PhotoService
	mw     *middleware.Auth
	render *Renderer
	logger logrus.FieldLogger
}

// NewStoreHandler creates a new StoreHandler.
func NewStoreHandler(stores *services.StoreService, photos *services.PhotoService, mw *middleware.Auth, render *Renderer, logger logrus.FieldLogger) *StoreHandler {
	return &StoreHandler{
		stores: stores,
		photos: photos,
		mw:     mw,
		render: render,
		logger: logger,
	}
}

// RegisterRoutes registers the store routes with the Fiber app.
func (h *StoreHandler) RegisterRoutes(router fiber.Router) {
	auth := h.mw.RequireAuthenticated()

	router.Get("/", h.HandleHome)
	router.Get("/stores", h.HandleList)
	router.Get("/stores/:id/edit", auth, h.HandleEditForm)
	router.Get("/store/:slug", h.HandleDetail)
	router.Get("/add", auth, h.HandleAddForm)
	router.Post("/add", auth, h.HandleCreate)
	router.Post("/add/:id", auth, h.HandleUpdate)
	router.Get("/tags", h.HandleTags)
	router.Get("/tags/:tag", h.HandleTags)
	router.Get("/top", h.HandleTop)
	router.Get("/uploads/:name", h.HandlePhoto)
}

// HandleHome renders the landing page with the store list.
func (h *StoreHandler) HandleHome(c *fiber.Ctx) error {
	stores, err := h.stores.ListAll(c.UserContext())
	if err != nil {
		return err
	}
	return h.render.Render(c, fiber.StatusOK, "index", "Home", fiber.Map{"stores": stores})
}

// HandleList renders every store.
func (h *StoreHandler) HandleList(c *fiber.Ctx) error {
	stores, err := h.stores.ListAll(c.UserContext())
	if err != nil {
		return err
	}
	return h.render.Render(c, fiber.StatusOK, "stores", "Stores", fiber.Map{"stores": stores})
}

// HandleDetail renders a store with its reviews.
func (h *StoreHandler) HandleDetail(c *fiber.Ctx) error {
	detail, err := h.stores.Detail(c.UserContext(), c.Params("slug"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return h.render.NotFound(c)
		}
		return err
	}
	return h.render.Render(c, fiber.StatusOK, "store", detail.Name, fiber.Map{"store": detail})
}

// HandleAddForm renders an empty store form.
func (h *StoreHandler) HandleAddForm(c *fiber.Ctx) error {
	return h.render.Render(c, fiber.StatusOK, "editStore", "Add Store", fiber.Map{
		"suggested_tags": services.SuggestedTags,
	})
}

// HandleEditForm renders the form for a store the user owns.
func (h *StoreHandler) HandleEditForm(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	store, err := h.stores.GetForEdit(c.UserContext(), user.ID, c.Params("id"))
	if err != nil {
		return h.storeError(c, err, "/stores")
	}
	return h.render.Render(c, fiber.StatusOK, "editStore", fmt.Sprintf("Edit %s", store.Name), fiber.Map{
		"store":          store,
		"suggested_tags": services.SuggestedTags,
	})
}

// HandleCreate runs upload, validation, resize and create. The photo is
// written only once the listing itself is known to be valid.
func (h *StoreHandler) HandleCreate(c *fiber.Ctx) error {
	ctx := c.UserContext()
	user := middleware.CurrentUser(c)

	in, file, err := h.parseInput(c)
	if err == nil {
		err = h.stores.Validate(user.ID, in)
	}
	if err == nil {
		in.Photo, err = h.photos.Store(ctx, file)
	}
	if err != nil {
		return h.storeError(c, err, "/add")
	}

	store, err := h.stores.Create(ctx, user.ID, in)
	if err != nil {
		h.photos.Discard(ctx, in.Photo)
		return h.storeError(c, err, "/add")
	}
	return h.render.Redirect(c, "/store/"+store.Slug, middleware.FlashSuccess,
		fmt.Sprintf("Successfully created %s. Care to leave a review?", html.EscapeString(store.Name)))
}

// HandleUpdate checks ownership and the form before the photo is written,
// then updates and returns to the edit form.
func (h *StoreHandler) HandleUpdate(c *fiber.Ctx) error {
	ctx := c.UserContext()
	user := middleware.CurrentUser(c)
	id := c.Params("id")
	editURL := fmt.Sprintf("/stores/%s/edit", id)

	in, file, err := h.parseInput(c)
	if err == nil {
		_, err = h.stores.GetForEdit(ctx, user.ID, id)
	}
	if err == nil {
		err = h.stores.Validate(user.ID, in)
	}
	if err == nil {
		in.Photo, err = h.photos.Store(ctx, file)
	}
	if err != nil {
		return h.storeError(c, err, editURL)
	}

	store, err := h.stores.Update(ctx, user.ID, id, in)
	if err != nil {
		h.photos.Discard(ctx, in.Photo)
		return h.storeError(c, err, editURL)
	}
	return h.render.Redirect(c, editURL, middleware.FlashSuccess,
		fmt.Sprintf(`Successfully updated <strong>%s</strong>. <a href="/store/%s">View Store</a>`,
			html.EscapeString(store.Name), url.PathEscape(store.Slug)))
}

// parseInput binds the form and picks the uploaded photo. Nothing is written here.
func (h *StoreHandler) parseInput(c *fiber.Ctx) (services.StoreInput, *multipart.FileHeader, error) {
	var in services.StoreInput
	if err := c.BodyParser(&in); err != nil {
		return in, nil, services.NewValidationError("Body", "Invalid request body")
	}
	file, err := h.photos.Accept(photoFiles(c))
	return in, file, err
}

func photoFiles(c *fiber.Ctx) []*multipart.FileHeader {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil
	}
	return form.File["photo"]
}

// storeError turns service errors into notices; anything else goes to the error handler.
func (h *StoreHandler) storeError(c *fiber.Ctx, err error, back string) error {
	switch {
	case services.IsValidation(err):
		return h.render.RedirectBack(c, back, middleware.FlashError, validationMessages(err)...)
	case errors.Is(err, services.ErrNotFound):
		return h.render.NotFound(c)
	case errors.Is(err, services.ErrForbidden):
		return h.render.Redirect(c, "/stores", middleware.FlashError, "You must own a store in order to edit it!")
	default:
		return err
	}
}

// HandleTags renders the tag list with the stores for the selected tag.
func (h *StoreHandler) HandleTags(c *fiber.Ctx) error {
	tag := c.Params("tag")
	tags, err := h.stores.TagCounts(c.UserContext())
	if err != nil {
		return err
	}
	stores, err := h.stores.StoresByTag(c.UserContext(), tag)
	if err != nil {
		return err
	}
	return h.render.Render(c, fiber.StatusOK, "tag", "Tags", fiber.Map{
		"tag":    tag,
		"tags":   tags,
		"stores": stores,
	})
}

// HandleTop renders the top rated stores.
func (h *StoreHandler) HandleTop(c *fiber.Ctx) error {
	stores, err := h.stores.TopRated(c.UserContext())
	if err != nil {
		return err
	}
	return h.render.Render(c, fiber.StatusOK, "topStores", "Top Stores!", fiber.Map{"stores": stores})
}

// HandlePhoto streams a stored photo.
func (h *StoreHandler) HandlePhoto(c *fiber.Ctx) error {
	rc, contentType, err := h.photos.Open(c.UserContext(), c.Params("name"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return fiber.ErrNotFound
		}
		return err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return err
	}
	if contentType != "" {
		c.Set(fiber.HeaderContentType, contentType)
	}
	c.Set(fiber.HeaderCacheControl, "public, max-age=86400")
	return c.Send(data)
}
