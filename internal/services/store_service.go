package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefinder/internal/models"
	"storefinder/internal/repositories"
	"storefinder/internal/search"
	"storefinder/internal/slug"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

const (
	// TopRatedMinReviews is the number of reviews a store needs to be ranked.
	TopRatedMinReviews = 2
	// TopRatedLimit caps the top rated list.
	TopRatedLimit = 10
	// SearchLimit caps text and proximity search results.
	SearchLimit = 10

	maxSlugAttempts = 5
	fallbackSlug    = "store"
)

// SuggestedTags are offered on the store form. Any other tag is accepted too.
var SuggestedTags = []string{"Wifi", "Open Late", "Family Friendly", "Vegetarian", "Licensed"}

// StoreIndex is the search side of the store listings.
type StoreIndex interface {
	Put(store models.Store) error
	Rebuild(stores []models.Store) error
	Search(ctx context.Context, text string, limit int) ([]string, error)
	Near(ctx context.Context, lat, lng float64, radius string, limit int) ([]string, error)
}

// StoreInput is the add/edit store form.
type StoreInput struct {
	Name        string   `json:"name" form:"name"`
	Description string   `json:"description" form:"description"`
	Tags        []string `json:"tags" form:"tags"`
	Address     string   `json:"address" form:"address"`
	Lng         *float64 `json:"lng" form:"lng" validate:"required"`
	Lat         *float64 `json:"lat" form:"lat" validate:"required"`
	// Photo is the stored filename from the upload step, if any.
	Photo string `json:"-" form:"-"`
}

// ReviewView is a review together with its author.
type ReviewView struct {
	models.Review
	Author *models.User `json:"author,omitempty"`
}

// StoreDetail is a store joined with its author and reviews.
type StoreDetail struct {
	models.Store
	Author        *models.User `json:"author,omitempty"`
	Reviews       []ReviewView `json:"reviews"`
	ReviewCount   int          `json:"review_count"`
	AverageRating float64      `json:"average_rating"`
}

// StoreService handles business logic related to store listings.
type StoreService struct {
	repo       repositories.StoreRepository
	users      repositories.UserRepository
	reviews    repositories.ReviewRepository
	index      StoreIndex
	validate   *validator.Validate
	logger     logrus.FieldLogger
	now        func() time.Time
	radius     string
	searchSize int
}

// NewStoreService creates a new StoreService.
func NewStoreService(repo repositories.StoreRepository, users repositories.UserRepository,
	reviews repositories.ReviewRepository, index StoreIndex, logger logrus.FieldLogger) *StoreService {
	return &StoreService{
		repo:       repo,
		users:      users,
		reviews:    reviews,
		index:      index,
		validate:   validator.New(),
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
		radius:     search.DefaultRadius,
		searchSize: SearchLimit,
	}
}

// ListAll retrieves every store.
func (s *StoreService) ListAll(ctx context.Context) ([]models.Store, error) {
	return s.repo.GetAll(ctx)
}

// Get retrieves a single store by its ID.
func (s *StoreService) Get(ctx context.Context, id string) (*models.Store, error) {
	store, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return store, nil
}

// GetForEdit retrieves a store the user is allowed to edit.
func (s *StoreService) GetForEdit(ctx context.Context, userID, id string) (*models.Store, error) {
	store, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if store.AuthorID != userID {
		return nil, ErrForbidden
	}
	return store, nil
}

// Detail loads a store by slug with its author and reviews joined in.
func (s *StoreService) Detail(ctx context.Context, storeSlug string) (*StoreDetail, error) {
	store, err := s.repo.GetBySlug(ctx, storeSlug)
	if err != nil {
		return nil, notFound(err)
	}
	reviews, err := s.reviews.GetByStore(ctx, store.ID)
	if err != nil {
		return nil, err
	}

	ids := []string{store.AuthorID}
	for _, r := range reviews {
		ids = append(ids, r.AuthorID)
	}
	authors, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	detail := &StoreDetail{Store: *store, Reviews: make([]ReviewView, 0, len(reviews))}
	if a, ok := authors[store.AuthorID]; ok {
		detail.Author = &a
	}
	var sum int
	for _, r := range reviews {
		view := ReviewView{Review: r}
		if a, ok := authors[r.AuthorID]; ok {
			view.Author = &a
		}
		detail.Reviews = append(detail.Reviews, view)
		sum += r.Rating
	}
	detail.ReviewCount = len(reviews)
	if detail.ReviewCount > 0 {
		detail.AverageRating = float64(sum) / float64(detail.ReviewCount)
	}
	return detail, nil
}

// Validate runs the checks Create and Update apply to the input without
// writing anything. Handlers call it before storing an uploaded photo.
func (s *StoreService) Validate(authorID string, in StoreInput) error {
	store, err := s.build(in)
	if err != nil {
		return err
	}
	store.AuthorID = authorID
	store.Created = s.now()
	return s.check(store)
}

// Create validates the input, derives a unique slug and stores the listing.
func (s *StoreService) Create(ctx context.Context, authorID string, in StoreInput) (*models.Store, error) {
	store, err := s.build(in)
	if err != nil {
		return nil, err
	}
	store.AuthorID = authorID
	store.Created = s.now()
	if err := s.check(store); err != nil {
		return nil, err
	}

	err = s.writeWithSlug(ctx, store, "", func(st *models.Store) error {
		st.ID = ""
		return s.repo.Create(ctx, st)
	})
	if err != nil {
		return nil, err
	}

	s.reindex(*store)
	s.logger.WithFields(logrus.Fields{"store_id": store.ID, "slug": store.Slug}).Info("store created")
	return store, nil
}

// Update re-validates and writes the listing. The slug is only derived
// again when the name changes.
func (s *StoreService) Update(ctx context.Context, userID, id string, in StoreInput) (*models.Store, error) {
	existing, err := s.GetForEdit(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	store, err := s.build(in)
	if err != nil {
		return nil, err
	}
	store.ID = existing.ID
	store.AuthorID = existing.AuthorID
	store.Created = existing.Created
	store.Slug = existing.Slug
	if store.Photo == "" {
		store.Photo = existing.Photo
	}
	if err := s.check(store); err != nil {
		return nil, err
	}

	write := func(st *models.Store) error { return s.repo.Update(ctx, st) }
	if store.Name == existing.Name {
		err = write(store)
	} else {
		err = s.writeWithSlug(ctx, store, store.ID, write)
	}
	if err != nil {
		return nil, notFound(err)
	}

	s.reindex(*store)
	s.logger.WithFields(logrus.Fields{"store_id": store.ID, "slug": store.Slug}).Info("store updated")
	return store, nil
}

// TagCounts lists every tag with its store count, most used first.
func (s *StoreService) TagCounts(ctx context.Context) ([]models.TagCount, error) {
	return s.repo.TagCounts(ctx)
}

// StoresByTag lists the stores carrying tag, or every tagged store when tag is empty.
func (s *StoreService) StoresByTag(ctx context.Context, tag string) ([]models.Store, error) {
	return s.repo.GetByTag(ctx, strings.TrimSpace(tag))
}

// TopRated lists the best reviewed stores.
func (s *StoreService) TopRated(ctx context.Context) ([]models.RatedStore, error) {
	return s.repo.TopRated(ctx, TopRatedMinReviews, TopRatedLimit)
}

// Search finds stores by name and description.
func (s *StoreService) Search(ctx context.Context, text string) ([]models.Store, error) {
	ids, err := s.index.Search(ctx, text, s.searchSize)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByIDs(ctx, ids)
}

// Near finds stores around a point.
func (s *StoreService) Near(ctx context.Context, lat, lng float64) ([]models.Store, error) {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, NewValidationError("Coordinates", "Coordinates are out of range")
	}
	ids, err := s.index.Near(ctx, lat, lng, s.radius, s.searchSize)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByIDs(ctx, ids)
}

// Reindex loads every store into the search index.
func (s *StoreService) Reindex(ctx context.Context) error {
	stores, err := s.repo.GetAll(ctx)
	if err != nil {
		return err
	}
	return s.index.Rebuild(stores)
}

// build normalizes the form into a store. The location type is always a point.
func (s *StoreService) build(in StoreInput) (*models.Store, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, validationFrom(err)
	}
	return &models.Store{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Tags:        normalizeTags(in.Tags),
		Location: models.Location{
			Type:    models.LocationPoint,
			Lng:     *in.Lng,
			Lat:     *in.Lat,
			Address: strings.TrimSpace(in.Address),
		},
		Photo: in.Photo,
	}, nil
}

func (s *StoreService) check(store *models.Store) error {
	if err := s.validate.Struct(store); err != nil {
		return validationFrom(err)
	}
	return nil
}

// writeWithSlug derives the slug from the name and retries with the next
// suffix whenever the unique index reports a collision.
func (s *StoreService) writeWithSlug(ctx context.Context, store *models.Store, excludeID string, write func(*models.Store) error) error {
	base := slug.Make(store.Name)
	if base == "" {
		base = fallbackSlug
	}
	existing, err := s.repo.SlugsLike(ctx, base, excludeID)
	if err != nil {
		return err
	}

	n := len(slug.Matching(base, existing)) + 1
	candidate := slug.Next(base, existing)
	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		store.Slug = candidate
		err := write(store)
		if !errors.Is(err, repositories.ErrDuplicate) {
			return err
		}
		s.logger.WithField("slug", candidate).Warn("slug taken, retrying")
		n++
		candidate = slug.WithSuffix(base, n)
	}
	return fmt.Errorf("no free slug for %q after %d attempts: %w", base, maxSlugAttempts, ErrConflict)
}

func (s *StoreService) reindex(store models.Store) {
	if err := s.index.Put(store); err != nil {
		s.logger.WithError(err).WithField("store_id", store.ID).Warn("failed to index store")
	}
}

// normalizeTags trims, drops empty and de-duplicates tags keeping order.
func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func notFound(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
