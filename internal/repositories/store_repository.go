package repositories

import (
	"context"

	"storefinder/internal/models"
)

// StoreRepository defines the interface for store listing data access.
type StoreRepository interface {
	GetAll(ctx context.Context) ([]models.Store, error)
	GetByID(ctx context.Context, id string) (*models.Store, error)
	GetBySlug(ctx context.Context, slug string) (*models.Store, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.Store, error)
	GetByTag(ctx context.Context, tag string) ([]models.Store, error)
	// SlugsLike returns the slugs equal to base or starting with "base-",
	// ignoring case and the store identified by excludeID.
	SlugsLike(ctx context.Context, base, excludeID string) ([]string, error)
	Create(ctx context.Context, store *models.Store) error
	Update(ctx context.Context, store *models.Store) error
	TagCounts(ctx context.Context) ([]models.TagCount, error)
	TopRated(ctx context.Context, minReviews, limit int) ([]models.RatedStore, error)
}
