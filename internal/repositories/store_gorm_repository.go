package repositories

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"storefinder/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMStoreRepository is a GORM implementation of StoreRepository.
// Tags live in their own table and are joined back onto stores on read.
type GORMStoreRepository struct {
	db *gorm.DB
}

// NewGORMStoreRepository creates a new instance of GORMStoreRepository.
func NewGORMStoreRepository(db *gorm.DB) *GORMStoreRepository {
	return &GORMStoreRepository{
		db: db,
	}
}

// GetAll retrieves all stores, newest first.
func (r *GORMStoreRepository) GetAll(ctx context.Context) ([]models.Store, error) {
	var stores []models.Store
	if err := r.db.WithContext(ctx).Order("created DESC").Find(&stores).Error; err != nil {
		return nil, fmt.Errorf("failed to get all stores: %w", err)
	}
	if err := r.loadTags(ctx, stores); err != nil {
		return nil, err
	}
	return stores, nil
}

// GetByID retrieves a single store by its ID.
func (r *GORMStoreRepository) GetByID(ctx context.Context, id string) (*models.Store, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetBySlug retrieves a single store by its slug.
func (r *GORMStoreRepository) GetBySlug(ctx context.Context, slug string) (*models.Store, error) {
	return r.getOne(ctx, "slug = ?", slug)
}

// GetByIDs retrieves the stores with the given IDs in the order requested.
// Unknown IDs are skipped.
func (r *GORMStoreRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Store, error) {
	if len(ids) == 0 {
		return []models.Store{}, nil
	}
	var found []models.Store
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, fmt.Errorf("failed to get stores by IDs: %w", err)
	}
	byID := make(map[string]models.Store, len(found))
	for _, s := range found {
		byID[s.ID] = s
	}
	stores := make([]models.Store, 0, len(found))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			stores = append(stores, s)
		}
	}
	if err := r.loadTags(ctx, stores); err != nil {
		return nil, err
	}
	return stores, nil
}

func (r *GORMStoreRepository) getOne(ctx context.Context, query string, arg string) (*models.Store, error) {
	var store models.Store
	if err := r.db.WithContext(ctx).First(&store, query, arg).Error; err != nil {
		return nil, fmt.Errorf("failed to get store where %s %s: %w", query, arg, translate(err))
	}
	stores := []models.Store{store}
	if err := r.loadTags(ctx, stores); err != nil {
		return nil, err
	}
	return &stores[0], nil
}

// GetByTag retrieves the stores carrying tag. An empty tag matches any tagged store.
func (r *GORMStoreRepository) GetByTag(ctx context.Context, tag string) ([]models.Store, error) {
	sub := r.db.Model(&models.StoreTag{}).Select("store_id")
	if tag != "" {
		sub = sub.Where("tag = ?", tag)
	}
	var stores []models.Store
	if err := r.db.WithContext(ctx).Where("id IN (?)", sub).Order("created DESC").Find(&stores).Error; err != nil {
		return nil, fmt.Errorf("failed to get stores by tag %q: %w", tag, err)
	}
	if err := r.loadTags(ctx, stores); err != nil {
		return nil, err
	}
	return stores, nil
}

// SlugsLike returns candidate colliding slugs for base.
func (r *GORMStoreRepository) SlugsLike(ctx context.Context, base, excludeID string) ([]string, error) {
	lower := strings.ToLower(base)
	q := r.db.WithContext(ctx).Model(&models.Store{}).
		Where("LOWER(slug) = ? OR LOWER(slug) LIKE ?", lower, lower+"-%")
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var slugs []string
	if err := q.Pluck("slug", &slugs).Error; err != nil {
		return nil, fmt.Errorf("failed to list slugs like %s: %w", base, err)
	}
	return slugs, nil
}

// Create inserts a store and its tags in one transaction.
func (r *GORMStoreRepository) Create(ctx context.Context, store *models.Store) error {
	if store.ID == "" {
		store.ID = uuid.New().String()
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(store).Error; err != nil {
			return err
		}
		return replaceTags(tx, store.ID, store.Tags)
	})
	if err != nil {
		return fmt.Errorf("failed to create store: %w", translate(err))
	}
	return nil
}

// Update writes every mutable column of store and replaces its tags.
func (r *GORMStoreRepository) Update(ctx context.Context, store *models.Store) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(store).
			Select("name", "slug", "description", "location_type", "location_lng",
				"location_lat", "location_address", "photo", "updated_at").
			Updates(store)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return replaceTags(tx, store.ID, store.Tags)
	})
	if err != nil {
		return fmt.Errorf("failed to update store %s: %w", store.ID, translate(err))
	}
	return nil
}

// TagCounts returns every tag with its store count, most used first.
func (r *GORMStoreRepository) TagCounts(ctx context.Context) ([]models.TagCount, error) {
	var counts []models.TagCount
	err := r.db.WithContext(ctx).Model(&models.StoreTag{}).
		Select("tag, COUNT(*) AS count").
		Group("tag").
		Order("count DESC, tag ASC").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count tags: %w", err)
	}
	return counts, nil
}

// TopRated returns stores with at least minReviews reviews ordered by their
// average rating.
func (r *GORMStoreRepository) TopRated(ctx context.Context, minReviews, limit int) ([]models.RatedStore, error) {
	var rated []models.RatedStore
	err := r.db.WithContext(ctx).Model(&models.Store{}).
		Select("stores.*, AVG(reviews.rating) AS average_rating, COUNT(reviews.id) AS review_count").
		Joins("JOIN reviews ON reviews.store_id = stores.id").
		Group("stores.id").
		Having("COUNT(reviews.id) >= ?", minReviews).
		Order("average_rating DESC").
		Limit(limit).
		Scan(&rated).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get top rated stores: %w", err)
	}

	stores := make([]models.Store, len(rated))
	for i := range rated {
		stores[i] = rated[i].Store
	}
	if err := r.loadTags(ctx, stores); err != nil {
		return nil, err
	}
	for i := range rated {
		rated[i].Tags = stores[i].Tags
	}
	return rated, nil
}

// loadTags fills in Tags for each store with a single query.
func (r *GORMStoreRepository) loadTags(ctx context.Context, stores []models.Store) error {
	if len(stores) == 0 {
		return nil
	}
	ids := make([]string, len(stores))
	for i, s := range stores {
		ids[i] = s.ID
	}
	var rows []models.StoreTag
	if err := r.db.WithContext(ctx).Where("store_id IN ?", ids).Find(&rows).Error; err != nil {
		return fmt.Errorf("failed to load store tags: %w", err)
	}
	byStore := make(map[string][]string, len(stores))
	for _, row := range rows {
		byStore[row.StoreID] = append(byStore[row.StoreID], row.Tag)
	}
	for i := range stores {
		tags := byStore[stores[i].ID]
		sort.Strings(tags)
		stores[i].Tags = tags
	}
	return nil
}

func replaceTags(tx *gorm.DB, storeID string, tags []string) error {
	if err := tx.Where("store_id = ?", storeID).Delete(&models.StoreTag{}).Error; err != nil {
		return err
	}
	if len(tags) == 0 {
		return nil
	}
	rows := make([]models.StoreTag, len(tags))
	for i, t := range tags {
		rows[i] = models.StoreTag{StoreID: storeID, Tag: t}
	}
	return tx.Create(&rows).Error
}
