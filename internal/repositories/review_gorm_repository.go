package repositories

import (
	"context"
	"fmt"

	"storefinder/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMReviewRepository is a GORM implementation of ReviewRepository.
type GORMReviewRepository struct {
	db *gorm.DB
}

// NewGORMReviewRepository creates a new instance of GORMReviewRepository.
func NewGORMReviewRepository(db *gorm.DB) *GORMReviewRepository {
	return &GORMReviewRepository{
		db: db,
	}
}

// Create creates a new review in the database.
func (r *GORMReviewRepository) Create(ctx context.Context, review *models.Review) error {
	if review.ID == "" {
		review.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(review).Error; err != nil {
		return fmt.Errorf("failed to create review: %w", translate(err))
	}
	return nil
}

// GetByStore retrieves the reviews of a store, newest first.
func (r *GORMReviewRepository) GetByStore(ctx context.Context, storeID string) ([]models.Review, error) {
	var reviews []models.Review
	if err := r.db.WithContext(ctx).Where("store_id = ?", storeID).Order("created DESC").Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("failed to get reviews for store %s: %w", storeID, err)
	}
	return reviews, nil
}
