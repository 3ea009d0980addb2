package services

import (
	"context"
	"strings"
	"time"

	"storefinder/internal/models"
	"storefinder/internal/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// ReviewInput is the review form.
type ReviewInput struct {
	Rating int    `json:"rating" form:"rating"`
	Text   string `json:"text" form:"text"`
}

// ReviewService handles business logic related to reviews.
type ReviewService struct {
	reviews  repositories.ReviewRepository
	stores   repositories.StoreRepository
	validate *validator.Validate
	logger   logrus.FieldLogger
}

// NewReviewService creates a new ReviewService.
func NewReviewService(reviews repositories.ReviewRepository, stores repositories.StoreRepository, logger logrus.FieldLogger) *ReviewService {
	return &ReviewService{
		reviews:  reviews,
		stores:   stores,
		validate: validator.New(),
		logger:   logger,
	}
}

// Create stores a review by authorID for the store with storeID.
func (s *ReviewService) Create(ctx context.Context, authorID, storeID string, in ReviewInput) (*models.Review, error) {
	review := &models.Review{
		StoreID:  storeID,
		AuthorID: authorID,
		Rating:   in.Rating,
		Text:     strings.TrimSpace(in.Text),
		Created:  time.Now().UTC(),
	}
	if err := s.validate.Struct(review); err != nil {
		return nil, validationFrom(err)
	}
	if _, err := s.stores.GetByID(ctx, storeID); err != nil {
		return nil, notFound(err)
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"store_id": storeID, "review_id": review.ID}).Info("review created")
	return review, nil
}
