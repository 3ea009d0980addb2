package services_test

import (
	"context"
	"io"
	"time"

	"storefinder/internal/mail"
	"storefinder/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByIDs(ctx context.Context, ids []string) (map[string]models.User, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]models.User), args.Error(1)
}

func (m *MockUserRepository) GetByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	args := m.Called(ctx, token, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) SetResetToken(ctx context.Context, id, token string, expires time.Time) error {
	args := m.Called(ctx, id, token, expires)
	return args.Error(0)
}

func (m *MockUserRepository) CompleteReset(ctx context.Context, id, token, passwordHash string, now time.Time) error {
	args := m.Called(ctx, id, token, passwordHash, now)
	return args.Error(0)
}

// MockStoreRepository is a mock implementation of repositories.StoreRepository
type MockStoreRepository struct {
	mock.Mock
}

func (m *MockStoreRepository) GetAll(ctx context.Context) ([]models.Store, error) {
	args := m.Called(ctx)
	return stores(args.Get(0)), args.Error(1)
}

func (m *MockStoreRepository) GetByID(ctx context.Context, id string) (*models.Store, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Store), args.Error(1)
}

func (m *MockStoreRepository) GetBySlug(ctx context.Context, slug string) (*models.Store, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Store), args.Error(1)
}

func (m *MockStoreRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Store, error) {
	args := m.Called(ctx, ids)
	return stores(args.Get(0)), args.Error(1)
}

func (m *MockStoreRepository) GetByTag(ctx context.Context, tag string) ([]models.Store, error) {
	args := m.Called(ctx, tag)
	return stores(args.Get(0)), args.Error(1)
}

func (m *MockStoreRepository) SlugsLike(ctx context.Context, base, excludeID string) ([]string, error) {
	args := m.Called(ctx, base, excludeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStoreRepository) Create(ctx context.Context, store *models.Store) error {
	args := m.Called(ctx, store)
	return args.Error(0)
}

func (m *MockStoreRepository) Update(ctx context.Context, store *models.Store) error {
	args := m.Called(ctx, store)
	return args.Error(0)
}

func (m *MockStoreRepository) TagCounts(ctx context.Context) ([]models.TagCount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TagCount), args.Error(1)
}

func (m *MockStoreRepository) TopRated(ctx context.Context, minReviews, limit int) ([]models.RatedStore, error) {
	args := m.Called(ctx, minReviews, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RatedStore), args.Error(1)
}

func stores(v interface{}) []models.Store {
	if v == nil {
		return nil
	}
	return v.([]models.Store)
}

// MockReviewRepository is a mock implementation of repositories.ReviewRepository
type MockReviewRepository struct {
	mock.Mock
}

func (m *MockReviewRepository) Create(ctx context.Context, review *models.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *MockReviewRepository) GetByStore(ctx context.Context, storeID string) ([]models.Review, error) {
	args := m.Called(ctx, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Review), args.Error(1)
}

// MockMailer is a mock implementation of mail.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendPasswordReset(ctx context.Context, msg mail.PasswordReset) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// MockStoreIndex is a mock implementation of services.StoreIndex
type MockStoreIndex struct {
	mock.Mock
}

func (m *MockStoreIndex) Put(store models.Store) error {
	args := m.Called(store)
	return args.Error(0)
}

func (m *MockStoreIndex) Rebuild(all []models.Store) error {
	args := m.Called(all)
	return args.Error(0)
}

func (m *MockStoreIndex) Search(ctx context.Context, text string, limit int) ([]string, error) {
	args := m.Called(ctx, text, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStoreIndex) Near(ctx context.Context, lat, lng float64, radius string, limit int) ([]string, error) {
	args := m.Called(ctx, lat, lng, radius, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
