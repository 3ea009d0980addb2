package repositories

import (
	"context"
	"time"

	"storefinder/internal/models"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]models.User, error)
	GetByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error)
	SetResetToken(ctx context.Context, id, token string, expires time.Time) error
	CompleteReset(ctx context.Context, id, token, passwordHash string, now time.Time) error
}
