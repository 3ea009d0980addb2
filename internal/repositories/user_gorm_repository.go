package repositories

import (
	"context"
	"fmt"
	"time"

	"storefinder/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// Create creates a new user in the database.
func (r *GORMUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", translate(err))
	}
	return nil
}

// GetByEmail retrieves a user by their email from the database.
func (r *GORMUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, fmt.Errorf("failed to get user by email %s: %w", email, translate(err))
	}
	return &user, nil
}

// GetByID retrieves a user by their ID from the database.
func (r *GORMUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to get user by ID %s: %w", id, translate(err))
	}
	return &user, nil
}

// GetByIDs retrieves several users keyed by ID. Unknown IDs are skipped.
func (r *GORMUserRepository) GetByIDs(ctx context.Context, ids []string) (map[string]models.User, error) {
	out := make(map[string]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to get users by IDs: %w", err)
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// GetByResetToken retrieves the user holding token, provided it expires after now.
func (r *GORMUserRepository) GetByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("reset_password_token = ? AND reset_password_expires > ?", token, now).
		First(&user).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get user by reset token: %w", translate(err))
	}
	return &user, nil
}

// SetResetToken stores a reset token and its expiry on the user.
func (r *GORMUserRepository) SetResetToken(ctx context.Context, id, token string, expires time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"reset_password_token":   token,
		"reset_password_expires": expires,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to set reset token for user %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user with ID %s not found for reset token: %w", id, ErrNotFound)
	}
	return nil
}

// CompleteReset sets a new password hash and clears the reset fields in a
// single conditional update. It only matches while the token is still the
// current one and unexpired, so a token can be consumed once.
func (r *GORMUserRepository) CompleteReset(ctx context.Context, id, token, passwordHash string, now time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND reset_password_token = ? AND reset_password_expires > ?", id, token, now).
		Updates(map[string]interface{}{
			"password_hash":          passwordHash,
			"reset_password_token":   gorm.Expr("NULL"),
			"reset_password_expires": gorm.Expr("NULL"),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to reset password for user %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("reset token for user %s no longer valid: %w", id, ErrNotFound)
	}
	return nil
}
