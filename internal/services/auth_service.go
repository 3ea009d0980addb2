package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefinder/internal/mail"
	"storefinder/internal/models"
	"storefinder/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// ResetTokenTTL is how long a password reset token stays valid.
const ResetTokenTTL = time.Hour

// RegisterInput is the registration form.
type RegisterInput struct {
	Name            string `json:"name" form:"name" validate:"required,max=255"`
	Email           string `json:"email" form:"email" validate:"required,email"`
	Password        string `json:"password" form:"password" validate:"required,min=6"`
	PasswordConfirm string `json:"password-confirm" form:"password-confirm" validate:"required,eqfield=Password"`
}

// AuthService handles business logic for authentication and password resets.
type AuthService struct {
	userRepo   repositories.UserRepository
	mailer     mail.Mailer
	validate   *validator.Validate
	logger     logrus.FieldLogger
	jwtSecret  []byte
	tokenDurat time.Duration // Duration for which JWT is valid
	now        func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, mailer mail.Mailer, jwtSecret string, logger logrus.FieldLogger) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		mailer:     mailer,
		validate:   validator.New(),
		logger:     logger,
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: 24 * time.Hour,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source used for reset token expiry.
func (s *AuthService) SetClock(now func() time.Time) {
	s.now = now
}

// Register validates the form, hashes the password and stores the new user.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return nil, validationFrom(err)
	}

	if _, err := s.userRepo.GetByEmail(ctx, in.Email); err == nil {
		return nil, fmt.Errorf("email '%s' already registered: %w", in.Email, ErrConflict)
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{Name: in.Name, Email: in.Email, PasswordHash: string(hash)}
	if err := s.validate.Struct(user); err != nil {
		return nil, validationFrom(err)
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// The unique index on email catches registrations racing past the check above.
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, fmt.Errorf("email '%s' already registered: %w", in.Email, ErrConflict)
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	s.logger.WithField("user_id", user.ID).Info("user registered")
	return user, nil
}

// Authenticate checks an email and password pair.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// IssueToken authenticates a user and returns a JWT for API clients.
func (s *AuthService) IssueToken(ctx context.Context, email, password string) (string, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     time.Now().Add(s.tokenDurat).Unix(),
		"iat":     time.Now().Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}

// UserByID loads the user behind a session.
func (s *AuthService) UserByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

// ForgotPassword issues a reset token for the account and mails its URL.
// An unknown email returns ErrNotFound without touching any record.
func (s *AuthService) ForgotPassword(ctx context.Context, email, baseURL string) error {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	token, err := newResetToken()
	if err != nil {
		return err
	}
	expires := s.now().Add(ResetTokenTTL)
	if err := s.userRepo.SetResetToken(ctx, user.ID, token, expires); err != nil {
		return err
	}

	resetURL := fmt.Sprintf("%s/account/reset/%s", strings.TrimRight(baseURL, "/"), token)
	err = s.mailer.SendPasswordReset(ctx, mail.PasswordReset{
		To:        user.Email,
		Name:      user.Name,
		ResetURL:  resetURL,
		ExpiresAt: expires,
	})
	if err != nil {
		return fmt.Errorf("failed to send password reset: %w", err)
	}
	s.logger.WithField("user_id", user.ID).Info("password reset requested")
	return nil
}

// ValidateResetToken returns the user owning token while it is unexpired.
func (s *AuthService) ValidateResetToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrInvalidResetToken
	}
	user, err := s.userRepo.GetByResetToken(ctx, token, s.now())
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidResetToken
		}
		return nil, err
	}
	return user, nil
}

// ResetPassword consumes token and sets a new password.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) (*models.User, error) {
	user, err := s.ValidateResetToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := s.validate.Var(password, "required,min=6"); err != nil {
		return nil, NewValidationError("Password", "Password must be at least 6 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.CompleteReset(ctx, user.ID, token, string(hash), s.now()); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidResetToken
		}
		return nil, err
	}

	user.PasswordHash = string(hash)
	user.ResetPasswordToken = nil
	user.ResetPasswordExpires = nil
	s.logger.WithField("user_id", user.ID).Info("password reset completed")
	return user, nil
}

// PasswordsMatch reports whether the password and its confirmation are identical.
func PasswordsMatch(password, confirm string) bool {
	return password == confirm
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func newResetToken() (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
