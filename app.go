package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"storefinder/internal/handlers"
	"storefinder/internal/mail"
	"storefinder/internal/middleware"
	"storefinder/internal/models"
	"storefinder/internal/photos"
	"storefinder/internal/repositories"
	"storefinder/internal/search"
	"storefinder/internal/services"
	"storefinder/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const sessionTTL = 14 * 24 * time.Hour

// App is the wired application with the resources it owns.
type App struct {
	Fiber  *fiber.App
	DB     *gorm.DB
	Auth   *services.AuthService
	Stores *services.StoreService

	index   *search.Index
	closers []func() error
	logger  logrus.FieldLogger
}

// NewLogger builds the process logger.
func NewLogger(cfg Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	if cfg.Env == "dev" {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

// OpenDatabase connects to the configured database. Constraint violations
// are translated into gorm errors so duplicates can be detected portably.
func OpenDatabase(cfg Config) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	}

	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DatabaseDSN)
	default:
		dialector = sqlite.Open(cfg.DatabaseDSN)
	}

	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg.DatabaseDriver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// sqlite serializes writers; one connection avoids lock errors.
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Store{}, &models.StoreTag{}, &models.Review{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// NewApp wires repositories, services and handlers into a Fiber app.
func NewApp(ctx context.Context, cfg Config, log *logrus.Logger) (*App, error) {
	a := &App{logger: log}

	db, err := OpenDatabase(cfg)
	if err != nil {
		return nil, err
	}
	a.DB = db
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}
	if err := Migrate(db); err != nil {
		a.Close()
		return nil, err
	}

	userRepo := repositories.NewGORMUserRepository(db)
	storeRepo := repositories.NewGORMStoreRepository(db)
	reviewRepo := repositories.NewGORMReviewRepository(db)

	index, err := search.NewMemIndex(log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.index = index
	a.closers = append(a.closers, index.Close)

	storage, err := a.photoStorage(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	mailer, err := a.mailer(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Auth = services.NewAuthService(userRepo, mailer, cfg.JWTSecret, log)
	a.Stores = services.NewStoreService(storeRepo, userRepo, reviewRepo, index, log)
	photoService := services.NewPhotoService(storage, log)
	reviewService := services.NewReviewService(reviewRepo, storeRepo, log)

	if err := a.Stores.Reindex(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to build search index: %w", err)
	}

	sessions := session.New(session.Config{
		Expiration:     sessionTTL,
		KeyLookup:      "cookie:session_id",
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		CookieSecure:   strings.HasPrefix(cfg.BaseURL, "https://"),
	})
	mw := middleware.NewAuth(sessions, a.Auth, log)
	render := handlers.NewRenderer(mw, log)

	app := fiber.New(fiber.Config{
		AppName:      "storefinder",
		ErrorHandler: handlers.ErrorHandler(log),
		BodyLimit:    cfg.UploadMaxBytes,
		UnescapePath: true,
	})
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{Output: log.Writer()}))
	app.Use(mw.LoadUser())

	app.Get("/health", func(c *fiber.Ctx) error {
		status := "healthy"
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.UserContext()) != nil {
			status = "degraded"
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": status,
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	handlers.NewAuthHandler(a.Auth, mw, render, cfg.BaseURL, log).RegisterRoutes(app)
	handlers.NewAPIHandler(a.Stores).RegisterRoutes(app)
	handlers.NewStoreHandler(a.Stores, photoService, mw, render, log).RegisterRoutes(app)
	handlers.NewReviewHandler(reviewService, mw, render).RegisterRoutes(app)

	a.Fiber = app
	return a, nil
}

func (a *App) photoStorage(ctx context.Context, cfg Config) (photos.Storage, error) {
	if cfg.PhotoBackend != "minio" {
		a.logger.WithField("dir", cfg.PhotoDir).Info("photos stored on local disk")
		return photos.NewFileStorage(cfg.PhotoDir)
	}
	storage, err := photos.NewMinioStorage(cfg.Minio)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO: %w", err)
	}
	if err := storage.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to prepare MinIO bucket: %w", err)
	}
	return storage, nil
}

func (a *App) mailer(cfg Config) (mail.Mailer, error) {
	if cfg.MailBackend != "rabbitmq" {
		return mail.NewLogMailer(a.logger), nil
	}
	client, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Queue: cfg.MailQueue})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize RabbitMQ client: %w", err)
	}
	a.closers = append(a.closers, client.Close)
	a.logger.WithField("queue", client.Queue()).Info("mail delivery via RabbitMQ")
	return mail.NewQueueMailer(client, a.logger), nil
}

// Close releases everything NewApp opened, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
