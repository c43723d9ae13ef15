package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/skycast/skycast-api/internal/domain/favorites"
	"github.com/skycast/skycast-api/internal/domain/history"
	"github.com/skycast/skycast-api/internal/domain/location"
	"github.com/skycast/skycast-api/internal/domain/lookup"
	"github.com/skycast/skycast-api/internal/domain/summary"
	"github.com/skycast/skycast-api/internal/domain/weather"
	"github.com/skycast/skycast-api/internal/llm"
	"github.com/skycast/skycast-api/internal/weatherapi"
	"github.com/skycast/skycast-api/pkg/config"
	"github.com/skycast/skycast-api/pkg/db"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	// Repositories
	LocationRepo  location.Repository
	FavoritesRepo favorites.Repository
	HistoryRepo   history.Repository

	// Services
	LookupSvc  lookup.Service
	WeatherSvc weather.Service
	SummarySvc summary.Service

	// Handlers
	LookupHandler  *lookup.Handler
	WeatherHandler *weather.Handler
	SummaryHandler *summary.Handler
}

// InitDependencies initializes all application dependencies
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	deps.initRepositories()

	if err := deps.initServices(ctx); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initRepositories initializes all repository layer dependencies
func (d *Dependencies) initRepositories() {
	d.LocationRepo = location.NewLocationRepository(d.DB.Pool, d.Logger)
	d.FavoritesRepo = favorites.NewFavoritesRepository(d.DB.Pool, d.Logger)
	d.HistoryRepo = history.NewHistoryRepository(d.DB.Pool, d.Logger)

	d.Logger.Info("repositories initialized")
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices(ctx context.Context) error {
	d.LookupSvc = lookup.NewLookupService(d.LocationRepo, d.FavoritesRepo, d.HistoryRepo, d.Logger)

	httpClient := &http.Client{Timeout: 10 * time.Second}
	provider := weatherapi.NewClient(
		httpClient,
		d.Config.Providers.WeatherAPIKey,
		d.Config.Providers.WeatherBaseURL,
		d.Logger,
	)
	d.WeatherSvc = weather.NewWeatherService(provider, d.Logger)

	chat, err := llm.NewGeminiChatClient(ctx, d.Config.Providers.GeminiAPIKey, d.Config.Providers.GeminiModel)
	if err != nil {
		return fmt.Errorf("failed to create chat client: %w", err)
	}
	d.SummarySvc = summary.NewSummaryService(d.WeatherSvc, chat, d.Logger)

	d.Logger.Info("services initialized")
	return nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() {
	d.LookupHandler = lookup.NewHandler(d.LookupSvc, d.Logger)
	d.WeatherHandler = weather.NewHandler(d.WeatherSvc, d.Logger)
	d.SummaryHandler = summary.NewHandler(d.SummarySvc, d.Logger)
	d.Logger.Info("handlers initialized")
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
