package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"nutribyte/fitness-app/internal/config"
	"nutribyte/fitness-app/internal/generator"
	"nutribyte/fitness-app/internal/llm"
	"nutribyte/fitness-app/internal/logger"
	"nutribyte/fitness-app/internal/metrics"
	"nutribyte/fitness-app/internal/repository"
	"nutribyte/fitness-app/internal/repository/memory"
	"nutribyte/fitness-app/internal/repository/mongo"
	"nutribyte/fitness-app/internal/repository/sqlstore"
	"nutribyte/fitness-app/internal/service"
	"nutribyte/fitness-app/internal/storage"
)

// stores bundles the repositories of the configured database driver.
type stores struct {
	users    repository.UserRepository
	profiles repository.ProfileRepository
	plans    repository.PlanRepository
	close    func()
}

// sqlDriver maps the configured driver to the registered database/sql name.
func sqlDriver(driver string) string {
	if driver == config.DriverPostgres {
		return sqlstore.DriverPgx
	}
	return sqlstore.DriverSQLite
}

// openStores connects to the configured database. With prepare set, SQL
// migrations are applied and Mongo indexes are created first.
func openStores(ctx context.Context, cfg config.DatabaseConfig, prepare bool) (*stores, error) {
	switch cfg.Driver {
	case config.DriverMongo:
		client, err := mongo.ConnectDB(cfg.URI)
		if err != nil {
			return nil, fmt.Errorf("could not connect to MongoDB: %w", err)
		}
		db := client.Database(cfg.Name)
		if prepare {
			indexCtx, cancel := context.WithTimeout(ctx, time.Minute)
			mongo.EnsureIndexes(indexCtx, db)
			cancel()
		}
		return &stores{
			users:    mongo.NewMongoUserRepository(db),
			profiles: mongo.NewMongoProfileRepository(db),
			plans:    mongo.NewMongoPlanRepository(db, cfg.Transactions),
			close:    func() { disconnectMongo(client) },
		}, nil

	case config.DriverPostgres, config.DriverSQLite:
		driver := sqlDriver(cfg.Driver)
		db, err := sqlstore.Open(driver, cfg.URI)
		if err != nil {
			return nil, err
		}
		if prepare {
			if err := sqlstore.RunMigrations(db.DB, driver); err != nil {
				_ = sqlstore.Close(db)
				return nil, err
			}
		}
		return &stores{
			users:    sqlstore.NewUserRepository(db),
			profiles: sqlstore.NewProfileRepository(db),
			plans:    sqlstore.NewPlanRepository(db),
			close:    func() { closeSQL(db) },
		}, nil

	case config.DriverMemory:
		slog.Warn("Using the in-memory store, data is lost on exit")
		store := memory.NewStore()
		return &stores{
			users:    store.Users(),
			profiles: store.Profiles(),
			plans:    store.Plans(),
			close:    func() {},
		}, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

func disconnectMongo(client *mongodriver.Client) {
	slog.Info("Disconnecting MongoDB...")
	if err := mongo.DisconnectDB(client); err != nil {
		slog.Error("Failed to disconnect MongoDB", "error", err)
	}
}

func closeSQL(db *sqlx.DB) {
	if err := sqlstore.Close(db); err != nil {
		slog.Error("Failed to close database", "error", err)
	}
}

// app is the wired service graph shared by the commands.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	stores   *stores

	authService    service.AuthService
	profileService service.ProfileService
	planService    service.PlanService

	recommendationService service.RecommendationService
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	// --- Configuration ---
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("could not load config: %w", err)
	}
	appLogger := logger.Init(cfg.App.IsDevelopment(), cfg.App.SentryDSN)
	appLogger.Info("Configuration loaded", "env", cfg.App.Env, "database", cfg.Database.Driver)

	// --- Metrics ---
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// --- Repositories ---
	st, err := openStores(ctx, cfg.Database, true)
	if err != nil {
		return nil, err
	}

	// --- Storage ---
	planOpts := []service.PlanServiceOption{
		service.WithMetrics(m),
		service.WithPlanLogger(appLogger),
	}
	if cfg.S3.Enabled() {
		fileStorage, err := storage.NewS3Storage(ctx, cfg.S3, appLogger)
		if err != nil {
			st.close()
			return nil, fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
		planOpts = append(planOpts, service.WithStorage(fileStorage, cfg.S3.PresignExpiry))
	} else {
		appLogger.Info("Object storage not configured, plan export disabled")
	}

	// --- Services ---
	completer := llm.NewClient(cfg.LLM, llm.WithLogger(appLogger))
	gen := generator.NewGenerator(completer, cfg.LLM.Timeout, m, appLogger)

	return &app{
		cfg:            cfg,
		logger:         appLogger,
		registry:       registry,
		stores:         st,
		authService:    service.NewAuthService(st.users, cfg.JWT.Secret, cfg.JWT.Expiration),
		profileService: service.NewProfileService(st.profiles),
		planService:    service.NewPlanService(st.plans, st.profiles, gen, cfg.Planner, planOpts...),

		recommendationService: service.NewRecommendationService(st.profiles, gen, appLogger),
	}, nil
}

func (a *app) Close() {
	a.stores.close()
}
