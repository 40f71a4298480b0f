package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/nexboard/module_layer/internal/app"
	"github.com/nexboard/module_layer/internal/app/httpapi"
	"github.com/nexboard/module_layer/internal/app/metrics"
	"github.com/nexboard/module_layer/internal/app/storage/memory"
	"github.com/nexboard/module_layer/internal/app/storage/postgres"
	"github.com/nexboard/module_layer/internal/config"
	"github.com/nexboard/module_layer/internal/database"
	"github.com/nexboard/module_layer/internal/middleware"
	"github.com/nexboard/module_layer/internal/platform/migrations"
	"github.com/nexboard/module_layer/pkg/logger"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "Path to configuration file")
		envFile    = flag.String("env", "", "Optional .env file to load before reading configuration")
		migrate    = flag.Bool("migrate", false, "Apply database schema on startup (postgres driver only)")
	)
	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			fmt.Fprintf(os.Stderr, "load env %s: %v\n", *envFile, err)
			os.Exit(1)
		}
	}

	if err := run(*configPath, *migrate); err != nil {
		fmt.Fprintf(os.Stderr, "moduleserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, migrate bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePrefix: cfg.Logging.FilePrefix,
	})

	stores, db, err := buildStores(cfg, log, migrate)
	if err != nil {
		return fmt.Errorf("configure stores: %w", err)
	}
	if db != nil {
		defer func() {
			if err := db.Close(); err != nil {
				log.WithError(err).Warn("error closing database connection")
			}
		}()
	}

	var appOpts []app.Option
	if cfg.StatsTTLSeconds != 0 {
		appOpts = append(appOpts, app.WithStatsTTL(time.Duration(cfg.StatsTTLSeconds)*time.Second))
	}

	application, err := app.New(stores, log, appOpts...)
	if err != nil {
		return fmt.Errorf("build application: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}

	handler := buildHandler(cfg, log, application)
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("HTTP server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http server shutdown")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("service shutdown")
	}
	return nil
}

func buildHandler(cfg *config.Config, log *logger.Logger, application *app.Application) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", httpapi.NewHandler(application, log))

	var handler http.Handler = mux
	handler = middleware.NewAdminAuth(cfg.AdminTokens, log).Handler(handler)
	if cfg.RateLimit.RequestsPerSecond > 0 {
		handler = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log).Handler(handler)
	}
	handler = middleware.NewCORSMiddleware(cfg.CORSOrigins).Handler(handler)
	handler = metrics.InstrumentHandler(handler)
	return handler
}

func buildStores(cfg *config.Config, log *logger.Logger, migrate bool) (app.Stores, *sql.DB, error) {
	switch cfg.Database.Driver {
	case "", "memory":
		log.Warn("using in-memory stores; data will not survive restarts")
		mem := memory.New()
		return app.Stores{Registry: mem, Assignments: mem, Organizations: mem, Maintenance: mem}, nil, nil

	case "postgres":
		db, err := openDatabase(cfg.Database)
		if err != nil {
			return app.Stores{}, nil, err
		}
		if migrate {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := migrations.Apply(ctx, db); err != nil {
				db.Close()
				return app.Stores{}, nil, fmt.Errorf("apply migrations: %w", err)
			}
			log.Info("database schema applied")
		}
		store := postgres.New(db)
		return app.Stores{Registry: store, Assignments: store, Organizations: store, Maintenance: store}, db, nil

	case "supabase":
		client, err := database.NewClient(database.Config{
			URL:     cfg.Supabase.URL,
			AnonKey: cfg.Supabase.AnonKey,
		})
		if err != nil {
			return app.Stores{}, nil, fmt.Errorf("supabase client: %w", err)
		}
		repo := database.NewRepository(client)
		return app.Stores{Registry: repo, Assignments: repo, Organizations: repo, Maintenance: repo}, nil, nil

	default:
		return app.Stores{}, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func openDatabase(cfg config.DatabaseConfig) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn not configured")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
