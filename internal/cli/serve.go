package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quizbox/internal/app"
	"quizbox/internal/config"
	"quizbox/internal/fixtures"
	"quizbox/internal/infra/memory"
	pgstore "quizbox/internal/infra/postgres"
	redisinfra "quizbox/internal/infra/redis"
	"quizbox/internal/infra/sqlite"
	"quizbox/internal/prefs"
	transport "quizbox/internal/transport/http"
)

// NewServeCmd builds the CLI subcommand to start the server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	store, cleanup, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	prefStore, err := openPrefs(cfg, redisClient)
	if err != nil {
		return err
	}

	fixtureData, err := fixtures.Load()
	if err != nil {
		return err
	}

	boot := app.NewBootstrap(store, prefStore, cfg.Prefs.LegacyPath,
		fixtureData.Quizzes, fixtureData.Users, fixtureData.Submissions, logger)
	// Startup never blocks on a broken seed; Initialize logs and continues.
	_ = boot.Initialize(ctx)

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisinfra.NewQuizCache(redisClient, store.Quizzes(), quizTTL)
	} else {
		quizRepo = memory.NewQuizCache(store.Quizzes(), quizTTL)
	}

	secret := []byte(cfg.Auth.Secret)
	if len(secret) == 0 {
		secret = []byte("quizbox-dev-secret")
		logger.Warn("auth.secret not configured, using development default")
	}

	svc := app.NewService(store.Users(), quizRepo, store.Submissions(), secret,
		app.WithLogger(logger),
		app.WithTokenTTL(config.TTLDuration(cfg.Auth.TTL, 24*time.Hour)))
	handler := transport.NewHandler(svc, secret, logger)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting quiz server", zap.String("port", finalPort), zap.String("driver", cfg.Storage.Driver))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (app.Store, func(), error) {
	switch cfg.Storage.Driver {
	case "postgres":
		if cfg.Postgres.URL == "" {
			return nil, nil, fmt.Errorf("postgres url not configured")
		}
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return nil, nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, err
		}
		return pgstore.NewStore(pool), pool.Close, nil
	case "sqlite":
		path := cfg.Storage.Path
		if path == "" {
			path = "quizbox.db"
		}
		store, err := sqlite.Open(ctx, path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	default:
		logger.Info("no persistent storage configured, using in-memory store")
		return memory.NewStore(), func() {}, nil
	}
}

func openPrefs(cfg config.Config, redisClient *redis.Client) (prefs.Store, error) {
	if cfg.Prefs.Backend == "redis" {
		if redisClient == nil {
			return nil, fmt.Errorf("prefs backend is redis but redis.addr is not configured")
		}
		return prefs.NewRedisStore(redisClient), nil
	}
	path := cfg.Prefs.Path
	if path == "" {
		path = "quizbox_prefs.json"
	}
	return prefs.OpenFile(path)
}
