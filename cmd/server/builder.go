package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ruziba3vich/toolshed/config"
	"github.com/ruziba3vich/toolshed/internal/application"
	"github.com/ruziba3vich/toolshed/internal/infrastructure/cache/redis"
	"github.com/ruziba3vich/toolshed/internal/infrastructure/metrics"
	"github.com/ruziba3vich/toolshed/internal/infrastructure/persistence"
	apphttp "github.com/ruziba3vich/toolshed/internal/interfaces/http"
	"github.com/ruziba3vich/toolshed/pkg/logger"
)

func serveAction(c *cli.Context) error {
	ctx := c.Context

	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}

	log, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()
	logger.SetDefault(log)

	log.Info("Starting toolshed...",
		logger.Component("main"),
		logger.String("environment", cfg.App.Environment),
	)

	repos, redisClient, err := initInfrastructure(cfg, log)
	if err != nil {
		return err
	}
	defer repos.Close()
	if redisClient != nil {
		defer redisClient.Close()
	}

	if cfg.Database.AutoMigrate {
		applied, err := repos.Migrate(ctx)
		if err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		log.Info("Database migrated",
			logger.Component("main"),
			logger.Int("applied", applied),
		)
	}

	m := metrics.New()
	deps, err := application.NewDependencies(ctx, cfg, redisClient, m)
	if err != nil {
		return err
	}
	svcs := application.NewServices(repos, deps, cfg)
	log.Info("Login providers configured",
		logger.Component("main"),
		logger.Any("providers", deps.Providers.Names()),
	)

	server, router, err := newServer(cfg, svcs, repos, redisClient, m, log)
	if err != nil {
		return err
	}
	defer router.Close()

	return startServer(server, log)
}

func migrateUpAction(c *cli.Context) error {
	return withRepositories(c, func(repos *persistence.Repositories) error {
		applied, err := repos.Migrate(c.Context)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "applied %d migration(s)\n", applied)
		return nil
	})
}

func migrateDownAction(c *cli.Context) error {
	return withRepositories(c, func(repos *persistence.Repositories) error {
		if err := repos.MigrateDown(c.Context); err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, "rolled back 1 migration")
		return nil
	})
}

func migrateVersionAction(c *cli.Context) error {
	return withRepositories(c, func(repos *persistence.Repositories) error {
		version, err := repos.SchemaVersion(c.Context)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "%s schema version %d\n", repos.Driver(), version)
		return nil
	})
}

func withRepositories(c *cli.Context, fn func(*persistence.Repositories) error) error {
	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}

	repos, err := persistence.Open(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer repos.Close()

	return fn(repos)
}

func loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	if path == "" {
		cfg = config.Load()
	} else {
		var err error
		if cfg, err = config.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func initLogger(cfg *config.Config) (logger.Logger, error) {
	return logger.New(logger.Config{
		Level:         cfg.Logging.Level,
		Environment:   cfg.App.Environment,
		EnableConsole: true,
	})
}

// initInfrastructure opens the store and, when configured, Redis. The
// returned Redis client is nil without Redis.
func initInfrastructure(cfg *config.Config, log logger.Logger) (*persistence.Repositories, *redis.Client, error) {
	repos, err := persistence.Open(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Connected to database",
		logger.Component("infrastructure"),
		logger.Driver(repos.Driver()),
	)

	if !cfg.Redis.Enabled() {
		log.Warn("Redis not configured, login throttling disabled",
			logger.Component("infrastructure"),
		)
		return repos, nil, nil
	}

	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		repos.Close()
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Info("Connected to Redis",
		logger.Component("infrastructure"),
		logger.Addr(cfg.Redis.Addr()),
	)

	return repos, redisClient, nil
}

func newServer(
	cfg *config.Config,
	svcs *application.Services,
	repos *persistence.Repositories,
	redisClient *redis.Client,
	m *metrics.Metrics,
	log logger.Logger,
) (*http.Server, *apphttp.Router, error) {
	routerDeps := &apphttp.RouterDeps{
		SessionService: svcs.Session,
		AuthService:    svcs.Auth,
		OAuthService:   svcs.OAuth,
		Metrics:        m,
		Logger:         log,
		DBHealth:       repos,
	}
	// Assigned only when set so the interface stays nil without Redis.
	if redisClient != nil {
		routerDeps.RedisHealth = redisClient
	}

	router, err := apphttp.NewRouter(cfg, routerDeps)
	if err != nil {
		return nil, nil, err
	}

	return &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}, router, nil
}

func startServer(server *http.Server, log logger.Logger) error {
	errChan := make(chan error, 1)
	go func() {
		log.Info("Server listening",
			logger.Component("server"),
			logger.Addr(server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		log.Info("Shutting down server...",
			logger.Component("server"),
			logger.String("signal", sig.String()),
		)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("Server exited", logger.Component("server"))
	return nil
}
