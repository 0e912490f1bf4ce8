package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"mediaengine/internal/adapter/repo"
	"mediaengine/internal/cache"
	httpapi "mediaengine/internal/http"
	"mediaengine/internal/http/handlers"
	"mediaengine/internal/infra"
	"mediaengine/internal/orchestrator"
	"mediaengine/internal/providers/music"
	"mediaengine/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: db connection failed")
	}
	defer pool.Close()

	var prefCache cache.Cache
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedis(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: redis configuration failed")
		}
		if err := redisCache.Ping(ctx); err != nil {
			logger.Fatal().Err(err).Msg("api: redis unreachable")
		}
		prefCache = redisCache
	} else {
		logger.Info().Msg("api: REDIS_URL not set, using in-process cache")
		prefCache = cache.NewMemory(4096)
	}

	fileStore, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure storage")
	}

	providers, err := buildProviders(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: provider configuration failed")
	}

	jobs := repo.NewJobRepository(pool)
	notifications := repo.NewNotificationRepository(pool)

	notifier := orchestrator.NewNotifier(notifications, notifications, prefCache, logger)
	reaper := orchestrator.NewReaper(jobs, notifier, cfg.StaleDeadline, logger)
	guard := orchestrator.NewDuplicateGuard(jobs, cfg.DuplicateWindow)
	service := orchestrator.NewService(jobs, providers, guard, reaper, notifier, fileStore, logger)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.ReapSchedule, func() {
		reaped, err := reaper.Reap(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("api: scheduled reap failed")
			return
		}
		if reaped > 0 {
			logger.Info().Int("reaped", reaped).Msg("api: scheduled reap")
		}
	}); err != nil {
		logger.Fatal().Err(err).Str("schedule", cfg.ReapSchedule).Msg("api: invalid reap schedule")
	}
	scheduler.Start()
	defer scheduler.Stop()

	app := handlers.NewApp(service, logger)
	server := infra.NewHTTPServer(cfg, httpapi.NewRouter(app))

	go func() {
		logger.Info().Str("addr", server.Addr()).Msg("api: listening")
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("api: server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("api: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: shutdown failed")
	}
}

// buildProviders assembles the fixed provider priority list from config.
// Adding a backend means adding a Provider implementation and a case here,
// not branching on names at call sites.
func buildProviders(cfg *infra.Config) ([]music.Provider, error) {
	providers := make([]music.Provider, 0, len(cfg.ProviderPriority))
	for _, name := range cfg.ProviderPriority {
		switch name {
		case "mubert":
			providers = append(providers, music.NewMubertProvider(music.MubertOptions{
				BaseURL: cfg.MubertBaseURL,
				APIKey:  cfg.MubertAPIKey,
				Timeout: cfg.SubmitTimeout,
			}))
		case "beatoven":
			providers = append(providers, music.NewBeatovenProvider(music.BeatovenOptions{
				BaseURL: cfg.BeatovenBaseURL,
				APIKey:  cfg.BeatovenAPIKey,
				Timeout: cfg.SubmitTimeout,
			}))
		default:
			return nil, fmt.Errorf("unknown provider %q in PROVIDER_PRIORITY", name)
		}
	}
	return providers, nil
}
