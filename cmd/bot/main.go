package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/housing-coach-yuushi/ishitomo-linebot/internal/adapter/repo"
	"github.com/housing-coach-yuushi/ishitomo-linebot/internal/bot"
	httpapi "github.com/housing-coach-yuushi/ishitomo-linebot/internal/http"
	"github.com/housing-coach-yuushi/ishitomo-linebot/internal/http/handlers"
	"github.com/housing-coach-yuushi/ishitomo-linebot/internal/imagegen"
	"github.com/housing-coach-yuushi/ishitomo-linebot/internal/infra"
	"github.com/housing-coach-yuushi/ishitomo-linebot/internal/infra/credentials"
	"github.com/housing-coach-yuushi/ishitomo-linebot/internal/line"
	"github.com/housing-coach-yuushi/ishitomo-linebot/internal/session"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	runner := infra.NewSQLRunner(dbpool, logger)

	// KIE API key: environment first, integration_tokens fallback.
	kieKey := strings.TrimSpace(cfg.KieAPIKey)
	if kieKey == "" {
		store := credentials.NewStore(runner)
		keyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		kieKey, err = store.KieAPIKey(keyCtx)
		cancel()
		if err != nil || kieKey == "" {
			logger.Fatal().Err(err).Msg("kie api key unavailable: set KIEAI_API_KEY or store one with cmd/kiekey")
		}
	}

	kieClient := imagegen.NewKieClient(imagegen.KieOptions{
		BaseURL:   cfg.KieBaseURL,
		UploadURL: cfg.KieUploadURL,
		APIKey:    kieKey,
	})
	relayClient := imagegen.NewRelayClient(imagegen.RelayOptions{BaseURL: cfg.RelayBaseURL})
	generator := imagegen.NewService(kieClient, relayClient, cfg.PollInterval, cfg.PollTimeout, logger)

	lineClient := line.NewClient(line.Options{
		ChannelToken: cfg.LineChannelToken,
		APIBaseURL:   cfg.LineAPIBaseURL,
		DataBaseURL:  cfg.LineDataBaseURL,
	})

	botService := bot.NewService(bot.Options{
		Messenger:        lineClient,
		Generator:        generator,
		Users:            repo.NewUserRepository(runner),
		Usage:            repo.NewUsageRepository(runner),
		Gallery:          repo.NewGalleryRepository(runner),
		Sessions:         session.NewStore(30 * time.Minute),
		FreeMonthlyLimit: cfg.FreeMonthlyLimit,
		VariantCount:     cfg.VariantCount,
		Logger:           logger,
	})

	app := handlers.NewApp(botService, cfg.LineChannelSecret, logger)
	router := httpapi.NewRouter(app, logger, cfg.RateLimitPerMin)

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("bot listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}

	// Let in-flight generations push their results before the process exits.
	botService.Wait()
	logger.Info().Msg("server stopped")
}
