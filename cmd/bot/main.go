package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"goeventcity/internal/api"
	"goeventcity/internal/app"
	"goeventcity/internal/bot"
	"goeventcity/internal/service"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := app.LoadConfig("bot-main")
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	if err := cfg.ValidateBot(); err != nil {
		logger.Error().Err(err).Msg("Задайте токен бота в config.yaml")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stack, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("build service stack")
		return err
	}
	defer stack.Close()

	// HTTP API рядом с ботом, если включен в конфиге
	if cfg.API.Enabled && cfg.API.HTTP.Enabled {
		apiServer := api.NewHTTPServer(&cfg.API, stack.APIServices(), logger)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error().Err(err).Msg("API server error")
			}
		}()
		defer func() {
			_ = apiServer.Shutdown(context.Background())
		}()
	}

	go app.ServeMetrics(ctx, cfg.Monitoring, logger)

	wrapper, err := bot.Connect(cfg.Telegram.BotToken, cfg.Telegram.Debug)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка создания BotAPI")
		return err
	}

	telegramBot, err := bot.NewBot(
		service.NewTelegramService(wrapper),
		cfg.Telegram,
		stack.Wizards,
		stack.Venues,
		stack.States,
		bot.NewMetrics(prometheus.DefaultRegisterer),
		logger,
	)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка создания бота")
		return err
	}

	logger.Info().Msg("Бот запущен...")
	go func() {
		<-ctx.Done()
		telegramBot.Stop()
	}()
	telegramBot.Start(ctx)

	logger.Info().Msg("Shutdown complete.")
	return nil
}
