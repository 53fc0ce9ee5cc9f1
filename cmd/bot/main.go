package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"log/slog"

	"github.com/siralexgrey/yasno-zrozumilo/internal/bot/service"
	"github.com/siralexgrey/yasno-zrozumilo/internal/bot/telegram"
	"github.com/siralexgrey/yasno-zrozumilo/internal/common/metrics"
	"github.com/siralexgrey/yasno-zrozumilo/internal/common/timeutil"
	"github.com/siralexgrey/yasno-zrozumilo/internal/config"
	"github.com/siralexgrey/yasno-zrozumilo/internal/infrastructure/clients"
	"github.com/siralexgrey/yasno-zrozumilo/internal/notify"
	"github.com/siralexgrey/yasno-zrozumilo/internal/preferences"
	"github.com/siralexgrey/yasno-zrozumilo/internal/schedule"
	"github.com/siralexgrey/yasno-zrozumilo/internal/scheduler"
	"github.com/siralexgrey/yasno-zrozumilo/pkg"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Помилка запуску сервісу: %v\n", err)
		os.Exit(1)
	}
}

//nolint:funlen // Довжина функції зумовлена послідовною ініціалізацією всіх компонентів.
func run() error {
	appLogger := pkg.NewLogger(os.Stdout)

	cfg := config.LoadConfig()

	if cfg.TelegramBotToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN не задано")
	}

	sources := cfg.ParseSources()
	if len(sources) == 0 {
		return errors.New("не налаштовано жодного джерела графіків")
	}

	ctx := context.Background()

	loc := timeutil.LoadReportingLocation(cfg.ReportingTimezone)

	cache := schedule.NewCache(cfg.ScheduleCacheFile, appLogger)
	if err := cache.Load(); err != nil {
		appLogger.Error("Не вдалося підняти кеш графіків, старт з порожнього",
			"error", err,
		)
	}

	localBackend := preferences.NewFileBackend(cfg.PreferencesFile)

	remoteBackend, err := preferences.NewRemoteBackend(cfg, appLogger)
	if err != nil {
		appLogger.Warn("Віддалене сховище недоступне, працюємо лише з локальним файлом",
			"error", err,
		)

		remoteBackend = nil
	}

	prefStore := preferences.NewStore(localBackend, remoteBackend, appLogger)
	if err := prefStore.Load(ctx); err != nil {
		appLogger.Error("Не вдалося підняти налаштування, старт з порожнього стану",
			"error", err,
		)
	}

	telegramClient, err := clients.NewTelegramClient(cfg.TelegramBotToken, cfg.SendRate, cfg.SendBurst, appLogger)
	if err != nil {
		return fmt.Errorf("помилка ініціалізації Telegram: %w", err)
	}

	yasnoClient := clients.NewYasnoClient(cfg, cache, appLogger)

	detector := schedule.NewDetector(loc)
	formatter := schedule.NewFormatter(loc)

	dispatcher := notify.NewDispatcher(prefStore, detector, formatter, telegramClient, appLogger)

	syncScheduler := scheduler.NewSyncScheduler(
		yasnoClient,
		dispatcher,
		prefStore,
		sources,
		cfg.UpdateInterval,
		loc,
		appLogger,
	)

	for _, source := range sources {
		doc, ok := cache.Get(source.ID)
		if !ok {
			continue
		}

		fetchedAt, _ := cache.FetchedAt(source.ID)
		syncScheduler.Seed(source.ID, doc, fetchedAt)
	}

	botService := service.NewBotService(cache, prefStore, formatter, syncScheduler, sources)
	poller := telegram.NewPoller(telegramClient, botService, appLogger)

	metricsServer := metrics.NewMetricsServer(cfg.MetricsPort, appLogger)

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	go func() {
		if err := metricsServer.Start(serverCtx); err != nil {
			appLogger.Error("Помилка сервера метрик",
				"error", err,
			)
		}
	}()

	syncScheduler.Start()
	poller.Start()

	waitForShutdown(appLogger)

	poller.Stop()
	syncScheduler.Stop()
	serverCancel()

	appLogger.Info("Сервіс успішно зупинено")

	return nil
}

func waitForShutdown(appLogger *slog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	appLogger.Info("Отримано системний сигнал",
		"signal", sig.String(),
	)
}
