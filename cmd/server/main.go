package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"
	"github.com/reshetovitsme/stalker-bot/internal/di"
	digestService "github.com/reshetovitsme/stalker-bot/internal/modules/digest/service"
	monitorService "github.com/reshetovitsme/stalker-bot/internal/modules/monitor/service"
	notifierService "github.com/reshetovitsme/stalker-bot/internal/modules/notifier/service"
	settingsService "github.com/reshetovitsme/stalker-bot/internal/modules/settings/service"
	"github.com/reshetovitsme/stalker-bot/internal/shared/config"
	httpServer "github.com/reshetovitsme/stalker-bot/internal/transport/http"
	"github.com/samber/do/v2"
	slogmulti "github.com/samber/slog-multi"
)

func main() {
	// Setup structured logging with multiple handlers using slog-multi
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	jsonHandler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	})

	// Use Fanout to send logs to both handlers
	multiHandler := slogmulti.Fanout(textHandler, jsonHandler)
	logger := slog.New(multiHandler)
	slog.SetDefault(logger)

	// Setup dependency injection
	injector, err := di.Setup()
	if err != nil {
		slog.Error("Failed to setup dependency injection", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := di.Shutdown(injector); err != nil {
			slog.Error("Error during shutdown", "error", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Get services from DI container
	cfg := do.MustInvoke[*config.Config](injector)
	settings := do.MustInvoke[*settingsService.Service](injector)
	monitor := do.MustInvoke[*monitorService.Service](injector)
	notifier := do.MustInvoke[*notifierService.Service](injector)
	digest := do.MustInvoke[*digestService.Service](injector)
	server := do.MustInvoke[*httpServer.Server](injector)
	b := do.MustInvoke[*bot.Bot](injector)

	// Start the ingestion engine before the bot so channel posts arriving
	// during startup are queued, not dropped
	if err := monitor.Start(ctx); err != nil {
		slog.Error("Failed to start channel monitor", "error", err)
		os.Exit(1)
	}

	go b.Start(ctx)

	// Start HTTP server
	go func() {
		if err := server.Start(); err != nil {
			slog.Error("Failed to start HTTP server", "error", err)
			os.Exit(1)
		}
	}()

	if err := digest.Start(); err != nil {
		slog.Error("Failed to start digest scheduler", "error", err)
		os.Exit(1)
	}

	sendStartupBanner(ctx, settings, monitor, notifier)

	slog.Info("Application started", "port", cfg.HTTPPort, "storage_backend", cfg.StorageBackend)
	slog.Info("Press Ctrl+C to stop")

	// Graceful shutdown
	<-ctx.Done()
	slog.Info("Shutting down...")

	delivered, attempted := notifier.Broadcast(context.Background(), "🔴 <b>Stalker Bot остановлен.</b>")
	slog.Info("Shutdown banner dispatched", "delivered", delivered, "attempted", attempted)
}

// sendStartupBanner announces the live configuration to the admin set, with
// a warning when the settings store had to recover from a corrupt document.
func sendStartupBanner(ctx context.Context, settings *settingsService.Service, monitor *monitorService.Service, notifier *notifierService.Service) {
	current, err := settings.Settings()
	if err != nil {
		slog.Error("Failed to load settings for startup banner", "error", err)
		return
	}

	state := "🔴 выключен"
	if current.MonitoringEnabled {
		state = "🟢 включен"
	}

	banner := fmt.Sprintf(
		"🚀 <b>Stalker Bot запущен!</b>\n\n"+
			"📺 Каналов: %d (доступно: %d)\n"+
			"🔑 Ключевых слов: %d\n"+
			"🔍 Мониторинг: %s\n"+
			"⚙️ Режим: %s",
		len(current.Channels),
		monitor.ChannelCount(),
		len(current.Keywords),
		state,
		current.BotMode,
	)

	if settings.RecoveredFromCorruption() {
		banner += "\n\n⚠️ Файл настроек был поврежден и заменен настройками по умолчанию. Прежний файл сохранен рядом."
	}

	delivered, attempted := notifier.Broadcast(ctx, banner)
	slog.Info("Startup banner dispatched", "delivered", delivered, "attempted", attempted)
}
