package di

import (
	"context"

	"github.com/go-telegram/bot"
	digestService "github.com/reshetovitsme/stalker-bot/internal/modules/digest/service"
	feedService "github.com/reshetovitsme/stalker-bot/internal/modules/feed/service"
	messageDomain "github.com/reshetovitsme/stalker-bot/internal/modules/message/domain"
	messageRepo "github.com/reshetovitsme/stalker-bot/internal/modules/message/repository"
	messageService "github.com/reshetovitsme/stalker-bot/internal/modules/message/service"
	monitorService "github.com/reshetovitsme/stalker-bot/internal/modules/monitor/service"
	notifierService "github.com/reshetovitsme/stalker-bot/internal/modules/notifier/service"
	reloadService "github.com/reshetovitsme/stalker-bot/internal/modules/reload/service"
	settingsRepo "github.com/reshetovitsme/stalker-bot/internal/modules/settings/repository"
	settingsService "github.com/reshetovitsme/stalker-bot/internal/modules/settings/service"
	"github.com/reshetovitsme/stalker-bot/internal/shared/config"
	httpServer "github.com/reshetovitsme/stalker-bot/internal/transport/http"
	telegramHandler "github.com/reshetovitsme/stalker-bot/internal/transport/telegram"
	"github.com/samber/do/v2"
	"github.com/samber/oops"
)

// Setup initializes the dependency injection container
func Setup() (do.Injector, error) {
	injector := do.New()

	// Register Config
	do.Provide(injector, func(i do.Injector) (*config.Config, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, oops.With("context", "failed to load config").Wrap(err)
		}
		return cfg, nil
	})

	// Register Settings Repository
	do.Provide(injector, func(i do.Injector) (settingsRepo.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo, err := settingsRepo.NewFileStorage(cfg.StoragePath, cfg.SuperAdminID, cfg.AdminIDs)
		if err != nil {
			return nil, oops.With("storage_path", cfg.StoragePath, "context", "failed to initialize settings repository").Wrap(err)
		}
		return repo, nil
	})

	// Register Message Repository; backend is selected by configuration
	do.Provide(injector, func(i do.Injector) (messageRepo.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)

		var (
			repo messageRepo.Repository
			err  error
		)
		switch cfg.StorageBackend {
		case config.StorageBackendSQLite:
			repo, err = messageRepo.NewSQLiteStorage(cfg.StoragePath)
		default:
			repo, err = messageRepo.NewFileStorage(cfg.StoragePath)
		}
		if err != nil {
			return nil, oops.With("storage_path", cfg.StoragePath, "storage_backend", cfg.StorageBackend, "context", "failed to initialize message repository").Wrap(err)
		}
		return repo, nil
	})

	// Register Settings Service
	do.Provide(injector, func(i do.Injector) (*settingsService.Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[settingsRepo.Repository](i)
		return settingsService.New(repo, cfg.SuperAdminID), nil
	})

	// Register Message Service
	do.Provide(injector, func(i do.Injector) (*messageService.Service, error) {
		repo := do.MustInvoke[messageRepo.Repository](i)
		return messageService.New(repo), nil
	})

	// Register Monitor Service
	do.Provide(injector, func(i do.Injector) (*monitorService.Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		settings := do.MustInvoke[*settingsService.Service](i)
		messages := do.MustInvoke[*messageService.Service](i)
		return monitorService.New(settings, messages, cfg.QueueSize), nil
	})

	// Register Notifier Service
	do.Provide(injector, func(i do.Injector) (*notifierService.Service, error) {
		settings := do.MustInvoke[*settingsService.Service](i)
		return notifierService.New(settings), nil
	})

	// Register Reload Service
	do.Provide(injector, func(i do.Injector) (*reloadService.Service, error) {
		settings := do.MustInvoke[*settingsService.Service](i)
		monitor := do.MustInvoke[*monitorService.Service](i)
		return reloadService.New(settings, monitor), nil
	})

	// Register Feed Service
	do.Provide(injector, func(i do.Injector) (*feedService.Service, error) {
		messages := do.MustInvoke[*messageService.Service](i)
		return feedService.New(messages), nil
	})

	// Register Digest Service
	do.Provide(injector, func(i do.Injector) (*digestService.Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		settings := do.MustInvoke[*settingsService.Service](i)
		messages := do.MustInvoke[*messageService.Service](i)
		notifier := do.MustInvoke[*notifierService.Service](i)
		return digestService.New(cfg.DigestSchedule, settings, messages, notifier), nil
	})

	// Register Telegram Handler
	do.Provide(injector, func(i do.Injector) (*telegramHandler.Handler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		settings := do.MustInvoke[*settingsService.Service](i)
		messages := do.MustInvoke[*messageService.Service](i)
		monitor := do.MustInvoke[*monitorService.Service](i)
		reloader := do.MustInvoke[*reloadService.Service](i)
		return telegramHandler.New(cfg, settings, messages, monitor, reloader), nil
	})

	// Register HTTP Server
	do.Provide(injector, func(i do.Injector) (*httpServer.Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		feedService := do.MustInvoke[*feedService.Service](i)
		return httpServer.New(cfg, feedService), nil
	})

	// Register Bot (needs to be initialized after handlers are ready)
	do.Provide(injector, func(i do.Injector) (*bot.Bot, error) {
		cfg := do.MustInvoke[*config.Config](i)
		handler := do.MustInvoke[*telegramHandler.Handler](i)

		// Handlers run synchronously so same-channel posts reach the
		// ingestion queue in arrival order; the bounded queue keeps slow
		// processing from blocking the poller for long.
		opts := []bot.Option{
			bot.WithDefaultHandler(handler.HandleUpdate),
			bot.WithNotAsyncHandlers(),
		}
		if cfg.TelegramAPIURL != "" {
			opts = append(opts, bot.WithServerURL(cfg.TelegramAPIURL))
		}

		b, err := bot.New(cfg.TelegramBotToken, opts...)
		if err != nil {
			return nil, oops.With("context", "failed to create telegram bot").Wrap(err)
		}

		// Register bot commands
		handler.RegisterCommands(b)

		// Wire the bot-backed adapters into the engine and the notifier
		monitor := do.MustInvoke[*monitorService.Service](i)
		monitor.SetGateway(telegramHandler.NewGateway(b))

		notifier := do.MustInvoke[*notifierService.Service](i)
		notifier.SetDeliverer(telegramHandler.NewDeliverer(b))

		// Every fresh match is pushed to the admin set
		monitor.SetMatchCallback(func(ctx context.Context, message *messageDomain.FoundMessage) {
			notifier.Notify(ctx, message)
		})

		return b, nil
	})

	return injector, nil
}

// Shutdown gracefully shuts down all services
func Shutdown(injector do.Injector) error {
	ctx := context.Background()

	// Shutdown bot if it exists
	if b, err := do.Invoke[*bot.Bot](injector); err == nil && b != nil {
		b.Close(ctx)
	}

	// Stop the digest scheduler
	if digest, err := do.Invoke[*digestService.Service](injector); err == nil && digest != nil {
		digest.Stop()
	}

	// Drain the ingestion loop
	if monitor, err := do.Invoke[*monitorService.Service](injector); err == nil && monitor != nil {
		monitor.Stop()
	}

	// Close the message store
	if repo, err := do.Invoke[messageRepo.Repository](injector); err == nil && repo != nil {
		if err := repo.Close(); err != nil {
			return oops.With("context", "failed to close message repository").Wrap(err)
		}
	}

	return nil
}
