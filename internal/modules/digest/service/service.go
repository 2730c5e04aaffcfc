package service

import (
	"context"
	"fmt"
	"log/slog"

	messageService "github.com/reshetovitsme/stalker-bot/internal/modules/message/service"
	notifierService "github.com/reshetovitsme/stalker-bot/internal/modules/notifier/service"
	settingsService "github.com/reshetovitsme/stalker-bot/internal/modules/settings/service"
	"github.com/robfig/cron/v3"
	"github.com/samber/oops"
)

// Service broadcasts a periodic stats digest to the admin list on a cron
// schedule. An empty schedule disables it.
type Service struct {
	schedule string
	settings *settingsService.Service
	messages *messageService.Service
	notifier *notifierService.Service
	cron     *cron.Cron
}

// New creates a new digest scheduler.
func New(schedule string, settings *settingsService.Service, messages *messageService.Service, notifier *notifierService.Service) *Service {
	return &Service{
		schedule: schedule,
		settings: settings,
		messages: messages,
		notifier: notifier,
	}
}

// Start schedules the digest job.
func (s *Service) Start() error {
	if s.schedule == "" {
		slog.Info("Digest disabled, no schedule configured")
		return nil
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.schedule, s.send); err != nil {
		return oops.With("schedule", s.schedule, "context", "failed to schedule digest").Wrap(err)
	}
	s.cron.Start()

	slog.Info("Digest scheduled", "schedule", s.schedule)
	return nil
}

// Stop cancels the schedule.
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func (s *Service) send() {
	text, err := s.Render()
	if err != nil {
		slog.Error("Failed to build digest", "error", err)
		return
	}

	delivered, attempted := s.notifier.Broadcast(context.Background(), text)
	slog.Info("Digest broadcast", "delivered", delivered, "attempted", attempted)
}

// Render builds the digest text from live stats.
func (s *Service) Render() (string, error) {
	settings, err := s.settings.Settings()
	if err != nil {
		return "", err
	}

	count, err := s.messages.Count()
	if err != nil {
		return "", err
	}

	state := "выключен"
	if settings.MonitoringEnabled {
		state = "включен"
	}

	return fmt.Sprintf(
		"📊 <b>Сводка Stalker Bot</b>\n\n"+
			"📺 Каналов: %d\n"+
			"🔑 Ключевых слов: %d\n"+
			"📨 Найдено сообщений: %d\n"+
			"🔍 Мониторинг: %s",
		len(settings.Channels),
		len(settings.Keywords),
		count,
		state,
	), nil
}
