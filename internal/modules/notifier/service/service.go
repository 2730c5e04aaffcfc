package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	messageDomain "github.com/reshetovitsme/stalker-bot/internal/modules/message/domain"
	settingsService "github.com/reshetovitsme/stalker-bot/internal/modules/settings/service"
)

// maxAlertTextRunes bounds the quoted message body in an alert.
const maxAlertTextRunes = 500

// Deliverer sends one rendered message to one recipient.
type Deliverer interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Service renders match alerts and operational banners and fans them out to
// the current admin set. Delivery is best-effort: one failing recipient
// never aborts the rest.
type Service struct {
	settings  *settingsService.Service
	deliverer Deliverer
}

// New creates a new notification dispatcher.
func New(settings *settingsService.Service) *Service {
	return &Service{
		settings: settings,
	}
}

// SetDeliverer wires the transport used for delivery.
func (s *Service) SetDeliverer(deliverer Deliverer) {
	s.deliverer = deliverer
}

// Notify renders the alert for a stored match and delivers it to every
// admin independently, returning delivered and attempted counts.
func (s *Service) Notify(ctx context.Context, message *messageDomain.FoundMessage) (delivered, attempted int) {
	delivered, attempted = s.Broadcast(ctx, RenderAlert(message))
	slog.Info("Match alert dispatched", "channel_name", message.ChannelName, "message_id", message.MessageID, "delivered", delivered, "attempted", attempted)
	return delivered, attempted
}

// Broadcast delivers text to every admin concurrently, with per-recipient
// error isolation, returning delivered and attempted counts.
func (s *Service) Broadcast(ctx context.Context, text string) (delivered, attempted int) {
	adminIDs, err := s.settings.AdminIDs()
	if err != nil {
		slog.Error("Failed to load admin list for broadcast", "error", err)
		return 0, 0
	}

	var (
		wg      sync.WaitGroup
		success atomic.Int64
	)
	for _, adminID := range adminIDs {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			if err := s.SendTo(ctx, id, text); err != nil {
				return
			}
			success.Add(1)
		}(adminID)
	}
	wg.Wait()

	return int(success.Load()), len(adminIDs)
}

// SendTo delivers text to a single recipient. Failures are logged with the
// recipient id and returned, never panicked.
func (s *Service) SendTo(ctx context.Context, chatID int64, text string) error {
	if s.deliverer == nil {
		slog.Warn("No deliverer configured, dropping notification", "chat_id", chatID)
		return nil
	}

	if err := s.deliverer.SendMessage(ctx, chatID, text); err != nil {
		slog.Warn("Failed to deliver notification", "chat_id", chatID, "error", err)
		return err
	}
	return nil
}

// RenderAlert formats the alert for a stored match: channel, sender,
// matched keywords, localized time and the message body truncated at the
// alert budget.
func RenderAlert(message *messageDomain.FoundMessage) string {
	senderInfo := message.SenderFullName
	if message.SenderUsername != "" && message.SenderUsername != message.SenderFullName {
		senderInfo = fmt.Sprintf("%s (%s)", message.SenderFullName, message.SenderUsername)
	}

	return fmt.Sprintf(
		"🎯 <b>Найдено новое сообщение!</b>\n\n"+
			"📺 <b>Канал:</b> %s\n"+
			"👤 <b>Пользователь:</b> %s\n"+
			"🔑 <b>Ключевые слова:</b> <i>%s</i>\n"+
			"📅 <b>Время:</b> %s\n\n"+
			"💬 <b>Текст сообщения:</b>\n%s",
		message.ChannelName,
		senderInfo,
		strings.Join(message.FoundKeywords, ", "),
		message.LocalTime.Format("02.01.2006 15:04:05 MST"),
		truncate(message.Text, maxAlertTextRunes),
	)
}

// truncate cuts s at limit runes, appending an ellipsis marker when
// anything was dropped.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
