package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	messageDomain "github.com/reshetovitsme/stalker-bot/internal/modules/message/domain"
	messageService "github.com/reshetovitsme/stalker-bot/internal/modules/message/service"
	"github.com/reshetovitsme/stalker-bot/internal/modules/monitor/domain"
	settingsService "github.com/reshetovitsme/stalker-bot/internal/modules/settings/service"
	"github.com/samber/oops"
)

// LocalTimeZone is the fixed UTC+2 offset used for localized timestamps.
// It is deliberately not the host timezone, so deployments in different
// zones produce identical records.
var LocalTimeZone = time.FixedZone("MSK", 2*60*60)

// Gateway is the transport surface the engine needs: channel accessibility
// checks at startup and best-effort sender resolution per match.
type Gateway interface {
	CheckChannel(ctx context.Context, channelID int64) error
	ResolveSender(ctx context.Context, senderID int64) (*domain.Sender, error)
}

// MatchCallback is invoked once per newly stored match, synchronously from
// the ingestion loop: a slow callback throttles ingestion.
type MatchCallback func(ctx context.Context, message *messageDomain.FoundMessage)

// Service is the ingestion engine: a single consumer over a bounded event
// queue that filters by the channel allow-list, performs whole-word keyword
// matching, enriches and stores matches, and hands fresh inserts to the
// match callback.
type Service struct {
	settings *settingsService.Service
	messages *messageService.Service
	gateway  Gateway
	events   chan domain.ChannelEvent
	callback MatchCallback

	mu       sync.RWMutex
	keywords []string
	channels map[int64]string
	enabled  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates the ingestion engine. queueSize bounds the event queue; a full
// queue backpressures the transport producer.
func New(settings *settingsService.Service, messages *messageService.Service, queueSize int) *Service {
	if queueSize <= 0 {
		queueSize = 256
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		settings: settings,
		messages: messages,
		events:   make(chan domain.ChannelEvent, queueSize),
		channels: map[int64]string{},
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetGateway wires the transport gateway. Must be called before Start.
func (s *Service) SetGateway(gateway Gateway) {
	s.gateway = gateway
}

// SetMatchCallback sets the callback invoked for every newly stored match.
func (s *Service) SetMatchCallback(callback MatchCallback) {
	s.callback = callback
}

// Start loads the live configuration, validates channel accessibility and
// starts the ingestion loop. Inaccessible channels are excluded from the
// active set and logged; they do not fail startup.
func (s *Service) Start(ctx context.Context) error {
	if err := s.ReloadConfig(); err != nil {
		return oops.With("context", "failed to load monitor configuration").Wrap(err)
	}

	s.checkChannelAccess(ctx)

	s.wg.Add(1)
	go s.consumeLoop()

	s.mu.RLock()
	slog.Info("Channel monitor started", "channels", len(s.channels), "keywords", len(s.keywords), "monitoring_enabled", s.enabled)
	s.mu.RUnlock()
	return nil
}

// Stop shuts down the ingestion loop and waits for it to drain.
func (s *Service) Stop() {
	s.cancel()
	s.wg.Wait()
}

// Enqueue hands one transport event to the engine, blocking while the queue
// is full so a lagging consumer backpressures the producer.
func (s *Service) Enqueue(ctx context.Context, event domain.ChannelEvent) error {
	select {
	case s.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

// ReloadConfig re-reads the channel and keyword sets and the monitoring
// flag from the store and swaps the in-memory copies as one unit, so
// in-flight matching never observes a partial set.
func (s *Service) ReloadConfig() error {
	settings, err := s.settings.Settings()
	if err != nil {
		return err
	}

	channels := settings.ChannelMap()
	keywords := append([]string(nil), settings.Keywords...)

	s.mu.Lock()
	s.channels = channels
	s.keywords = keywords
	s.enabled = settings.MonitoringEnabled
	s.mu.Unlock()

	slog.Info("Monitor configuration reloaded", "channels", len(channels), "keywords", len(keywords), "monitoring_enabled", settings.MonitoringEnabled)
	return nil
}

// UpdateKeywords replaces the in-memory keyword set directly, as an atomic
// swap. Used when the caller has already persisted the new set.
func (s *Service) UpdateKeywords(keywords []string) {
	replacement := append([]string(nil), keywords...)

	s.mu.Lock()
	s.keywords = replacement
	s.mu.Unlock()

	slog.Info("Keywords updated", "keywords", replacement)
}

// ChannelCount returns the size of the active channel set.
func (s *Service) ChannelCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.channels)
}

// KeywordCount returns the size of the active keyword set.
func (s *Service) KeywordCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keywords)
}

// checkChannelAccess drops channels the transport cannot reach from the
// active set. The settings document keeps them; a later reload retries.
func (s *Service) checkChannelAccess(ctx context.Context) {
	if s.gateway == nil {
		return
	}

	s.mu.RLock()
	channels := make(map[int64]string, len(s.channels))
	for id, name := range s.channels {
		channels[id] = name
	}
	s.mu.RUnlock()

	accessible := make(map[int64]string, len(channels))
	for id, name := range channels {
		if err := s.gateway.CheckChannel(ctx, id); err != nil {
			slog.Warn("Channel is not accessible, excluding from monitoring", "channel_id", id, "channel_name", name, "error", err)
			continue
		}
		accessible[id] = name
	}

	s.mu.Lock()
	s.channels = accessible
	s.mu.Unlock()

	slog.Info("Channel access check finished", "accessible", len(accessible), "configured", len(channels))
}

func (s *Service) consumeLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case event := <-s.events:
			if err := s.processEvent(s.ctx, event); err != nil {
				var rateLimit *domain.RateLimitError
				if errors.As(err, &rateLimit) {
					slog.Warn("Transport rate limit, suspending ingestion", "retry_after", rateLimit.RetryAfter)
					select {
					case <-time.After(rateLimit.RetryAfter):
					case <-s.ctx.Done():
						return
					}
					continue
				}
				slog.Error("Error processing event", "chat_id", event.ChatID, "message_id", event.MessageID, "error", err)
			}
		}
	}
}

// processEvent runs the full per-event pipeline. Any returned error is
// contained by the consume loop; the subscription never stops.
func (s *Service) processEvent(ctx context.Context, event domain.ChannelEvent) error {
	channelID := domain.CanonicalChannelID(event.ChatID)

	s.mu.RLock()
	enabled := s.enabled
	channelName, watched := s.channels[channelID]
	keywords := s.keywords
	s.mu.RUnlock()

	// The subscription stays open while disabled so channel-access state
	// remains current; events just pass through.
	if !enabled || !watched {
		return nil
	}

	if event.Text == "" {
		return nil
	}

	found := matchKeywords(event.Text, keywords)
	if len(found) == 0 {
		return nil
	}

	sender, err := s.resolveSender(ctx, event.SenderID)
	if err != nil {
		return err
	}

	sourceTime := event.Date.UTC()
	record := &messageDomain.FoundMessage{
		MessageID:       event.MessageID,
		ChannelID:       channelID,
		ChannelName:     channelName,
		Text:            event.Text,
		FoundKeywords:   found,
		Date:            sourceTime,
		LocalTime:       sourceTime.In(LocalTimeZone),
		SenderID:        event.SenderID,
		SenderUsername:  sender.Username,
		SenderFirstName: sender.FirstName,
		SenderLastName:  sender.LastName,
		SenderFullName:  sender.FullName(event.SenderID),
		IsForwarded:     event.IsForwarded,
	}

	inserted, err := s.messages.AddMessage(record)
	if err != nil {
		return oops.With("channel_id", channelID, "message_id", event.MessageID, "context", "failed to store match").Wrap(err)
	}
	if !inserted {
		return nil
	}

	slog.Info("Found message with keywords", "keywords", found, "channel_name", channelName, "channel_id", channelID, "message_id", event.MessageID)

	if s.callback != nil {
		s.callback(ctx, record)
	}
	return nil
}

// resolveSender looks the sender up through the gateway. A rate-limit error
// is propagated so the consume loop can back off; any other failure degrades
// to the synthetic identity.
func (s *Service) resolveSender(ctx context.Context, senderID int64) (*domain.Sender, error) {
	if s.gateway == nil || senderID == 0 {
		return &domain.Sender{}, nil
	}

	sender, err := s.gateway.ResolveSender(ctx, senderID)
	if err != nil {
		var rateLimit *domain.RateLimitError
		if errors.As(err, &rateLimit) {
			return nil, err
		}
		slog.Warn("Failed to resolve sender, using synthetic identity", "sender_id", senderID, "error", err)
		return &domain.Sender{}, nil
	}
	return sender, nil
}
