package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	messageDomain "github.com/reshetovitsme/stalker-bot/internal/modules/message/domain"
	settingsRepo "github.com/reshetovitsme/stalker-bot/internal/modules/settings/repository"
	settingsService "github.com/reshetovitsme/stalker-bot/internal/modules/settings/service"
)

type fakeDeliverer struct {
	mu      sync.Mutex
	sent    map[int64]string
	failFor map[int64]bool
}

func newFakeDeliverer(failFor ...int64) *fakeDeliverer {
	failing := map[int64]bool{}
	for _, id := range failFor {
		failing[id] = true
	}
	return &fakeDeliverer{
		sent:    map[int64]string{},
		failFor: failing,
	}
}

func (d *fakeDeliverer) SendMessage(ctx context.Context, chatID int64, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.failFor[chatID] {
		return errors.New("blocked by user")
	}
	d.sent[chatID] = text
	return nil
}

func newTestNotifier(t *testing.T, adminIDs []int64) *Service {
	t.Helper()
	repo, err := settingsRepo.NewFileStorage(t.TempDir(), adminIDs[0], adminIDs[1:])
	if err != nil {
		t.Fatalf("NewFileStorage: %v", err)
	}
	return New(settingsService.New(repo, adminIDs[0]))
}

func TestBroadcastIsolatesFailingRecipient(t *testing.T) {
	svc := newTestNotifier(t, []int64{111, 222, 333})
	deliverer := newFakeDeliverer(222)
	svc.SetDeliverer(deliverer)

	delivered, attempted := svc.Broadcast(context.Background(), "hello")
	if attempted != 3 {
		t.Errorf("expected 3 attempts, got %d", attempted)
	}
	if delivered != 2 {
		t.Errorf("expected 2 deliveries, got %d", delivered)
	}

	deliverer.mu.Lock()
	defer deliverer.mu.Unlock()
	if deliverer.sent[111] != "hello" || deliverer.sent[333] != "hello" {
		t.Errorf("unexpected deliveries: %v", deliverer.sent)
	}
	if _, ok := deliverer.sent[222]; ok {
		t.Error("failing recipient must not be recorded as delivered")
	}
}

func TestBroadcastWithoutDeliverer(t *testing.T) {
	svc := newTestNotifier(t, []int64{111})

	delivered, attempted := svc.Broadcast(context.Background(), "hello")
	if attempted != 1 || delivered != 1 {
		t.Errorf("expected drop-as-success without deliverer, got delivered=%d attempted=%d", delivered, attempted)
	}
}

func TestNotifyDeliversRenderedAlert(t *testing.T) {
	svc := newTestNotifier(t, []int64{111})
	deliverer := newFakeDeliverer()
	svc.SetDeliverer(deliverer)

	msg := &messageDomain.FoundMessage{
		MessageID:      7,
		ChannelID:      123,
		ChannelName:    "Test Channel",
		Text:           "ищу помощь",
		FoundKeywords:  []string{"ищу"},
		LocalTime:      time.Date(2026, 8, 1, 14, 0, 0, 0, time.FixedZone("MSK", 2*60*60)),
		SenderFullName: "Ivan",
	}

	delivered, attempted := svc.Notify(context.Background(), msg)
	if delivered != 1 || attempted != 1 {
		t.Fatalf("Notify: delivered=%d attempted=%d", delivered, attempted)
	}

	deliverer.mu.Lock()
	text := deliverer.sent[111]
	deliverer.mu.Unlock()

	for _, want := range []string{"Test Channel", "Ivan", "ищу", "01.08.2026 14:00:00"} {
		if !strings.Contains(text, want) {
			t.Errorf("alert missing %q:\n%s", want, text)
		}
	}
}

func TestRenderAlertCombinesSenderNameAndUsername(t *testing.T) {
	msg := &messageDomain.FoundMessage{
		ChannelName:    "Test Channel",
		Text:           "x",
		FoundKeywords:  []string{"x"},
		LocalTime:      time.Now(),
		SenderFullName: "Ivan Petrov",
		SenderUsername: "@ivan",
	}

	alert := RenderAlert(msg)
	if !strings.Contains(alert, "Ivan Petrov (@ivan)") {
		t.Errorf("expected combined sender info, got:\n%s", alert)
	}
}

func TestRenderAlertTruncatesLongText(t *testing.T) {
	long := strings.Repeat("д", maxAlertTextRunes+100)
	msg := &messageDomain.FoundMessage{
		ChannelName:    "Test Channel",
		Text:           long,
		FoundKeywords:  []string{"x"},
		LocalTime:      time.Now(),
		SenderFullName: "Ivan",
	}

	alert := RenderAlert(msg)
	if !strings.HasSuffix(alert, "...") {
		t.Error("expected truncated alert to end with ellipsis")
	}

	// The quoted body is capped at the budget plus the marker.
	body := alert[strings.LastIndex(alert, "\n")+1:]
	if got := len([]rune(body)); got != maxAlertTextRunes+3 {
		t.Errorf("expected %d runes in body, got %d", maxAlertTextRunes+3, got)
	}
}

func TestRenderAlertKeepsShortTextIntact(t *testing.T) {
	msg := &messageDomain.FoundMessage{
		ChannelName:    "Test Channel",
		Text:           "короткое сообщение",
		FoundKeywords:  []string{"x"},
		LocalTime:      time.Now(),
		SenderFullName: "Ivan",
	}

	alert := RenderAlert(msg)
	if !strings.Contains(alert, "короткое сообщение") {
		t.Errorf("short text mangled:\n%s", alert)
	}
	if strings.HasSuffix(alert, "...") {
		t.Error("short text must not be truncated")
	}
}
