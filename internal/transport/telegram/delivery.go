package telegram

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Deliverer sends rendered notifications through the Bot API with HTML
// formatting, one call per recipient.
type Deliverer struct {
	bot *bot.Bot
}

// NewDeliverer creates a notification deliverer backed by the Bot API.
func NewDeliverer(b *bot.Bot) *Deliverer {
	return &Deliverer{bot: b}
}

func (d *Deliverer) SendMessage(ctx context.Context, chatID int64, text string) error {
	_, err := d.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	return err
}
