package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	messageDomain "github.com/reshetovitsme/stalker-bot/internal/modules/message/domain"
	messageService "github.com/reshetovitsme/stalker-bot/internal/modules/message/service"
	monitorDomain "github.com/reshetovitsme/stalker-bot/internal/modules/monitor/domain"
	monitorService "github.com/reshetovitsme/stalker-bot/internal/modules/monitor/service"
	reloadService "github.com/reshetovitsme/stalker-bot/internal/modules/reload/service"
	settingsDomain "github.com/reshetovitsme/stalker-bot/internal/modules/settings/domain"
	settingsService "github.com/reshetovitsme/stalker-bot/internal/modules/settings/service"
	"github.com/reshetovitsme/stalker-bot/internal/shared/config"
	"github.com/samber/lo"
)

// Handler is the operator-facing control surface: command handlers with
// role checks, the conversation flow for multi-step input, and the default
// update handler that feeds channel posts into the ingestion engine.
type Handler struct {
	cfg           *config.Config
	settings      *settingsService.Service
	messages      *messageService.Service
	monitor       *monitorService.Service
	reloader      *reloadService.Service
	conversations *conversations
}

// New creates a new Telegram handler.
func New(cfg *config.Config, settings *settingsService.Service, messages *messageService.Service, monitor *monitorService.Service, reloader *reloadService.Service) *Handler {
	return &Handler{
		cfg:           cfg,
		settings:      settings,
		messages:      messages,
		monitor:       monitor,
		reloader:      reloader,
		conversations: newConversations(),
	}
}

// RegisterCommands registers all operator commands.
func (h *Handler) RegisterCommands(b *bot.Bot) {
	b.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, h.requireAdmin(h.handleStart))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, h.requireAdmin(h.handleStart))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/status", bot.MatchTypeExact, h.requireAdmin(h.handleStatus))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/keywords", bot.MatchTypeExact, h.requireAdmin(h.handleKeywords))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/setkeywords", bot.MatchTypeExact, h.requireAdmin(h.handleSetKeywords))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/channels", bot.MatchTypeExact, h.requireAdmin(h.handleChannels))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/addchannel", bot.MatchTypeExact, h.requireAdmin(h.handleAddChannel))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/removechannel", bot.MatchTypePrefix, h.requireAdmin(h.handleRemoveChannel))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/renamechannel", bot.MatchTypePrefix, h.requireAdmin(h.handleRenameChannel))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/admins", bot.MatchTypeExact, h.requireAdmin(h.handleAdmins))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/addadmin", bot.MatchTypeExact, h.requireSuperAdmin(h.handleAddAdmin))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/removeadmin", bot.MatchTypeExact, h.requireSuperAdmin(h.handleRemoveAdmin))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/toggle", bot.MatchTypeExact, h.requireAdmin(h.handleToggle))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/recent", bot.MatchTypeExact, h.requireAdmin(h.handleRecent))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/search", bot.MatchTypeExact, h.requireAdmin(h.handleSearch))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/clear", bot.MatchTypeExact, h.requireSuperAdmin(h.handleClear))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/mode", bot.MatchTypePrefix, h.requireAdmin(h.handleMode))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/cancel", bot.MatchTypeExact, h.requireAdmin(h.handleCancel))
}

// HandleUpdate is the default handler: channel posts go to the ingestion
// engine, private text from an admin continues a pending conversation.
func (h *Handler) HandleUpdate(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.ChannelPost != nil {
		h.ingestChannelPost(ctx, update.ChannelPost)
		return
	}
	if update.Message == nil {
		return
	}
	if update.Message.Chat.Type == models.ChatTypeChannel {
		h.ingestChannelPost(ctx, update.Message)
		return
	}
	if update.Message.From == nil || !h.settings.IsAdmin(update.Message.From.ID) {
		return
	}
	h.continueConversation(ctx, b, update)
}

// ingestChannelPost converts a raw channel message into an engine event.
// Filtering happens inside the engine, not here; the handler only adapts.
func (h *Handler) ingestChannelPost(ctx context.Context, msg *models.Message) {
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	var senderID int64
	if msg.From != nil {
		senderID = msg.From.ID
	}

	event := monitorDomain.ChannelEvent{
		ChatID:      msg.Chat.ID,
		MessageID:   msg.ID,
		Text:        text,
		Date:        time.Unix(int64(msg.Date), 0).UTC(),
		SenderID:    senderID,
		IsForwarded: msg.ForwardOrigin != nil,
	}

	if err := h.monitor.Enqueue(ctx, event); err != nil {
		slog.Warn("Failed to enqueue channel post", "chat_id", msg.Chat.ID, "message_id", msg.ID, "error", err)
	}
}

// requireAdmin wraps a handler with an admin-role check.
func (h *Handler) requireAdmin(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update.Message == nil || update.Message.From == nil {
			return
		}
		if !h.settings.IsAdmin(update.Message.From.ID) {
			h.reply(ctx, b, update, "❌ У вас нет доступа к этому боту.")
			return
		}
		next(ctx, b, update)
	}
}

// requireSuperAdmin wraps a handler with a super-admin-role check.
func (h *Handler) requireSuperAdmin(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update.Message == nil || update.Message.From == nil {
			return
		}
		if !h.settings.IsSuperAdmin(update.Message.From.ID) {
			h.reply(ctx, b, update, "❌ Эта команда доступна только суперадмину.")
			return
		}
		next(ctx, b, update)
	}
}

func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	text := `👋 Stalker Bot — мониторинг каналов по ключевым словам.

Команды:
/status - состояние мониторинга
/keywords - список ключевых слов
/setkeywords - заменить ключевые слова
/channels - отслеживаемые каналы
/addchannel - добавить канал
/removechannel <id> - удалить канал
/renamechannel <id> <название> - переименовать канал
/admins - список админов
/addadmin - добавить админа (суперадмин)
/removeadmin - удалить админа (суперадмин)
/toggle - включить/выключить мониторинг
/recent - последние найденные сообщения
/search - поиск по найденным сообщениям
/clear - очистить найденные сообщения (суперадмин)
/mode <channels|email|none> - режим работы
/cancel - отменить текущий ввод`

	h.reply(ctx, b, update, text)
}

func (h *Handler) handleStatus(ctx context.Context, b *bot.Bot, update *models.Update) {
	settings, err := h.settings.Settings()
	if err != nil {
		h.replyError(ctx, b, update, err)
		return
	}
	count, err := h.messages.Count()
	if err != nil {
		h.replyError(ctx, b, update, err)
		return
	}

	state := "🔴 выключен"
	if settings.MonitoringEnabled {
		state = "🟢 включен"
	}

	h.reply(ctx, b, update, fmt.Sprintf(
		"📊 <b>Статус</b>\n\n"+
			"🔍 Мониторинг: %s\n"+
			"📺 Каналов: %d (доступно: %d)\n"+
			"🔑 Ключевых слов: %d\n"+
			"📨 Найдено сообщений: %d\n"+
			"⚙️ Режим: %s\n"+
			"💾 Хранилище: %s\n"+
			"🕒 Обновлено: %s",
		state,
		len(settings.Channels),
		h.monitor.ChannelCount(),
		len(settings.Keywords),
		count,
		settings.BotMode,
		h.cfg.StorageBackend,
		settings.LastUpdate.In(monitorService.LocalTimeZone).Format("02.01.2006 15:04:05"),
	))
}

func (h *Handler) handleKeywords(ctx context.Context, b *bot.Bot, update *models.Update) {
	keywords, err := h.settings.Keywords()
	if err != nil {
		h.replyError(ctx, b, update, err)
		return
	}
	h.reply(ctx, b, update, "🔑 <b>Ключевые слова:</b>\n"+strings.Join(keywords, ", "))
}

func (h *Handler) handleSetKeywords(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.conversations.set(update.Message.Chat.ID, conversation{state: stateAwaitingKeywordInput})
	h.reply(ctx, b, update, "Введите новые ключевые слова через запятую (или /cancel):")
}

func (h *Handler) handleChannels(ctx context.Context, b *bot.Bot, update *models.Update) {
	channels, err := h.settings.Channels()
	if err != nil {
		h.replyError(ctx, b, update, err)
		return
	}
	if len(channels) == 0 {
		h.reply(ctx, b, update, "📺 Каналов пока нет. Добавьте через /addchannel.")
		return
	}

	var sb strings.Builder
	sb.WriteString("📺 <b>Отслеживаемые каналы:</b>\n")
	for id, name := range channels {
		fmt.Fprintf(&sb, "• %s (<code>%d</code>)\n", name, id)
	}
	h.reply(ctx, b, update, sb.String())
}

func (h *Handler) handleAddChannel(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.conversations.set(update.Message.Chat.ID, conversation{state: stateAwaitingChannelID})
	h.reply(ctx, b, update, "Введите ID канала (например 1495211598 или -1001495211598):")
}

func (h *Handler) handleRemoveChannel(ctx context.Context, b *bot.Bot, update *models.Update) {
	parts := strings.Fields(update.Message.Text)
	if len(parts) < 2 {
		h.reply(ctx, b, update, "Использование: /removechannel <id>")
		return
	}
	channelID, err := parseChannelID(parts[1])
	if err != nil {
		h.reply(ctx, b, update, "❌ Некорректный ID канала.")
		return
	}

	removed, err := h.reloader.RemoveChannel(channelID)
	if err != nil {
		h.replyError(ctx, b, update, err)
		return
	}
	if !removed {
		h.reply(ctx, b, update, "❌ Канал не найден.")
		return
	}
	h.reply(ctx, b, update, fmt.Sprintf("✅ Канал <code>%d</code> удален.", channelID))
}

func (h *Handler) handleRenameChannel(ctx context.Context, b *bot.Bot, update *models.Update) {
	parts := strings.Fields(update.Message.Text)
	if len(parts) < 3 {
		h.reply(ctx, b, update, "Использование: /renamechannel <id> <новое название>")
		return
	}
	channelID, err := parseChannelID(parts[1])
	if err != nil {
		h.reply(ctx, b, update, "❌ Некорректный ID канала.")
		return
	}
	name := strings.Join(parts[2:], " ")

	renamed, err := h.reloader.RenameChannel(channelID, name)
	if err != nil {
		h.replyError(ctx, b, update, err)
		return
	}
	if !renamed {
		h.reply(ctx, b, update, "❌ Канал не найден.")
		return
	}
	h.reply(ctx, b, update, fmt.Sprintf("✅ Канал <code>%d</code> переименован в «%s».", channelID, name))
}

func (h *Handler) handleAdmins(ctx context.Context, b *bot.Bot, update *models.Update) {
	adminIDs, err := h.settings.AdminIDs()
	if err != nil {
		h.replyError(ctx, b, update, err)
		return
	}

	lines := lo.Map(adminIDs, func(id int64, _ int) string {
		if h.settings.IsSuperAdmin(id) {
			return fmt.Sprintf("• <code>%d</code> (суперадмин)", id)
		}
		return fmt.Sprintf("• <code>%d</code>", id)
	})
	h.reply(ctx, b, update, "👥 <b>Админы:</b>\n"+strings.Join(lines, "\n"))
}

func (h *Handler) handleAddAdmin(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.conversations.set(update.Message.Chat.ID, conversation{state: stateAwaitingAdminID, pendingAdminOp: adminOpAdd})
	h.reply(ctx, b, update, "Введите ID пользователя для добавления в админы:")
}

func (h *Handler) handleRemoveAdmin(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.conversations.set(update.Message.Chat.ID, conversation{state: stateAwaitingAdminID, pendingAdminOp: adminOpRemove})
	h.reply(ctx, b, update, "Введите ID пользователя для удаления из админов:")
}

func (h *Handler) handleToggle(ctx context.Context, b *bot.Bot, update *models.Update) {
	enabled, err := h.reloader.ToggleMonitoring()
	if err != nil {
		h.replyError(ctx, b, update, err)
		return
	}
	if enabled {
		h.reply(ctx, b, update, "🟢 Мониторинг включен.")
		return
	}
	h.reply(ctx, b, update, "🔴 Мониторинг выключен.")
}

func (h *Handler) handleRecent(ctx context.Context, b *bot.Bot, update *models.Update) {
	messages, err := h.messages.GetRecentMessages(10)
	if err != nil {
		h.replyError(ctx, b, update, err)
		return
	}
	if len(messages) == 0 {
		h.reply(ctx, b, update, "📨 Пока ничего не найдено.")
		return
	}
	h.reply(ctx, b, update, renderMessageList("📨 <b>Последние находки:</b>", messages))
}

func (h *Handler) handleSearch(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.conversations.set(update.Message.Chat.ID, conversation{state: stateAwaitingSearchText})
	h.reply(ctx, b, update, "Введите текст для поиска по найденным сообщениям:")
}

func (h *Handler) handleClear(ctx context.Context, b *bot.Bot, update *models.Update) {
	if err := h.messages.ClearMessages(); err != nil {
		h.replyError(ctx, b, update, err)
		return
	}
	h.reply(ctx, b, update, "🗑 Найденные сообщения очищены.")
}

func (h *Handler) handleMode(ctx context.Context, b *bot.Bot, update *models.Update) {
	parts := strings.Fields(update.Message.Text)
	if len(parts) < 2 {
		mode, err := h.settings.BotMode()
		if err != nil {
			h.replyError(ctx, b, update, err)
			return
		}
		h.reply(ctx, b, update, fmt.Sprintf("⚙️ Текущий режим: <b>%s</b>\nИспользование: /mode <channels|email|none>", mode))
		return
	}

	mode, err := settingsDomain.ParseBotMode(parts[1])
	if err != nil {
		h.reply(ctx, b, update, "❌ Неизвестный режим. Доступны: channels, email, none.")
		return
	}
	if err := h.settings.SetBotMode(mode); err != nil {
		h.replyError(ctx, b, update, err)
		return
	}
	h.reply(ctx, b, update, fmt.Sprintf("✅ Режим переключен на <b>%s</b>.", mode))
}

func (h *Handler) handleCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.conversations.reset(update.Message.Chat.ID)
	h.reply(ctx, b, update, "Ввод отменен.")
}

// continueConversation advances the conversation with the operator's text
// input. Unknown input in the idle state is ignored.
func (h *Handler) continueConversation(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	text := strings.TrimSpace(update.Message.Text)
	conv := h.conversations.get(chatID)

	switch conv.state {
	case stateAwaitingKeywordInput:
		h.conversations.reset(chatID)
		keywords, err := h.reloader.ApplyKeywords(text)
		if err != nil {
			h.reply(ctx, b, update, "❌ Список ключевых слов не может быть пустым. Прежний набор сохранен.")
			return
		}
		h.reply(ctx, b, update, "✅ Ключевые слова обновлены: "+strings.Join(keywords, ", "))

	case stateAwaitingChannelID:
		channelID, err := parseChannelID(text)
		if err != nil {
			h.reply(ctx, b, update, "❌ Некорректный ID. Введите числовой ID канала или /cancel.")
			return
		}
		h.conversations.set(chatID, conversation{state: stateAwaitingChannelName, pendingChannelID: channelID})
		h.reply(ctx, b, update, "Введите название канала:")

	case stateAwaitingChannelName:
		h.conversations.reset(chatID)
		if text == "" {
			h.reply(ctx, b, update, "❌ Название не может быть пустым.")
			return
		}
		added, err := h.reloader.AddChannel(conv.pendingChannelID, text)
		if err != nil {
			h.replyError(ctx, b, update, err)
			return
		}
		if !added {
			h.reply(ctx, b, update, "❌ Такой канал уже есть.")
			return
		}
		h.reply(ctx, b, update, fmt.Sprintf("✅ Канал «%s» (<code>%d</code>) добавлен.", text, conv.pendingChannelID))

	case stateAwaitingAdminID:
		h.conversations.reset(chatID)
		userID, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			h.reply(ctx, b, update, "❌ Некорректный ID пользователя.")
			return
		}
		h.applyAdminOp(ctx, b, update, conv.pendingAdminOp, userID)

	case stateAwaitingSearchText:
		h.conversations.reset(chatID)
		if text == "" {
			h.reply(ctx, b, update, "❌ Пустой поисковый запрос.")
			return
		}
		found, err := h.messages.SearchMessages(text)
		if err != nil {
			h.replyError(ctx, b, update, err)
			return
		}
		if len(found) == 0 {
			h.reply(ctx, b, update, "🔍 Ничего не найдено.")
			return
		}
		if len(found) > 10 {
			found = found[len(found)-10:]
		}
		h.reply(ctx, b, update, renderMessageList("🔍 <b>Результаты поиска:</b>", found))
	}
}

func (h *Handler) applyAdminOp(ctx context.Context, b *bot.Bot, update *models.Update, op adminOp, userID int64) {
	switch op {
	case adminOpAdd:
		added, err := h.settings.AddAdmin(userID)
		if err != nil {
			h.replyError(ctx, b, update, err)
			return
		}
		if !added {
			h.reply(ctx, b, update, "❌ Пользователь уже админ.")
			return
		}
		h.reply(ctx, b, update, fmt.Sprintf("✅ Пользователь <code>%d</code> добавлен в админы.", userID))

	case adminOpRemove:
		removed, err := h.settings.RemoveAdmin(userID)
		if err != nil {
			h.replyError(ctx, b, update, err)
			return
		}
		if !removed {
			if h.settings.IsSuperAdmin(userID) {
				h.reply(ctx, b, update, "❌ Суперадмина удалить нельзя.")
				return
			}
			h.reply(ctx, b, update, "❌ Такого админа нет.")
			return
		}
		h.reply(ctx, b, update, fmt.Sprintf("✅ Пользователь <code>%d</code> удален из админов.", userID))
	}
}

func (h *Handler) reply(ctx context.Context, b *bot.Bot, update *models.Update, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    update.Message.Chat.ID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		slog.Warn("Failed to send reply", "chat_id", update.Message.Chat.ID, "error", err)
	}
}

func (h *Handler) replyError(ctx context.Context, b *bot.Bot, update *models.Update, err error) {
	slog.Error("Command failed", "chat_id", update.Message.Chat.ID, "text", update.Message.Text, "error", err)
	h.reply(ctx, b, update, "❌ Произошла ошибка, попробуйте еще раз.")
}

// parseChannelID accepts both the canonical and the -100 prefixed forms and
// always returns the canonical one.
func parseChannelID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	return monitorDomain.CanonicalChannelID(id), nil
}

// renderMessageList formats stored matches for operator display, each body
// truncated for readability.
func renderMessageList(title string, messages []*messageDomain.FoundMessage) string {
	var sb strings.Builder
	sb.WriteString(title)
	sb.WriteString("\n\n")
	for _, msg := range messages {
		text := msg.Text
		if runes := []rune(text); len(runes) > 200 {
			text = string(runes[:200]) + "..."
		}
		fmt.Fprintf(&sb, "📺 %s\n🔑 %s\n💬 %s\n📅 %s\n\n",
			msg.ChannelName,
			strings.Join(msg.FoundKeywords, ", "),
			text,
			msg.LocalTime.Format("02.01.2006 15:04:05"),
		)
	}
	return strings.TrimRight(sb.String(), "\n")
}
