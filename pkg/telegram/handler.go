package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/domain"
	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/logger"
	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/plugin"
)

const helpQuery = "help"

type Dispatcher interface {
	Dispatch(ctx context.Context, event plugin.Event) *plugin.EventContext
}

type Typer interface {
	StartTyping(ctx context.Context, chatID int64)
}

type handler struct {
	dispatcher Dispatcher
	typer      Typer
	prefixes   []string
	responseCh chan<- domain.Response
}

// NewHandler turns updates into plugin events. Messages starting with one of
// prefixes request an image. Photos are passed on by file id, the plugin
// downloads them only when it waits for one.
func NewHandler(
	dispatcher Dispatcher,
	typer Typer,
	prefixes []string,
	responseCh chan<- domain.Response,
) *handler {
	return &handler{
		dispatcher: dispatcher,
		typer:      typer,
		prefixes:   prefixes,
		responseCh: responseCh,
	}
}

func (h *handler) HandleUpdate(ctx context.Context, update *tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		h.handleCallback(ctx, update.CallbackQuery)

	case update.Message != nil:
		h.handleMessage(ctx, update.Message)
	}
}

func (h *handler) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil {
		slog.WarnContext(ctx, "Callback without message", "data", callback.Data)
		return
	}

	generationID, ok := strings.CutPrefix(callback.Data, domain.RepeatCallbackPrefix)
	if !ok {
		slog.WarnContext(ctx, "Unhandled callback", "data", callback.Data)
		return
	}

	h.dispatch(ctx, plugin.Event{
		Kind:      plugin.EventRepeat,
		SessionID: SessionID(callback.Message.Chat.ID, callback.From.ID),
		ChatID:    callback.Message.Chat.ID,
		Content:   generationID,
	})
}

func (h *handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	event := plugin.Event{
		SessionID: SessionID(msg.Chat.ID, userID(msg)),
		ChatID:    msg.Chat.ID,
	}

	switch {
	case len(msg.Photo) > 0:
		event.Kind = plugin.EventImageUpload
		event.Content = msg.Photo[len(msg.Photo)-1].FileID

	case isCommand(msg.Text):
		if !isHelpCommand(msg.Text) {
			slog.WarnContext(ctx, "Unhandled command", "cmd", msg.Text)
			return
		}
		event.Kind = plugin.EventImageCreate
		event.Content = helpQuery

	default:
		if query, ok := h.stripPrefix(msg.Text); ok {
			event.Kind = plugin.EventImageCreate
			event.Content = query
		} else {
			event.Kind = plugin.EventText
			event.Content = msg.Text
		}
	}

	h.dispatch(ctx, event)
}

func (h *handler) dispatch(ctx context.Context, event plugin.Event) {
	ctx = logger.ContextWithSessionID(ctx, event.SessionID)

	if event.Kind == plugin.EventImageCreate || event.Kind == plugin.EventRepeat {
		h.typer.StartTyping(ctx, event.ChatID)
	}

	ec := h.dispatcher.Dispatch(ctx, event)
	if ec.Reply == nil {
		slog.DebugContext(ctx, "No reply for event", "kind", event.Kind.String())
		return
	}

	h.send(ctx, event.ChatID, ec.Reply)
}

func (h *handler) send(ctx context.Context, chatID int64, reply *domain.Reply) {
	select {
	case h.responseCh <- domain.Response{ChatID: chatID, Reply: *reply}:
	case <-ctx.Done():
		slog.WarnContext(ctx, "Reply dropped", logger.Err(ctx.Err()))
	}
}

func (h *handler) stripPrefix(text string) (string, bool) {
	for _, prefix := range h.prefixes {
		if rest, ok := strings.CutPrefix(text, prefix); ok {
			return strings.TrimSpace(rest), true
		}
	}
	return "", false
}

// SessionID identifies one user inside one chat.
func SessionID(chatID, userID int64) string {
	return fmt.Sprintf("%d:%d", chatID, userID)
}

func userID(msg *tgbotapi.Message) int64 {
	if msg.From == nil {
		return msg.Chat.ID
	}
	return msg.From.ID
}

func isCommand(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "/")
}

func isHelpCommand(text string) bool {
	cmd := strings.ToLower(strings.TrimSpace(text))
	cmd, _, _ = strings.Cut(cmd, " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	return cmd == "/help" || cmd == "/start"
}
