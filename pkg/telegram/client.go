package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/domain"
	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/logger"
)

const (
	deliveryFailedText = "Failed to deliver the reply"
	repeatButtonText   = "🔁 Repeat"
)

type client struct {
	token       string
	bot         *tgbotapi.BotAPI
	updatesCh   tgbotapi.UpdatesChannel
	downloadDir string
}

func NewClient(token, downloadDir string) (*client, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("creating bot api instance: %w", err)
	}

	slog.Info("Authorized on telegram", "account", bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	return &client{
		token:       token,
		bot:         bot,
		updatesCh:   bot.GetUpdatesChan(u),
		downloadDir: downloadDir,
	}, nil
}

func (c *client) GetUpdates() tgbotapi.UpdatesChannel {
	return c.updatesCh
}

func (c *client) SendResponse(ctx context.Context, response *domain.Response) {
	msg := ToChattable(response)
	if _, err := c.bot.Send(msg); err != nil {
		slog.ErrorContext(ctx, "Sending response failed", "chatID", response.ChatID, logger.Err(err))

		if _, err := c.bot.Send(tgbotapi.NewMessage(response.ChatID, deliveryFailedText)); err != nil {
			slog.ErrorContext(ctx, "Sending failure notification failed", logger.Err(err))
		}
	}
}

func (c *client) AcknowledgeCallback(ctx context.Context, callbackQueryID string) {
	if _, err := c.bot.Request(tgbotapi.NewCallback(callbackQueryID, "")); err != nil {
		slog.ErrorContext(ctx, "Acknowledging callback failed", logger.Err(err))
	}
}

func (c *client) StartTyping(ctx context.Context, chatID int64) {
	if _, err := c.bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		slog.ErrorContext(ctx, "Sending typing action failed", logger.Err(err))
	}
}

// DownloadFile stores a telegram file under the download dir and returns its
// local path.
func (c *client) DownloadFile(ctx context.Context, fileID string) (string, error) {
	file, err := c.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return "", fmt.Errorf("getting file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(c.token), nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.bot.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if closeErr := Body.Close(); closeErr != nil {
			slog.ErrorContext(ctx, "Closing body failed", logger.Err(closeErr))
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("downloading file: unexpected status %s", resp.Status)
	}

	filePath := filepath.Join(c.downloadDir, filepath.FromSlash(file.FilePath))
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return "", fmt.Errorf("creating directories for '%s': %w", filePath, err)
	}

	out, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return "", fmt.Errorf("saving file: %w", err)
	}

	return filePath, nil
}

// ToChattable renders a reply as a telegram message. Image replies become a
// photo with a repeat button when the generation was stored.
func ToChattable(response *domain.Response) tgbotapi.Chattable {
	reply := response.Reply

	if reply.Type != domain.ReplyImageURL {
		return tgbotapi.NewMessage(response.ChatID, reply.Content)
	}

	photo := tgbotapi.NewPhoto(response.ChatID, tgbotapi.FileURL(reply.Content))
	if reply.GenerationID != "" {
		photo.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(repeatButtonText, domain.RepeatCallbackPrefix+reply.GenerationID),
			),
		)
	}
	return photo
}
