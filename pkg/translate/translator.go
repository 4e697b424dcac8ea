// Package translate turns image prompts into English before they are sent to
// the model.
package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/abadojack/whatlanggo"
	"github.com/sashabaranov/go-openai"
)

const DefaultModel = openai.GPT3Dot5Turbo

type translator struct {
	client *openai.Client
	model  string
}

// NewTranslator creates a translator backed by an OpenAI compatible chat
// completion endpoint. An empty baseURL uses the public API.
func NewTranslator(token, baseURL, model string) (*translator, error) {
	if token == "" {
		return nil, errors.New("token is empty")
	}

	cfg := openai.DefaultConfig(token)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultModel
	}

	return &translator{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

// DetectLanguage returns the ISO 639-1 code of the text language, or an empty
// string when it cannot be told.
func (t *translator) DetectLanguage(text string) string {
	return whatlanggo.DetectLang(text).Iso6391()
}

func (t *translator) Translate(ctx context.Context, text, toLang string) (string, error) {
	slog.DebugContext(ctx, "Requesting translation", "model", t.model, "to", toLang)

	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf(
					"Translate the user's text into the language with ISO 639-1 code %q. "+
						"It is a prompt for an image generation model. "+
						"Reply with the translation only.", toLang),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("creating chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in response")
	}

	translated := strings.TrimSpace(resp.Choices[0].Message.Content)
	if translated == "" {
		return "", errors.New("empty translation")
	}
	return translated, nil
}
