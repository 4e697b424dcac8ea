// Package replicate is a small client for the Replicate prediction API.
package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL      = "https://api.replicate.com/v1"
	DefaultPollInterval = time.Second
)

type client struct {
	token        string
	baseURL      string
	hc           *http.Client
	pollInterval time.Duration
}

func NewClient(token string, opts ...Option) (*client, error) {
	if token == "" {
		return nil, fmt.Errorf("token is empty")
	}

	c := &client{
		token:        token,
		baseURL:      DefaultBaseURL,
		hc:           &http.Client{},
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type Option func(*client)

func WithBaseURL(url string) Option {
	return func(c *client) { c.baseURL = strings.TrimSuffix(url, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) { c.hc = hc }
}

func WithPollInterval(d time.Duration) Option {
	return func(c *client) { c.pollInterval = d }
}

// GetModel fetches a model by its "owner/name" reference.
func (c *client) GetModel(ctx context.Context, ref string) (*Model, error) {
	owner, name, ok := strings.Cut(ref, "/")
	if !ok || owner == "" || name == "" {
		return nil, fmt.Errorf("invalid model reference %q, expected owner/name", ref)
	}

	var model Model
	if err := c.do(ctx, http.MethodGet, "/models/"+owner+"/"+name, nil, &model); err != nil {
		return nil, fmt.Errorf("getting model %s: %w", ref, err)
	}
	return &model, nil
}

func (c *client) GetVersion(ctx context.Context, model *Model, versionID string) (*Version, error) {
	var version Version
	path := "/models/" + model.Owner + "/" + model.Name + "/versions/" + versionID
	if err := c.do(ctx, http.MethodGet, path, nil, &version); err != nil {
		return nil, fmt.Errorf("getting version %s of %s: %w", versionID, model.Ref(), err)
	}
	return &version, nil
}

// Predict starts a prediction and waits until it reaches a terminal status.
func (c *client) Predict(ctx context.Context, versionID string, input map[string]any) (*Prediction, error) {
	var prediction Prediction
	req := createPredictionRequest{Version: versionID, Input: input}
	if err := c.do(ctx, http.MethodPost, "/predictions", req, &prediction); err != nil {
		return nil, fmt.Errorf("creating prediction: %w", err)
	}

	slog.InfoContext(ctx, "Prediction created", "id", prediction.ID, "status", prediction.Status)

	limiter := rate.NewLimiter(rate.Every(c.pollInterval), 1)
	for !prediction.Status.Terminal() {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for prediction %s: %w", prediction.ID, err)
		}
		if err := c.do(ctx, http.MethodGet, "/predictions/"+prediction.ID, nil, &prediction); err != nil {
			return nil, fmt.Errorf("polling prediction %s: %w", prediction.ID, err)
		}
		slog.DebugContext(ctx, "Prediction polled", "id", prediction.ID, "status", prediction.Status)
	}

	switch prediction.Status {
	case StatusFailed:
		return nil, fmt.Errorf("prediction %s failed: %v", prediction.ID, prediction.Error)
	case StatusCanceled:
		return nil, fmt.Errorf("prediction %s was canceled", prediction.ID)
	}

	return &prediction, nil
}

func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("creating HTTP request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("executing HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		var apiErr apiError
		if json.Unmarshal(bodyBytes, &apiErr) == nil && apiErr.Detail != "" {
			return fmt.Errorf("unexpected status code: %d, detail: %s", resp.StatusCode, apiErr.Detail)
		}
		return fmt.Errorf("unexpected status code: %d, response: %s", resp.StatusCode, string(bodyBytes))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response data: %w", err)
	}
	return nil
}
