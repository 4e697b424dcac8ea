package replicate

import (
	"errors"
	"fmt"
	"time"
)

type Model struct {
	Owner         string   `json:"owner"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Visibility    string   `json:"visibility"`
	LatestVersion *Version `json:"latest_version"`
}

func (m *Model) Ref() string {
	return m.Owner + "/" + m.Name
}

type Version struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	CogVersion string    `json:"cog_version"`
}

type Status string

const (
	StatusStarting   Status = "starting"
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	StatusCanceled   Status = "canceled"
)

func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCanceled
}

type Prediction struct {
	ID      string            `json:"id"`
	Version string            `json:"version"`
	Status  Status            `json:"status"`
	Input   map[string]any    `json:"input"`
	Output  any               `json:"output"`
	Error   any               `json:"error"`
	Logs    string            `json:"logs"`
	URLs    map[string]string `json:"urls"`
}

// LastOutput returns the final image reference of a prediction. Models that
// stream intermediate results return a sequence; its last element is the
// final one.
func (p *Prediction) LastOutput() (string, error) {
	switch out := p.Output.(type) {
	case nil:
		return "", errors.New("prediction has no output")
	case string:
		return out, nil
	case []any:
		if len(out) == 0 {
			return "", errors.New("prediction output is empty")
		}
		last := out[len(out)-1]
		if s, ok := last.(string); ok {
			return s, nil
		}
		return fmt.Sprint(last), nil
	default:
		return fmt.Sprint(out), nil
	}
}

type createPredictionRequest struct {
	Version string         `json:"version"`
	Input   map[string]any `json:"input"`
}

type apiError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Status int    `json:"status"`
}
