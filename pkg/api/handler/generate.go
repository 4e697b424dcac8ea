package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/api/response"
	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/domain"
	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/logger"
	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/plugin"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, event plugin.Event) *plugin.EventContext
}

type GenerateRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

type generate struct {
	dispatcher Dispatcher
	writer     response.JSONResponseWriter
}

func NewGenerate(dispatcher Dispatcher) *generate {
	return &generate{
		dispatcher: dispatcher,
		writer:     response.JSONResponseWriter{},
	}
}

// Generate runs the text as an image-create request and returns the reply.
// A request no plugin answered yields 204.
func (g *generate) Generate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		g.writer.WriteErrorResponse(w, http.StatusMethodNotAllowed, "Only POST is allowed.")
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.writer.WriteErrorResponse(w, http.StatusBadRequest, "Request body is not valid JSON.")
		return
	}
	if strings.TrimSpace(req.SessionID) == "" || strings.TrimSpace(req.Text) == "" {
		g.writer.WriteErrorResponse(w, http.StatusBadRequest, "session_id and text are required.")
		return
	}

	ctx := logger.ContextWithSessionID(r.Context(), req.SessionID)
	ec := g.dispatcher.Dispatch(ctx, plugin.Event{
		Kind:      plugin.EventImageCreate,
		SessionID: req.SessionID,
		Content:   req.Text,
	})

	if ec.Reply == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if ec.Reply.Type == domain.ReplyError {
		g.writer.WriteErrorResponse(w, http.StatusBadGateway, ec.Reply.Content)
		return
	}

	g.writer.WriteSuccessResponse(w, ec.Reply)
}
