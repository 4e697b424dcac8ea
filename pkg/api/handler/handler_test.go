package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/domain"
	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/plugin"
)

type staticHelp string

func (s staticHelp) HelpText(bool) string { return string(s) }

type fakeDispatcher struct {
	event plugin.Event
	reply *domain.Reply
}

func (f *fakeDispatcher) Dispatch(_ context.Context, event plugin.Event) *plugin.EventContext {
	f.event = event
	return &plugin.EventContext{Event: event, Reply: f.reply}
}

func TestServeHelp(t *testing.T) {
	h := NewHelp(staticHelp("利用replicate api来画图。\n目前可用关键词：\n[竖版],[portrait]-vertical\n"))

	rec := httptest.NewRecorder()
	h.ServeHelp(rec, httptest.NewRequest(http.MethodGet, "/help", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<li>[竖版],[portrait]-vertical</li>")
	assert.Contains(t, rec.Body.String(), "<p>利用replicate api来画图。</p>")
}

func TestGenerate(t *testing.T) {
	dispatcher := &fakeDispatcher{reply: domain.ImageURLReply("https://x/1.png", "3")}
	g := NewGenerate(dispatcher)

	rec := httptest.NewRecorder()
	g.Generate(rec, httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(`{"session_id":"api:1","text":"竖版:cat"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, plugin.Event{Kind: plugin.EventImageCreate, SessionID: "api:1", Content: "竖版:cat"}, dispatcher.event)

	var reply domain.Reply
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&reply))
	assert.Equal(t, *domain.ImageURLReply("https://x/1.png", "3"), reply)
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name   string
		method string
		body   string
		reply  *domain.Reply
		status int
	}{
		{"wrong method", http.MethodGet, "", nil, http.StatusMethodNotAllowed},
		{"bad json", http.MethodPost, "{", nil, http.StatusBadRequest},
		{"missing text", http.MethodPost, `{"session_id":"s"}`, nil, http.StatusBadRequest},
		{"no reply", http.MethodPost, `{"session_id":"s","text":"unknown"}`, nil, http.StatusNoContent},
		{"plugin error", http.MethodPost, `{"session_id":"s","text":"竖版"}`, domain.ErrorReply("[RP] boom"), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGenerate(&fakeDispatcher{reply: tt.reply})

			rec := httptest.NewRecorder()
			g.Generate(rec, httptest.NewRequest(tt.method, "/api/generate", strings.NewReader(tt.body)))

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
