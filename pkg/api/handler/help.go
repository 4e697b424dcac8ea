package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/russross/blackfriday"

	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/logger"
)

type HelpProvider interface {
	HelpText(verbose bool) string
}

type help struct {
	provider HelpProvider
}

func NewHelp(provider HelpProvider) *help {
	return &help{provider: provider}
}

// ServeHelp renders the verbose help text as an HTML page.
func (h *help) ServeHelp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	page := blackfriday.MarkdownCommon([]byte(helpMarkdown(h.provider.HelpText(true))))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(page); err != nil {
		slog.ErrorContext(r.Context(), "Writing help page failed", logger.Err(err))
	}
}

// helpMarkdown keeps the plain text line breaks and shows keyword groups as
// list items.
func helpMarkdown(text string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "[") {
			lines[i] = "- " + line
		} else {
			lines[i] = line + "\n"
		}
	}
	return strings.Join(lines, "\n")
}
