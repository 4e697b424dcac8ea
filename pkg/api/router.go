// Package api serves the help page and the generate endpoint over HTTP.
package api

import (
	"net/http"

	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/api/handler"
)

func NewRouter(help handler.HelpProvider, dispatcher handler.Dispatcher) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/help", handler.NewHelp(help).ServeHelp)
	mux.HandleFunc("/api/generate", handler.NewGenerate(dispatcher).Generate)
	mux.HandleFunc("/healthz", handler.Health)
	return mux
}
