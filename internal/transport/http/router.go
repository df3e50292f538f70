package http

import (
	"io/fs"
	"net/http"

	"github.com/rafaeljonasferreira-web/presence-dashboard/internal/transport/ws"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
)

// NewRouter serves the websocket endpoint, the embedded dashboard assets and
// a liveness probe. There is no other REST surface.
func NewRouter(wsServer *ws.Server, assets fs.FS) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewareChi.RequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)

	// WS endpoint
	r.Get("/ws", wsServer.HandleWS)

	// health
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// dashboard page and client script
	r.Handle("/*", http.FileServer(http.FS(assets)))

	return r
}
