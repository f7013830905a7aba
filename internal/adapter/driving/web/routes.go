package web

import (
	"io/fs"
	"net/http"
)

// RegisterRoutes registers all web GUI routes on the provided mux. Static
// assets are served from the embedded filesystem at /static/*.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	staticFS, _ := fs.Sub(StaticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticFS)))

	mux.HandleFunc("GET /{$}", h.Home)
	mux.HandleFunc("POST /auth/signin", h.SignIn)
	mux.HandleFunc("GET /auth/callback", h.AuthCallback)
	mux.HandleFunc("POST /auth/signout", h.SignOut)

	mux.HandleFunc("GET /reports", h.requireSignIn(h.Reports))
	mux.HandleFunc("POST /reports/{name}/fetch", h.requireSignIn(h.FetchReport))
	mux.HandleFunc("GET /columns", h.requireSignIn(h.Columns))
	mux.HandleFunc("POST /export", h.requireSignIn(h.Export))
	mux.HandleFunc("GET /history", h.requireSignIn(h.History))
}
