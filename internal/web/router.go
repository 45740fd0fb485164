package web

import (
	"net/http"

	"github.com/appdotbuilder/bag-factory-manager-3e44/internal/config"
	"github.com/appdotbuilder/bag-factory-manager-3e44/internal/store"
	webembed "github.com/appdotbuilder/bag-factory-manager-3e44/web"
)

// NewRouter creates the web page router with all page routes registered.
// Pages require a session cookie only when authentication is enabled.
func NewRouter(bags store.Bags, authCfg config.AuthConfig) (http.Handler, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		Bags:      bags,
		Templates: templates,
		Auth:      authCfg,
	}

	mux := http.NewServeMux()
	cookieAuth := func(h http.Handler) http.Handler { return h }
	if authCfg.Enabled() {
		cookieAuth = CookieAuthMiddleware(authCfg.Secret)
	}

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(webembed.StaticFS()))))

	mux.HandleFunc("GET /login", s.LoginPage)
	mux.HandleFunc("POST /login", s.LoginSubmit)
	mux.HandleFunc("POST /logout", s.Logout)

	mux.Handle("GET /{$}", cookieAuth(http.HandlerFunc(s.BagsPage)))
	mux.Handle("POST /bags", cookieAuth(http.HandlerFunc(s.BagCreateSubmit)))
	mux.Handle("GET /bags/{id}", cookieAuth(http.HandlerFunc(s.BagEditPage)))
	mux.Handle("POST /bags/{id}", cookieAuth(http.HandlerFunc(s.BagUpdateSubmit)))
	mux.Handle("POST /bags/{id}/delete", cookieAuth(http.HandlerFunc(s.BagDeleteSubmit)))

	return mux, nil
}
