package api

import (
	"net/http"
	"strings"

	"github.com/appdotbuilder/bag-factory-manager-3e44/internal/config"
	"github.com/appdotbuilder/bag-factory-manager-3e44/internal/store"
)

// Prefix is the path under which procedures are served.
const Prefix = "/api/"

// NewRouter creates the API router with all procedures registered.
// Queries answer GET and POST, mutations POST only. With authentication
// enabled, mutations require a bearer token.
func NewRouter(bags store.Bags, authCfg config.AuthConfig) http.Handler {
	mux := http.NewServeMux()

	bagsHandler := &BagsHandler{Bags: bags}
	authHandler := &AuthHandler{Auth: authCfg}

	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	requireToken := func(h http.Handler) http.Handler { return h }
	if authCfg.Enabled() {
		requireToken = AuthMiddleware(authCfg.Secret)
	}

	known := map[string]bool{}
	for _, p := range bagsHandler.Procedures() {
		known[p.Name] = true
		path := Prefix + p.Name
		switch p.Kind {
		case Query:
			mux.Handle("GET "+path, p)
			mux.Handle("POST "+path, p)
		case Mutation:
			mux.Handle("POST "+path, requireToken(p))
		}
	}

	mux.HandleFunc(Prefix, func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, Prefix)
		if known[name] {
			jsonError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method "+r.Method+" not allowed for "+name)
			return
		}
		jsonError(w, http.StatusNotFound, CodeNotFound, "unknown procedure "+name)
	})

	return mux
}
