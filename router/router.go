package router

import (
	"net/http"

	"naskahcollab/config"
	docHandler "naskahcollab/internal/document"
	"naskahcollab/internal/document/service"
	"naskahcollab/middleware"
	"naskahcollab/socket"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// Deps are the long-lived components the HTTP surface is built on. Redis is optional.
type Deps struct {
	Config   *config.Config
	Service  *service.DocumentService
	Hub      *socket.Hub
	Redis    *redis.Client
	Registry *prometheus.Registry
}

func Setup(d Deps) http.Handler {
	mux := http.NewServeMux()
	authn := middleware.NewAuthenticator(d.Config.JWT.Secret)

	// WebSocket. A token is optional; without one the participant joins as an anonymous viewer.
	upgrader := socket.NewUpgrader(d.Config.Server.ClientURL)
	wsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := middleware.IdentityFrom(r.Context())
		socket.ServeWs(d.Hub, upgrader, w, r, id)
	})
	mux.Handle("/ws", authn.OptionalAuth(wsHandler))

	// REST API
	docs := docHandler.NewDocumentHandler(d.Service, d.Hub)
	limit := func(next http.Handler) http.Handler { return next }
	if d.Config.RateLimit.Enabled {
		limit = middleware.RedisRateLimit(d.Redis, d.Config.RateLimit.Max, d.Config.RateLimit.Window)
	}
	// Limited before auth, so unauthenticated requests are counted per IP.
	protect := func(h http.HandlerFunc) http.Handler { return limit(authn.AuthMiddleware(h)) }

	mux.Handle("/api/documents", protect(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			docs.CreateDocument(w, r)
		case http.MethodDelete:
			docs.DeleteDocument(w, r)
		default:
			docs.GetDocuments(w, r)
		}
	}))
	mux.Handle("/api/documents/members", protect(docs.GetDocumentMembers))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	if d.Registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}

	return middleware.CORSMiddleware(d.Config.Server.ClientURL)(mux)
}
