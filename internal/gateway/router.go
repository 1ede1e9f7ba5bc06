package gateway

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/nwrx/nmcp/internal/accountant"
	"github.com/nwrx/nmcp/internal/activation"
	"github.com/nwrx/nmcp/internal/metrics"
)

// Config bundles router wiring; it is deliberately thin — the kube client,
// the activation waiter, and the accountant all carry their own defaults
// and outlive the router itself.
type Config struct {
	Kube              KubeClient
	Namespace         string
	Waiter            *activation.Waiter
	Accountant        *accountant.Accountant
	RestConfig        *rest.Config
	ClientSet         kubernetes.Interface
	ActivationTimeout time.Duration
	CORSAllowedOrigins []string
	Ready             *ReadyGate
}

// NewRouter assembles the chi router per 4.F's HTTP surface table, grounded
// on the teacher's cmd/server/main.go router assembly (RequestID, RealIP,
// Logger, Recoverer, then CORS, then route groups).
func NewRouter(cfg Config) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", Health)
	if cfg.Ready != nil {
		r.Get("/ready", cfg.Ready.Ready)
	}
	r.Handle("/metrics", promhttp.Handler())

	pools := NewPoolHandlers(cfg.Kube, cfg.Namespace)
	servers := NewServerHandlers(cfg.Kube, cfg.Namespace)
	stream := NewStreamHandlers(cfg.Kube, cfg.Namespace, cfg.Waiter, cfg.Accountant, cfg.RestConfig, cfg.ClientSet, cfg.ActivationTimeout)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/pools", func(r chi.Router) {
			r.Get("/", pools.List)
			r.Post("/", pools.Create)
			r.Get("/{name}", pools.Get)
			r.Put("/{name}", pools.Replace)
			r.Delete("/{name}", pools.Delete)
		})

		r.Route("/servers", func(r chi.Router) {
			r.Get("/", servers.List)
			r.Post("/", servers.Create)
			r.Get("/{name}", servers.Get)
			r.Put("/{name}", servers.Replace)
			r.Delete("/{name}", servers.Delete)

			r.Get("/{name}/sse", stream.OpenSSE)
			r.Post("/{name}/message", stream.PostMessage)
		})
	})

	return r
}

// metricsMiddleware increments nmcp_http_requests_total by route pattern
// and status class, the HTTP half of 4.I's Prometheus surface.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		statusClass := statusClassOf(ww.Status())
		metrics.HTTPRequestsTotal.WithLabelValues(route, statusClass).Inc()
	})
}

func statusClassOf(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "other"
	}
}
