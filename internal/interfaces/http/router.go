package http

import (
	"net/http"
	"time"

	"github.com/dreschagin/health-checker/internal/infrastructure/metrics"
	"github.com/dreschagin/health-checker/internal/interfaces/http/handler"
	"github.com/dreschagin/health-checker/internal/interfaces/http/middleware"
	"github.com/dreschagin/health-checker/pkg/logger"
)

// RouterConfig содержит сквозные настройки HTTP слоя
type RouterConfig struct {
	RequestTimeout time.Duration
	RateLimiter    *middleware.IPRateLimiter
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler

	// Ready сообщает, принимает ли сервис отчеты; nil означает "всегда"
	Ready func() bool
}

// Router настраивает маршруты приложения
type Router struct {
	mux              *http.ServeMux
	nodeAPIHandler   *handler.NodeAPIHandler
	websocketHandler *handler.WebSocketHandler
	config           RouterConfig
	logger           *logger.Logger
}

// NewRouter создает новый router
func NewRouter(
	nodeAPIHandler *handler.NodeAPIHandler,
	websocketHandler *handler.WebSocketHandler,
	config RouterConfig,
	logger *logger.Logger,
) *Router {
	return &Router{
		mux:              http.NewServeMux(),
		nodeAPIHandler:   nodeAPIHandler,
		websocketHandler: websocketHandler,
		config:           config,
		logger:           logger,
	}
}

// Setup настраивает все маршруты
func (rt *Router) Setup() http.Handler {
	rt.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	rt.mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, _ *http.Request) {
		if rt.config.Ready != nil && !rt.config.Ready() {
			http.Error(w, "shutting down", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if rt.config.MetricsHandler != nil {
		rt.mux.Handle("GET /metrics", rt.config.MetricsHandler)
	}

	if rt.websocketHandler != nil {
		rt.mux.HandleFunc("GET /ws", rt.websocketHandler.HandleConnection)
	}

	// Отчеты узлов ограничиваются по IP, чтение и удаление нет
	var upsert http.Handler = http.HandlerFunc(rt.nodeAPIHandler.UpsertNode)
	if rt.config.RateLimiter != nil {
		upsert = middleware.RateLimit(rt.config.RateLimiter, rt.config.Metrics.RateLimited)(upsert)
	}
	rt.mux.Handle("POST /nodes", upsert)
	rt.mux.HandleFunc("GET /nodes", rt.nodeAPIHandler.ListNodes)
	rt.mux.HandleFunc("DELETE /nodes/{id}", rt.nodeAPIHandler.DeleteNode)

	// Применяем middleware
	var chain http.Handler = rt.mux
	chain = middleware.Timeout(rt.config.RequestTimeout, "/ws")(chain)
	if rt.config.Metrics != nil {
		chain = rt.config.Metrics.Middleware(chain)
	}
	chain = middleware.Logger(rt.logger)(chain)
	chain = middleware.Recovery(rt.logger)(chain)
	chain = middleware.RequestID(chain)

	return chain
}
