package rest

import (
	"net/http"

	"github.com/lehelkovach/osl-agent-prototype-sub000/application/mediator"
	"github.com/lehelkovach/osl-agent-prototype-sub000/interfaces/http/rest/handlers"
	"github.com/lehelkovach/osl-agent-prototype-sub000/interfaces/http/rest/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Router configures the agent's HTTP surface: POST /chat to dispatch a
// request, GET /runs/{trace_id} to poll its outcome, GET /health for
// liveness (§6.3).
type Router struct {
	mediator mediator.IMediator
	logger   *zap.Logger
}

// NewRouter creates a router driven by the mediator.
func NewRouter(mediator mediator.IMediator, logger *zap.Logger) *Router {
	return &Router{mediator: mediator, logger: logger}
}

// Setup configures all routes and middleware.
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	router.Use(versionMiddleware)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", rt.healthCheck)

	router.Route("/api/v1", func(r chi.Router) {
		chatHandler := handlers.NewChatHandler(rt.mediator, rt.logger)
		r.Post("/chat", chatHandler.Dispatch)

		runStatusHandler := handlers.NewRunStatusHandler(rt.mediator, rt.logger)
		r.Get("/runs/{trace_id}", runStatusHandler.GetRunStatus)
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// versionMiddleware tags every response with the API version.
func versionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-API-Version", "v1")
		next.ServeHTTP(w, r)
	})
}
