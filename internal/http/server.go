// README: API gateway; registers gin routes and delegates to the planner and quota services.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"tripplanner/internal/http/handlers"
	"tripplanner/internal/http/middleware"
)

const serviceName = "planner-api"

// Planner is everything the API needs from the generation engine.
type Planner interface {
	handlers.ItineraryPlanner
	handlers.Assistant
}

type ServerDeps struct {
	Planner Planner
	// Quota is optional; nil serves generations without a per-caller limit.
	Quota           handlers.Quota
	GenerateTimeout time.Duration
	// Metrics is mounted at GET /metrics when set.
	Metrics http.Handler
	Logger  *zap.Logger
}

type Server struct {
	deps ServerDeps
}

func NewServer(deps ServerDeps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Server{deps: deps}
}

func (s *Server) Routes() http.Handler {
	r := gin.New()
	r.Use(
		otelgin.Middleware(serviceName, otelgin.WithFilter(func(req *http.Request) bool {
			return req.URL.Path != "/health" && req.URL.Path != "/metrics"
		})),
		middleware.RequestID(),
		middleware.Logging(s.deps.Logger),
		middleware.Recovery(s.deps.Logger),
	)

	itineraries := handlers.NewItineraryHandler(s.deps.Planner, s.deps.Quota, s.deps.GenerateTimeout, s.deps.Logger)
	assistant := handlers.NewAIHandler(s.deps.Planner, 0)

	api := r.Group("/api")
	api.POST("/itineraries", itineraries.Generate)
	api.POST("/destinations/suggest", assistant.SuggestDestinations)
	api.POST("/activities/reviews/summary", assistant.SummarizeReviews)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	if s.deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.deps.Metrics))
	}
	return r
}
