package api

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nekogravitycat/analyst-scheduler/internal/auth"
	"github.com/nekogravitycat/analyst-scheduler/internal/availability"
	availabilityHttp "github.com/nekogravitycat/analyst-scheduler/internal/availability/http"
	"github.com/nekogravitycat/analyst-scheduler/internal/booking"
	bookingHttp "github.com/nekogravitycat/analyst-scheduler/internal/booking/http"
	"github.com/nekogravitycat/analyst-scheduler/internal/feedback"
	feedbackHttp "github.com/nekogravitycat/analyst-scheduler/internal/feedback/http"
	"github.com/nekogravitycat/analyst-scheduler/internal/query"
	queryHttp "github.com/nekogravitycat/analyst-scheduler/internal/query/http"
)

// Config holds the services the router exposes.
type Config struct {
	IsProduction bool
	// ProdOrigins is a comma-separated list of allowed CORS origins in production.
	ProdOrigins string

	AvailabilityService availability.Service
	BookingService      booking.Service
	FeedbackService     feedback.Service
	QueryService        query.Service
	JWTManager          *auth.JWTManager

	// MetricsGatherer backs /metrics. Nil uses the default Prometheus registry.
	MetricsGatherer prometheus.Gatherer
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (CORS, Logger, Auth) and registering routes for various modules.
func NewRouter(cfg Config) *gin.Engine {
	r := gin.New()

	// Global Middleware:
	// - Logger: Logs request information to the console.
	// - Recovery: Captures panics to prevent server crashes and returns a 500 error.
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(cors.New(corsConfig(cfg)))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	gatherer := cfg.MetricsGatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// authMiddleware: Validates if the request contains a valid JWT.
	authMiddleware := auth.AuthRequired(cfg.JWTManager)

	// Initialize HTTP Handlers for each module (injecting Service dependencies).
	availabilityHandler := availabilityHttp.NewHandler(cfg.AvailabilityService)
	bookingHandler := bookingHttp.NewHandler(cfg.BookingService)
	feedbackHandler := feedbackHttp.NewHandler(cfg.FeedbackService)
	queryHandler := queryHttp.NewHandler(cfg.QueryService)

	// Register API routes under /v1
	v1 := r.Group("/v1")
	{
		availabilityHttp.RegisterRoutes(v1, availabilityHandler, authMiddleware)
		bookingHttp.RegisterRoutes(v1, bookingHandler, authMiddleware)
		feedbackHttp.RegisterRoutes(v1, feedbackHandler, authMiddleware)
		queryHttp.RegisterRoutes(v1, queryHandler, authMiddleware)
	}

	return r
}

func corsConfig(cfg Config) cors.Config {
	config := cors.DefaultConfig()
	if cfg.IsProduction {
		var origins []string
		for _, o := range strings.Split(cfg.ProdOrigins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		config.AllowOrigins = origins
		if len(origins) == 0 {
			// No configured origins: reject every cross-origin request.
			config.AllowOriginFunc = func(string) bool { return false }
		}
	} else {
		config.AllowAllOrigins = true
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	return config
}
