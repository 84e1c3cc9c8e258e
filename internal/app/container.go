package app

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/nekogravitycat/analyst-scheduler/internal/api"
	"github.com/nekogravitycat/analyst-scheduler/internal/auth"
	"github.com/nekogravitycat/analyst-scheduler/internal/availability"
	"github.com/nekogravitycat/analyst-scheduler/internal/booking"
	"github.com/nekogravitycat/analyst-scheduler/internal/feedback"
	"github.com/nekogravitycat/analyst-scheduler/internal/notify"
	"github.com/nekogravitycat/analyst-scheduler/internal/pkg/cache"
	"github.com/nekogravitycat/analyst-scheduler/internal/query"
	"github.com/nekogravitycat/analyst-scheduler/internal/video"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	DBPool       *pgxpool.Pool
	JWTSecret    string
	JWTTTL       time.Duration
	Logger       *slog.Logger

	// Redis is optional. Without it rules are read straight from the
	// database and booking events are only logged.
	Redis         redis.UniversalClient
	RuleCacheTTL  time.Duration
	EventsChannel string

	// An empty VideoProviderURL issues placeholder session links.
	VideoProviderURL     string
	VideoProviderAPIKey  string
	VideoProviderTimeout time.Duration

	MetricsGatherer prometheus.Gatherer
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router          *gin.Engine
	JWTManager      *auth.JWTManager
	BookingService  booking.Service
	FeedbackService feedback.Service
	Notifier        notify.Dispatcher
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) *Container {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Init Components
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)

	var cacheProvider cache.Provider = cache.NoopProvider{}
	var notifier notify.Dispatcher = notify.NewLogDispatcher(logger)
	if cfg.Redis != nil {
		cacheProvider = cache.NewRedisProvider(cfg.Redis, "scheduler:")
		notifier = notify.NewRedisDispatcher(cfg.Redis, cfg.EventsChannel, logger)
	}

	var videoProvider video.Provider = video.PlaceholderProvider{}
	if cfg.VideoProviderURL != "" {
		videoProvider = video.NewHTTPProvider(cfg.VideoProviderURL, cfg.VideoProviderAPIKey, cfg.VideoProviderTimeout)
	}

	// Availability Module
	ruleRepo := availability.NewCachedRepository(
		availability.NewPgxRepository(cfg.DBPool), cacheProvider, cfg.RuleCacheTTL, logger,
	)
	availabilityService := availability.NewService(ruleRepo)

	// Booking Module
	bookingRepo := booking.NewPgxRepository(cfg.DBPool)
	bookingService := booking.NewService(
		bookingRepo, availabilityService, videoProvider, notifier, logger, cfg.VideoProviderTimeout,
	)

	// Feedback Module
	feedbackRepo := feedback.NewPgxRepository(cfg.DBPool)
	feedbackService := feedback.NewService(feedbackRepo, bookingRepo, logger)

	// Query Module
	queryService := query.NewService(bookingRepo, bookingService, feedbackService)

	// Router
	router := api.NewRouter(api.Config{
		IsProduction:        cfg.IsProduction,
		ProdOrigins:         cfg.ProdOrigins,
		AvailabilityService: availabilityService,
		BookingService:      bookingService,
		FeedbackService:     feedbackService,
		QueryService:        queryService,
		JWTManager:          jwtManager,
		MetricsGatherer:     cfg.MetricsGatherer,
	})

	return &Container{
		Router:          router,
		JWTManager:      jwtManager,
		BookingService:  bookingService,
		FeedbackService: feedbackService,
		Notifier:        notifier,
	}
}
