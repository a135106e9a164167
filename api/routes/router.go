// api/routes/router.go
package routes

import (
	"evently/internal/bookings"
	"evently/internal/domainevents"
	"evently/internal/events"
	"evently/internal/monitoring"
	"evently/internal/reservation"
	"evently/internal/seats"
	"evently/internal/shared/config"
	"evently/internal/shared/database"
	"evently/internal/venues"
	"evently/pkg/cache"
	"evently/pkg/logger"
	"evently/pkg/saga"

	"github.com/gin-gonic/gin"
)

// Router holds all route dependencies
type Router struct {
	config       *config.Config
	db           *database.DB
	reservations *reservation.Client
	orchestrator *saga.Orchestrator
	collector    *monitoring.Collector
	producer     domainevents.Producer
	log          *logger.Logger

	cacheManager *cache.Manager
	seatsService seats.Service // shared with bookings for cache invalidation
}

// NewRouter creates a new router instance
func NewRouter(
	cfg *config.Config,
	db *database.DB,
	reservations *reservation.Client,
	orchestrator *saga.Orchestrator,
	collector *monitoring.Collector,
	producer domainevents.Producer,
	log *logger.Logger,
) *Router {
	return &Router{
		config:       cfg,
		db:           db,
		reservations: reservations,
		orchestrator: orchestrator,
		collector:    collector,
		producer:     producer,
		log:          log,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.cacheManager = cache.NewManager(cache.NewService(r.db.GetRedisClient()))

	// Health, metrics and status live at the root, outside the API prefix
	r.setupMonitoringRoutes(engine)

	// API routes
	api := engine.Group(r.config.GetAPIBasePath())
	{
		r.setupVenueRoutes(api)

		// Seat routes must come before booking routes: the seat service is
		// shared so booking mutations can drop the cached seat maps
		r.setupSeatRoutes(api)

		r.setupEventRoutes(api)
		r.setupBookingRoutes(api)
	}
}

// setupMonitoringRoutes wires health checks and the in-process metrics report
func (r *Router) setupMonitoringRoutes(engine *gin.Engine) {
	checker := monitoring.NewChecker(r.db)
	controller := monitoring.NewController(checker, r.collector,
		func() string { return string(r.reservations.Breaker().State()) },
		r.orchestrator.ActiveCount,
	)

	monitoring.SetupMonitoringRoutes(engine, controller)
}

// setupVenueRoutes configures venue management routes
func (r *Router) setupVenueRoutes(rg *gin.RouterGroup) {
	venueRepo := venues.NewRepository(r.db.GetPostgreSQL())
	venueService := venues.NewService(venueRepo)
	venueController := venues.NewController(venueService)

	venues.SetupVenueRoutes(rg, venueController)
}

// setupSeatRoutes configures seat map routes
func (r *Router) setupSeatRoutes(rg *gin.RouterGroup) {
	seatRepo := seats.NewRepository(r.db.GetPostgreSQL())
	r.seatsService = seats.NewService(seatRepo, r.cacheManager, r.config, r.log)
	seatController := seats.NewController(r.seatsService)

	seats.SetupSeatRoutes(rg, seatController)
}

// setupEventRoutes configures event management routes
func (r *Router) setupEventRoutes(rg *gin.RouterGroup) {
	eventRepo := events.NewRepository(r.db.GetPostgreSQL())
	venueRepo := venues.NewRepository(r.db.GetPostgreSQL())
	eventService := events.NewService(eventRepo, venueRepo, r.cacheManager, r.config, r.log)
	eventController := events.NewController(eventService)

	events.SetupEventRoutes(rg, eventController)
}

// setupBookingRoutes configures the booking lifecycle routes
func (r *Router) setupBookingRoutes(rg *gin.RouterGroup) {
	bookingRepo := bookings.NewRepository(r.db.GetPostgreSQL(), r.config.Database.AdvisoryLockTimeout)
	bookingService := bookings.NewService(
		bookingRepo,
		r.reservations,
		r.orchestrator,
		r.collector,
		r.producer,
		r.seatsService,
		r.config,
		r.log,
	)
	bookingController := bookings.NewController(bookingService)

	bookings.SetupBookingRoutes(rg, bookingController, r.db.GetRedisClient())
}
