package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ok-landscape/syndicate/internal/calendar"
	"github.com/ok-landscape/syndicate/internal/catalog"
	"github.com/ok-landscape/syndicate/internal/config"
	"github.com/ok-landscape/syndicate/internal/dispatch"
	"github.com/ok-landscape/syndicate/internal/duplicate"
	"github.com/ok-landscape/syndicate/internal/publish"
	"github.com/ok-landscape/syndicate/internal/publish/graph"
	"github.com/ok-landscape/syndicate/internal/queue"
	"github.com/ok-landscape/syndicate/internal/router"
	"github.com/ok-landscape/syndicate/pkg/clock"
)

type Server struct {
	Config *config.Config
	Router *gin.Engine
	Logger *zap.Logger
	Server *http.Server

	// Services
	Store      *queue.Store
	Catalog    *catalog.Catalog
	Routes     *router.Router
	Planner    *calendar.Planner
	Publishers *publish.Registry
	Dispatcher *dispatch.Dispatcher
	Auth       *AuthService
}

func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	// Set gin mode
	gin.SetMode(cfg.Server.Mode)

	clk := clock.Real()

	persister, err := newPersister(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize persistence: %w", err)
	}

	store, err := queue.NewStore(persister, clk, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize queue: %w", err)
	}

	cat, err := catalog.Load(cfg.Catalog.IndexFile, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load content catalog: %w", err)
	}

	rt, err := router.FromConfig(cfg.Destinations, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build destination registry: %w", err)
	}

	coordinator := duplicate.NewCoordinator(
		cfg.Duplicate.MinDayGap,
		duplicate.VoicesFromConfig(cfg.Destinations),
		logger,
	)

	themes, err := calendar.ThemesFromConfig(cfg.Scheduler.Themes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse theme table: %w", err)
	}

	planner := calendar.NewPlanner(calendar.Config{
		HorizonDays:   cfg.Scheduler.HorizonDays,
		PostsPerDay:   cfg.Scheduler.PostsPerDayPerDestination,
		RecencyWindow: cfg.Scheduler.RecencyWindow,
		OptimalTimes:  cfg.Scheduler.OptimalTimes,
		Themes:        themes,
	}, cat, rt, coordinator, clk, logger)

	if recs, err := store.RecentlyPublished("", cfg.Scheduler.RecencyWindow); err != nil {
		logger.Warn("Failed to seed recency from posting history", zap.Error(err))
	} else {
		planner.SeedRecency(recs)
	}

	publishers := publish.NewRegistry(logger)
	if cfg.Publisher.Graph.Enabled {
		if err := registerGraphPublishers(publishers, cfg, logger); err != nil {
			return nil, err
		}
	}

	dispatcherCfg, err := buildDispatcherConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid dispatcher configuration: %w", err)
	}

	budget, err := buildBudget(cfg, clk)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit configuration: %w", err)
	}

	dispatcher := dispatch.New(dispatcherCfg, store, publishers, budget, planner, clk, logger)

	srv := &Server{
		Config:     cfg,
		Router:     gin.New(),
		Logger:     logger,
		Store:      store,
		Catalog:    cat,
		Routes:     rt,
		Planner:    planner,
		Publishers: publishers,
		Dispatcher: dispatcher,
		Auth:       NewAuthService(logger, cfg.Auth.TOTPSecret, cfg.Auth.Enabled),
	}

	srv.setupMiddleware()
	srv.setupRoutes()

	return srv, nil
}

func newPersister(cfg *config.Config) (queue.Persister, error) {
	switch cfg.Database.Type {
	case "file":
		return queue.NewFilePersister(cfg.Database.DataDir)
	case "postgres":
		db, err := queue.NewDatabase(&cfg.Database)
		if err != nil {
			return nil, err
		}
		return queue.NewGormPersister(db), nil
	default:
		return nil, fmt.Errorf("unknown database type %q", cfg.Database.Type)
	}
}

func registerGraphPublishers(registry *publish.Registry, cfg *config.Config, logger *zap.Logger) error {
	graphCfg := graph.Config{
		BaseURL:            cfg.Publisher.Graph.BaseURL,
		AccessToken:        cfg.Publisher.Graph.AccessToken,
		InstagramAccountID: cfg.Publisher.Graph.InstagramAccountID,
	}

	for _, p := range []publish.Publisher{
		graph.NewFacebook(graphCfg, logger),
		graph.NewThreads(graphCfg, logger),
		graph.NewInstagram(graphCfg, logger),
	} {
		if err := registry.Register(p); err != nil {
			return err
		}
	}
	return nil
}

func buildDispatcherConfig(cfg *config.Config) (dispatch.Config, error) {
	out := dispatch.Config{
		RefillSpec:      cfg.Scheduler.RefillSpec,
		PublishesPerSec: cfg.Dispatcher.PublishesPerSec,
	}
	if !cfg.Scheduler.Enabled {
		out.RefillSpec = ""
	}

	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"poll_interval", cfg.Dispatcher.PollInterval, &out.PollInterval},
		{"due_window", cfg.Dispatcher.DueWindow, &out.DueWindow},
		{"throttle_backoff", cfg.Dispatcher.ThrottleBackoff, &out.ThrottleBackoff},
		{"publish_timeout", cfg.Dispatcher.PublishTimeout, &out.PublishTimeout},
		{"reschedule_delay", cfg.Dispatcher.RescheduleDelay, &out.RescheduleDelay},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return dispatch.Config{}, fmt.Errorf("invalid %s %q: %w", d.name, d.value, err)
		}
		*d.dst = parsed
	}

	return out, nil
}

func buildBudget(cfg *config.Config, clk clock.Clock) (*dispatch.Budget, error) {
	budgets := make(map[string]dispatch.BudgetConfig, len(cfg.RateLimits))
	for platform, limit := range cfg.RateLimits {
		window, err := time.ParseDuration(limit.Window)
		if err != nil {
			return nil, fmt.Errorf("invalid window %q for platform %s: %w", limit.Window, platform, err)
		}
		budgets[platform] = dispatch.BudgetConfig{
			Capacity: limit.Capacity,
			Window:   window,
		}
	}
	return dispatch.NewBudget(budgets, clk), nil
}

func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.Router.Use(gin.Recovery())

	// Logger middleware
	s.Router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	// CORS middleware
	s.Router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Auth-Code")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})
}

func (s *Server) setupRoutes() {
	// Health check
	s.Router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
		})
	})

	// API routes
	api := s.Router.Group("/api/v1")
	{
		queueGroup := api.Group("/queue")
		{
			queueGroup.GET("", s.handleGetQueue)
			queueGroup.GET("/daily", s.handleGetDailySchedule)
			queueGroup.GET("/validate", s.handleValidateQueue)

			protected := queueGroup.Group("", s.Auth.Middleware())
			{
				protected.POST("/refill", s.handleRefill)
				protected.POST("/dispatch", s.handleDispatch)
				protected.POST("/:content_id/reschedule", s.handleReschedule)
				protected.DELETE("/:content_id", s.handleRemove)
			}
		}

		api.GET("/stats", s.handleGetStats)
		api.GET("/history", s.handleGetHistory)
		api.GET("/destinations", s.handleGetDestinations)
		api.GET("/publishers/validate", s.handleValidatePublishers)
	}
}

func (s *Server) Start(ctx context.Context) error {
	// Start dispatcher
	if s.Config.Dispatcher.Enabled {
		if err := s.Dispatcher.Start(ctx); err != nil {
			return fmt.Errorf("failed to start dispatcher: %w", err)
		}
	} else {
		s.Logger.Info("Dispatcher is disabled")
	}

	addr := fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port)

	s.Server = &http.Server{
		Addr:    addr,
		Handler: s.Router,
	}

	s.Logger.Info("Starting HTTP server", zap.String("addr", addr))

	if s.Config.Server.CertFile != "" && s.Config.Server.KeyFile != "" {
		return s.Server.ListenAndServeTLS(s.Config.Server.CertFile, s.Config.Server.KeyFile)
	}

	return s.Server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	// Stop dispatcher first so no publish starts mid-shutdown
	if s.Config.Dispatcher.Enabled {
		s.Dispatcher.Stop()
	}

	if s.Server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	return s.Server.Shutdown(shutdownCtx)
}
