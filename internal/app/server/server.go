package server

import (
	"context"

	"github.com/afftrack/afftrack/internal/app/repository"
	"github.com/afftrack/afftrack/internal/app/service"
	inthttp "github.com/afftrack/afftrack/internal/http/handler"
	"github.com/afftrack/afftrack/internal/http/middleware"
	infraProm "github.com/afftrack/afftrack/internal/infra/prometheus"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Dependencies bundles everything the HTTP server wires into its routes.
type Dependencies struct {
	Logger       *zap.Logger
	Redis        *redis.Client
	Metrics      *infraProm.Metrics
	AdminKey     string
	HashFilter   *service.HashFilter
	Links        service.LinkService
	Clicks       service.ClickService
	Conversions  service.ConversionService
	Stats        service.StatsService
	Click        repository.ClickRepository
	Conversion   repository.ConversionRepository
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with default routes.
func New(deps Dependencies) *Server {
	app := fiber.New()

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerMiddleware()
	s.registerRoutes()
	return s
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// App exposes the underlying fiber app for handler tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) registerMiddleware() {
	s.app.Use(middleware.Recovery(s.deps.Logger))
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.CORS())
	s.app.Use(middleware.Logger(s.deps.Logger))
	s.app.Use(middleware.Principal(s.deps.AdminKey))
	if s.deps.Redis != nil {
		s.app.Use(middleware.RateLimit(s.deps.Redis, middleware.DefaultRateLimitConfig(), s.deps.Logger))
	}
}

func (s *Server) registerRoutes() {
	redirectHandler := inthttp.NewRedirectHandler(inthttp.RedirectDeps{
		Logger:     s.deps.Logger,
		Clicks:     s.deps.Clicks,
		HashFilter: s.deps.HashFilter,
	})
	redirectHandler.Register(s.app)

	postbackHandler := inthttp.NewPostbackHandler(inthttp.PostbackDeps{
		Logger:      s.deps.Logger,
		Conversions: s.deps.Conversions,
		Metrics:     s.deps.Metrics,
	})
	postbackHandler.Register(s.app)

	apiHandler := inthttp.NewAPIHandler(inthttp.APIDeps{
		Logger:      s.deps.Logger,
		Links:       s.deps.Links,
		Conversions: s.deps.Conversions,
		ClickRepo:   s.deps.Click,
		ConvRepo:    s.deps.Conversion,
		Stats:       s.deps.Stats,
	})
	apiHandler.Register(s.app)
}
