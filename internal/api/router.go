package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/propspace/marketplace/docs"
	"github.com/propspace/marketplace/internal/api/handler"
	"github.com/propspace/marketplace/internal/api/middleware"
	"github.com/propspace/marketplace/internal/core/domain"
	"github.com/propspace/marketplace/internal/core/ports"
	"github.com/propspace/marketplace/internal/infrastructure/http/handlers"
)

// Dependencies are the services the router exposes over HTTP.
type Dependencies struct {
	Log            zerolog.Logger
	Auth           ports.AuthService
	Resolver       ports.IdentityResolver
	ResolveTimeout time.Duration
	Profiles       ports.ProfileService
	Creator        ports.ProfileProvisioner
	Properties     ports.PropertyService
	Favorites      ports.FavoriteService
	ServiceKey     string
	// AuthRate and AuthBurst throttle the unauthenticated /auth endpoints per
	// client IP. A zero rate disables throttling.
	AuthRate     float64
	AuthBurst    int
	HealthChecks map[string]handlers.Check
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddleware("propspace"))

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	profileHandler := handler.NewProfileHandler(deps.Profiles, deps.Creator)
	sessionHandler := handler.NewSessionHandler()
	propertyHandler := handler.NewPropertyHandler(deps.Properties)
	favoriteHandler := handler.NewFavoriteHandler(deps.Favorites)

	authenticated := middleware.Auth(deps.Auth)
	identity := middleware.Identity(deps.Resolver, deps.ResolveTimeout, deps.Log)
	landlordOnly := middleware.RBAC(domain.RoleLandlord)

	// --- Auth routes ---
	auth := e.Group("/auth")
	if deps.AuthRate > 0 {
		auth.Use(middleware.RateLimit(deps.AuthRate, deps.AuthBurst))
	}
	auth.POST("/signup", authHandler.SignUp)
	auth.POST("/signin", authHandler.SignIn)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/signout", authHandler.SignOut, authenticated)
	auth.GET("/user", authHandler.User, authenticated)

	// --- Profiles and session ---
	// GET /profiles/me skips identity resolution so a missing profile is a
	// plain 404 the client can act on.
	e.GET("/profiles/me", profileHandler.Me, authenticated)
	e.POST("/profiles", profileHandler.Create, authenticated)
	e.PUT("/profiles/me", profileHandler.UpdateMe, authenticated, identity, middleware.RequireProfile())
	e.GET("/session", sessionHandler.Get, authenticated, identity)

	admin := e.Group("/admin", middleware.ServiceKey(deps.ServiceKey))
	admin.PUT("/profiles/:id/role", profileHandler.ChangeRole)

	// --- Listings ---
	properties := e.Group("/properties")
	properties.GET("", propertyHandler.List)
	properties.GET("/mine", propertyHandler.Mine, authenticated, identity, landlordOnly)
	properties.GET("/:id", propertyHandler.Get)
	properties.POST("", propertyHandler.Create, authenticated, identity, landlordOnly)
	properties.PUT("/:id", propertyHandler.Update, authenticated, identity, landlordOnly)
	properties.DELETE("/:id", propertyHandler.Delete, authenticated, identity, landlordOnly)
	properties.PUT("/:id/images/:position", propertyHandler.PutImage, authenticated, identity, landlordOnly)
	properties.DELETE("/:id/images/:position", propertyHandler.RemoveImage, authenticated, identity, landlordOnly)

	favorites := e.Group("/favorites", authenticated, identity, middleware.RequireProfile())
	favorites.GET("", favoriteHandler.List)
	favorites.GET("/:propertyID", favoriteHandler.Check)
	favorites.POST("/:propertyID", favoriteHandler.Add)
	favorites.DELETE("/:propertyID", favoriteHandler.Remove)

	// --- Health probes, metrics and docs (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(deps.HealthChecks)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		Skipper: func(c echo.Context) bool {
			p := c.Path()
			return p == "/health" || p == "/metrics"
		},
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Error != nil {
				evt = log.Warn().Err(v.Error)
			}
			evt.
				Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}
