package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/screentimejourney/dashboard-service/docs"
	"github.com/screentimejourney/dashboard-service/internal/api/handler"
	"github.com/screentimejourney/dashboard-service/internal/api/middleware"
	"github.com/screentimejourney/dashboard-service/internal/core/ports"
	"github.com/screentimejourney/dashboard-service/internal/core/service"
	"github.com/screentimejourney/dashboard-service/internal/infrastructure/config"
	mongodb "github.com/screentimejourney/dashboard-service/internal/infrastructure/db/mongo"
	redisdb "github.com/screentimejourney/dashboard-service/internal/infrastructure/db/redis"
)

// Dependencies carries the infrastructure the router wires into services.
// Devices is built by the caller because it is cross-bound with the relock
// scheduler before the router exists.
type Dependencies struct {
	Config  *config.Config
	Mongo   *mongo.Database
	Redis   *redis.Client
	Backend ports.BackendClient
	Devices *service.DeviceService
	Log     zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echoprometheus.NewMiddleware("journey"))

	// --- Services ---
	cfg := deps.Config
	authService := service.NewAuthService(deps.Backend, cfg.ProxyReturnPath, deps.Log)
	flowService := service.NewFlowService(
		mongodb.NewFlowRunRepository(deps.Mongo),
		deps.Backend,
		redisdb.NewEffectGuard(deps.Redis),
		cfg.DemoMode,
		deps.Log,
	)
	progressService := service.NewProgressService(deps.Backend, redisdb.NewPercentileCache(deps.Redis, deps.Log), deps.Log)
	profileService := service.NewProfileService(deps.Backend, deps.Log)

	// --- Handlers ---
	sessionHandler := handler.NewSessionHandler(authService, cfg.IsProduction())
	flowHandler := handler.NewFlowHandler(flowService, cfg.IsProduction())
	deviceHandler := handler.NewDeviceHandler(deps.Devices)
	progressHandler := handler.NewProgressHandler(progressService)
	profileHandler := handler.NewProfileHandler(profileService)

	// --- Operational endpoints (no session required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.Mongo, deps.Redis)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Session bootstrap (the only identity-free API routes) ---
	e.GET("/v1/session/resolve", sessionHandler.Resolve)
	e.DELETE("/v1/session", sessionHandler.Logout)

	// --- Authenticated surface ---
	v1 := e.Group("/v1", middleware.Session(cfg.AllowTestOverride))

	v1.POST("/flows/:flow_id/runs", flowHandler.Start)
	v1.GET("/flow-runs/:run_id", flowHandler.Get)
	v1.POST("/flow-runs/:run_id/advance", flowHandler.Advance)
	v1.POST("/flow-runs/:run_id/retreat", flowHandler.Retreat)
	v1.DELETE("/flow-runs/:run_id", flowHandler.Cancel)
	v1.POST("/flow-runs/:run_id/surrender", flowHandler.SubmitSurrender)
	v1.GET("/flow-runs/:run_id/profile", flowHandler.DownloadProfile)

	v1.GET("/profile", profileHandler.Get)
	v1.PUT("/profile", profileHandler.Update)
	v1.GET("/profile/username-check", profileHandler.CheckUsername)
	v1.POST("/profile/phone/send-code", profileHandler.SendPhoneCode)
	v1.POST("/profile/phone/verify", profileHandler.VerifyPhoneCode)
	v1.PUT("/profile/notifications", profileHandler.UpdateNotifications)
	v1.POST("/subscription/cancel", profileHandler.CancelSubscription)

	// Devices and progress assume an onboarded subscriber; the setup flow is
	// how a fresh account gets there.
	onboarded := v1.Group("", middleware.RequireCompleteProfile())
	onboarded.GET("/devices", deviceHandler.List)
	onboarded.POST("/devices/:device_id/unlock", deviceHandler.DirectUnlock)
	onboarded.GET("/devices/activity", deviceHandler.Activity)
	onboarded.GET("/progress", progressHandler.View)

	return e
}
