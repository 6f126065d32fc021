package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ondutypro/onduty-api/internal/handler"
	"github.com/ondutypro/onduty-api/internal/middleware"
	"github.com/ondutypro/onduty-api/internal/service"
	"github.com/ondutypro/onduty-api/pkg/config"
	"github.com/ondutypro/onduty-api/pkg/logger"
	corsmiddleware "github.com/ondutypro/onduty-api/pkg/middleware/cors"
	reqidmiddleware "github.com/ondutypro/onduty-api/pkg/middleware/requestid"
)

// Handlers groups the route handlers wired by Setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	User    *handler.UserHandler
	Request *handler.RequestHandler
	Health  *handler.HealthHandler
	Metrics *handler.MetricsHandler
}

// Setup builds the Gin engine with all middleware and routes.
func Setup(cfg *config.Config, h Handlers, authSvc *service.AuthService, metricsSvc *service.MetricsService, logr *zap.Logger) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(cfg.APIPrefix)
	{
		api.GET("/health", h.Health.Health)

		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
			auth.GET("/me", middleware.JWT(authSvc), h.Auth.Me)
		}

		authorized := api.Group("")
		authorized.Use(middleware.JWT(authSvc))
		{
			users := authorized.Group("/users")
			{
				users.GET("", h.User.List)
				users.GET("/:id", h.User.Get)
				users.PUT("/:id", h.User.Update)
				users.DELETE("/:id", h.User.Delete)
			}

			requests := authorized.Group("/requests")
			{
				requests.GET("", h.Request.List)
				requests.POST("", h.Request.Create)
				if cfg.Export.Enabled {
					requests.GET("/export", h.Request.Export)
				}
				requests.GET("/:id", h.Request.Get)
				requests.PUT("/:id", h.Request.Update)
				requests.DELETE("/:id", h.Request.Delete)
				requests.POST("/:id/accept", h.Request.Accept)
				requests.POST("/:id/reject", h.Request.Reject)
				requests.POST("/:id/revoke", h.Request.Revoke)
			}
		}
	}

	return r
}
