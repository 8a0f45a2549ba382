package router

import (
	"github.com/Smartconnectcrm/smartconnect-website/config"
	"github.com/Smartconnectcrm/smartconnect-website/handlers"
	"github.com/Smartconnectcrm/smartconnect-website/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// Dependencies struct holds all dependencies required for setting up routes.
type Dependencies struct {
	Config             *config.Config
	ContactHandler     *handlers.ContactHandler
	ContactLogsHandler *handlers.ContactLogsHandler
	CSPReportHandler   *handlers.CSPReportHandler
	SitemapHandler     *handlers.SitemapHandler
	HealthHandler      *handlers.HealthHandler
	Logger             *zap.SugaredLogger
}

// SetupRouter configures and returns the main Gin engine with all routes defined.
func SetupRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())

	// Only listed proxies may set X-Forwarded-For; nil trusts none.
	if err := r.SetTrustedProxies(deps.Config.Server.TrustedProxies); err != nil {
		return nil, err
	}

	// Global Middleware
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.SecurityHeadersMiddleware(deps.Config))
	r.Use(middleware.ErrorHandler())
	// Global so preflight requests reach it before routing.
	r.Use(middleware.CORSMiddleware(&deps.Config.Server))

	// Health and Metrics Routes
	r.GET("/health", deps.HealthHandler.DetailedHealth)
	r.GET("/health/liveness", deps.HealthHandler.LivenessCheck)
	r.GET("/health/readiness", deps.HealthHandler.ReadinessCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/sitemap.xml", deps.SitemapHandler.GetSitemap)

	// Swagger documentation (only in non-production)
	if !deps.Config.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group("/api")
	api.Use(middleware.NoStore())
	api.Use(middleware.ClientIdentityMiddleware())
	{
		api.POST("/contact", middleware.BodyLimit(handlers.ContactBodyLimit), deps.ContactHandler.SubmitContact)
		api.POST("/csp-report", deps.CSPReportHandler.ReceiveReport)

		admin := api.Group("/admin")
		admin.Use(middleware.AdminAuth(deps.Config.Admin.APIKey))
		{
			admin.GET("/contact-logs", deps.ContactLogsHandler.ListContactLogs)
		}
	}

	if deps.Logger != nil {
		deps.Logger.Infow("Routes registered", "count", len(r.Routes()))
	}
	return r, nil
}
