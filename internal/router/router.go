package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"lusterd/internal/config"
	"lusterd/internal/database"
	"lusterd/internal/intake"
	"lusterd/internal/middleware"
	"lusterd/internal/objectstore"
	"lusterd/internal/store"
	"lusterd/internal/webhook"
)

// Deps bundles everything the router needs to wire handlers, built once in
// main and passed down rather than constructed inline, so the router stays a
// pure wiring layer.
type Deps struct {
	DB      *database.DB
	Cfg     *config.Config
	Users   *store.UserStore
	Shoots  *store.ShootStore
	Assets  *store.AssetStore
	Jobs    *store.JobStore
	Credits *store.CreditStore
	Objects *objectstore.Client
}

// Setup creates and configures the Gin router for the intake API and the
// billing webhook sink.
func Setup(d Deps) *gin.Engine {
	authMW := intake.AuthMiddleware(d.Users)

	shootHandler := intake.NewShootHandler(d.Shoots, d.Assets, d.Objects)
	uploadHandler := intake.NewUploadHandler(d.Shoots, d.Assets, d.Objects, d.Cfg.PresignTTL)
	jobHandler := intake.NewJobHandler(d.Jobs, d.Assets, d.Credits, d.Objects, d.Cfg.PresignTTL)
	creditHandler := intake.NewCreditHandler(d.Credits)
	webhookHandler := webhook.NewHandler(d.Cfg.WebhookSecret, d.Users, d.Credits, d.Cfg.CreditsPerProduct)

	router := setupBaseRouter(d.Cfg)

	router.GET("/health", healthCheck(d.DB))

	v1 := router.Group("/api/v1")
	v1.Use(authMW)
	{
		shoots := v1.Group("/shoots")
		{
			shoots.POST("", shootHandler.CreateShoot)
			shoots.GET("", shootHandler.ListShoots)
			shoots.GET("/:id/assets", shootHandler.ListAssets)
			shoots.DELETE("/:id", shootHandler.DeleteShoot)
		}

		uploads := v1.Group("/uploads")
		{
			uploads.POST("/presign", uploadHandler.PresignUpload)
			uploads.POST("/confirm", uploadHandler.ConfirmUpload)
		}

		jobs := v1.Group("/jobs")
		{
			jobs.POST("", jobHandler.CreateJob)
			jobs.GET("", jobHandler.ListJobs)
			jobs.GET("/:id", jobHandler.GetJob)
			jobs.POST("/:id/refund", jobHandler.RefundJob)
		}

		v1.GET("/credits", creditHandler.GetBalance)
	}

	// Billing webhook delivery is unauthenticated at the Clerk layer; its own
	// HMAC signature check stands in for AuthMiddleware.
	router.POST("/webhooks/billing", webhookHandler.Handle)

	return router
}

func setupBaseRouter(cfg *config.Config) *gin.Engine {
	router := gin.New()

	router.Use(otelgin.Middleware("lusterd-api"))
	router.Use(middleware.Observability())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RateLimit())

	// Trusted proxies left nil: we don't trust any proxy headers
	// (X-Forwarded-For, etc.) unless this is deployed behind a configured LB.
	router.SetTrustedProxies(nil)

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Authorization",
		"Accept",
		"User-Agent",
		"X-Webhook-Signature",
	}
	corsConfig.AllowMethods = []string{
		"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS",
	}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	return router
}

func healthCheck(db *database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now().Unix(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
		})
	}
}
