package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"reelStudio/internal/api/middleware"
	"reelStudio/internal/auth"
	"reelStudio/internal/cache"
	"reelStudio/internal/config"
	"reelStudio/internal/gateway"
	"reelStudio/internal/storage"
)

// Deps 汇总路由所需的外部依赖。Redis、Cache、Enqueuer 可为 nil。
// 上传文件不做静态挂载，内容只经 /api/files/:id/content 按归属读取。
type Deps struct {
	Config   *config.Config
	DB       *gorm.DB
	Auth     *auth.AuthService
	Redis    redis.UniversalClient
	Cache    cache.Cache
	Store    storage.ObjectStore
	Enqueuer Enqueuer
	Gateway  gateway.Gateway
	Logger   *slog.Logger
}

// RegisterRoutes 注册 /api 下的全部路由。
func RegisterRoutes(router *gin.Engine, deps Deps) {
	cfg := deps.Config
	gw := deps.Gateway
	if gw == nil {
		gw = gateway.NewMock()
	}

	authHandler := NewAuthHandler(deps.DB, deps.Auth, deps.Redis, deps.Logger, cfg.Auth, cfg.Admin)
	catalogHandler := NewCatalogHandler(deps.DB, deps.Cache, cfg.Cache.TTL, deps.Logger)
	contactHandler := NewContactHandler(deps.DB, deps.Enqueuer, deps.Logger)
	projectHandler := NewProjectHandler(deps.DB, deps.Logger)
	fileHandler := NewFileHandler(deps.DB, deps.Store, cfg.Uploads.ClamdAddr, cfg.Uploads.MaxBytes, deps.Logger)
	questionnaireHandler := NewQuestionnaireHandler(deps.DB, deps.Logger)
	quoteHandler := NewQuoteHandler(deps.DB, deps.Enqueuer, cfg.API.FrontendBaseURL, deps.Logger)
	paymentHandler := NewPaymentHandler(deps.DB, gw, deps.Logger)
	adminHandler := NewAdminHandler(deps.DB, deps.Logger)
	wsHandler := NewWsHandler(deps.Redis, deps.Auth, cfg.Admin.Token, deps.Logger, cfg.API.AllowedOrigins())

	session := middleware.AuthMiddleware(deps.Auth)
	passwordGate := middleware.RequirePasswordChangeCompleted()
	adminGate := middleware.AdminGate(deps.Auth, cfg.Admin.Token)
	publicLimiter := middleware.NewRateLimiter(cfg.RateLimit.PublicRPS, cfg.RateLimit.PublicBurst).LimitMiddleware()

	api := router.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", session, authHandler.Logout)
			authGroup.POST("/change-password", session, authHandler.ChangePassword)
			authGroup.GET("/me", session, authHandler.Me)
		}

		api.GET("/images", catalogHandler.ListImages)
		api.POST("/contact", publicLimiter, contactHandler.Submit)

		api.GET("/contracts", paymentHandler.ListContracts)
		api.GET("/payments", paymentHandler.ListPayments)
		api.GET("/subscriptions", paymentHandler.ListSubscriptions)
		api.POST("/payments/create-intent", session, passwordGate, paymentHandler.CreateIntent)
		api.POST("/payments/webhook", publicLimiter, paymentHandler.Webhook)

		projects := api.Group("/projects", session, passwordGate)
		{
			projects.GET("", projectHandler.List)
			projects.POST("", projectHandler.Create)
			projects.GET("/:id", projectHandler.Get)
			projects.PUT("/:id", projectHandler.Update)
			projects.DELETE("/:id", projectHandler.Delete)
		}

		files := api.Group("/files")
		{
			files.GET("/:id/download", paymentHandler.FileDownload)
			files.GET("/:id/view", paymentHandler.FileView)

			files.GET("", session, passwordGate, fileHandler.List)
			files.POST("", session, passwordGate, fileHandler.Upload)
			files.GET("/:id", session, passwordGate, fileHandler.Get)
			files.GET("/:id/content", session, passwordGate, fileHandler.Content)
			files.DELETE("/:id", session, passwordGate, fileHandler.Delete)
		}

		wedding := api.Group("/wedding")
		{
			wedding.GET("/packages", catalogHandler.ListPackages)
			wedding.GET("/addons", catalogHandler.ListAddons)
			wedding.GET("/venues", catalogHandler.ListVenues)

			wedding.GET("/questionnaire", session, passwordGate, questionnaireHandler.Get)
			wedding.POST("/questionnaire", session, passwordGate, questionnaireHandler.Upsert)

			quotes := wedding.Group("/quotes", session, passwordGate)
			{
				quotes.POST("", quoteHandler.Create)
				quotes.GET("", quoteHandler.List)
				quotes.GET("/:id", quoteHandler.Get)
				quotes.PUT("/:id", quoteHandler.Update)
				quotes.DELETE("/:id", quoteHandler.Delete)
				quotes.GET("/:id/qrcode", quoteHandler.QRCode)
			}
		}

		api.POST("/admin/login", authHandler.AdminLogin)
		api.GET("/admin/ws", wsHandler.HandleConnection)

		admin := api.Group("/admin", adminGate, passwordGate)
		{
			admin.GET("/projects", adminHandler.ListProjects)
			admin.GET("/stats", adminHandler.Stats)
			admin.GET("/wedding/quotes", adminHandler.ListQuotes)
			admin.GET("/questionnaires", adminHandler.ListQuestionnaires)
			admin.GET("/leads", adminHandler.ListLeads)
		}
	}
}
