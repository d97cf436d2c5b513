package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/api/handlers"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/api/middleware"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/app"
)

// SetupRouter initializes and returns the Gin router with all routes configured
func SetupRouter(a *app.App) *gin.Engine {
	router := gin.Default()

	origins := a.Config.AllowedOrigins()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-API-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: len(origins) != 1 || origins[0] != "*",
		MaxAge:           12 * time.Hour,
	}))

	authHandler := handlers.NewAuthHandler(a.Users, a.Auth.JWTManager, a.Logs)
	workflowHandler := handlers.NewWorkflowHandler(a.Workflows)
	accountHandler := handlers.NewAccountHandler(a.Accounts, a.SyncScheduler)
	oauthHandler := handlers.NewOAuthHandler(a.Accounts, a.Registry, a.Config.OAuthRedirectBaseURL)
	triggerHandler := handlers.NewTriggerHandler(a.Triggers)
	syncHandler := handlers.NewSyncHandler(a.SyncScheduler)
	historyHandler := handlers.NewHistoryHandler(a.Audit)
	logHandler := handlers.NewLogHandler(a.Logs)

	// Health check endpoint (no auth required)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"scheduler": a.SyncScheduler.IsRunning(),
		})
	})

	// The provider redirects the browser here, so neither API key nor JWT is present
	router.GET("/api/oauth/:provider/callback", oauthHandler.Callback)

	api := router.Group("/api")
	{
		api.Use(middleware.APIKeyMiddleware(a.Auth.APIKeyManager))
		api.Use(middleware.RequestLogMiddleware(a.Logs))

		api.POST("/auth/login", authHandler.Login)
		api.GET("/oauth/config", oauthHandler.GetOAuthConfig)

		// Protected routes (API key + JWT required)
		protected := api.Group("")
		protected.Use(middleware.JWTMiddleware(a.Auth.JWTManager))
		{
			protected.POST("/auth/refresh", authHandler.RefreshToken)
			protected.GET("/auth/me", authHandler.GetCurrentUser)

			protected.GET("/oauth/:provider/auth", oauthHandler.GetAuthURL)

			workflows := protected.Group("/workflows")
			{
				workflows.GET("", workflowHandler.ListWorkflows)
				workflows.POST("", workflowHandler.CreateWorkflow)
			}

			calendar := protected.Group("/calendar")
			{
				accounts := calendar.Group("/accounts")
				{
					accounts.GET("", accountHandler.ListAccounts)
					accounts.POST("", accountHandler.ConnectAccount)
					accounts.GET("/:id", accountHandler.GetAccount)
					accounts.POST("/:id/test", accountHandler.TestConnection)
					accounts.PUT("/:id/settings", accountHandler.UpdateSettings)
					accounts.PUT("/:id/enable", accountHandler.EnableAccount)
					accounts.PUT("/:id/disable", accountHandler.DisableAccount)
					accounts.POST("/:id/sync", syncHandler.SyncAccount)
				}

				triggers := calendar.Group("/triggers")
				{
					triggers.GET("", triggerHandler.ListTriggers)
					triggers.POST("", triggerHandler.CreateTrigger)
					triggers.GET("/:id", triggerHandler.GetTrigger)
					triggers.PUT("/:id", triggerHandler.UpdateTrigger)
					triggers.DELETE("/:id", triggerHandler.DeleteTrigger)
					triggers.PUT("/:id/enable", triggerHandler.EnableTrigger)
					triggers.PUT("/:id/disable", triggerHandler.DisableTrigger)
				}

				calendar.POST("/sync", syncHandler.SyncTenant)
				calendar.GET("/executions", historyHandler.ListExecutions)
				calendar.GET("/executions/:execution_id", historyHandler.GetExecution)
				calendar.GET("/queue", historyHandler.ListQueue)
			}

			protected.GET("/logs", logHandler.GetLogs)
		}
	}

	return router
}
