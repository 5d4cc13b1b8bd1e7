package server

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"social-publisher/infrastructure/realtime"
	httpHandler "social-publisher/interfaces/http"
	"social-publisher/interfaces/middleware"
)

func InitiateRouter(
	healthHandler httpHandler.IHealthHandler,
	connectionHandler httpHandler.IConnectionHandler,
	hub *realtime.Hub,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:4200", "https://localhost:4200"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", healthHandler.Health)
	router.GET("/health/breakers", healthHandler.Breakers)

	// OAuth callbacks arrive from the platform redirect, outside our auth.
	router.GET("/auth/:platform/callback", connectionHandler.Callback)

	api := router.Group("api")
	api.Use(middleware.Auth())
	api.GET("/connections/:platform/auth-url", connectionHandler.GetAuthURL)
	api.GET("/connections/:platform/status", connectionHandler.Status)
	api.GET("/publications/stream", hub.Serve)

	return router
}
