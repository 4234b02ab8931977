package api

import (
	"AgentDeck/backend/go/pkg/httpmiddleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes registers all the routes for the task server.
// jwtSecret protects the event channel; an empty secret leaves it open.
func RegisterRoutes(router *gin.Engine, api *API, jwtSecret string) {
	router.GET("/health", api.HealthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/api/agents", api.AgentsHandler)

	// WebSocket routes
	ws := router.Group("/ws")
	ws.Use(httpmiddleware.Auth(jwtSecret))
	{
		ws.GET("", api.WebSocketHandler)
		ws.GET("/subscribe", api.WebSocketHandler)
	}
}
