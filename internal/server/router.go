package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/pianocrm-backend/internal/handlers"
)

type RouterConfig struct {
	CustomerHandler *handlers.CustomerHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		api.POST("/customers/:id/requalify", cfg.CustomerHandler.Requalify)
		api.GET("/customers/:id/profile", cfg.CustomerHandler.GetProfile)
		api.POST("/requalify/batch", cfg.CustomerHandler.RunBatch)
	}

	return router
}
