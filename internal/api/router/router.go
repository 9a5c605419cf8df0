package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ubernicholi/bravo-bot/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())
	r.Use(MetricsMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "bot-service",
		})
	})

	// Prometheus metrics endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Initialize generation handler
	generationHandler := handler.NewGenerationHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		generations := v1.Group("/generations")
		{
			// POST /api/v1/generations - Queue a new generation
			generations.POST("", generationHandler.CreateGeneration)

			// GET /api/v1/generations - List recent generations
			generations.GET("", generationHandler.ListGenerations)

			// GET /api/v1/generations/:task_id - Get generation status
			generations.GET("/:task_id", generationHandler.GetGeneration)

			// GET /api/v1/generations/:task_id/artifacts/:index - Download one artifact
			generations.GET("/:task_id/artifacts/:index", generationHandler.GetArtifact)
		}

		// POST /api/v1/ask - Chat with the language model
		v1.POST("/ask", generationHandler.Ask)

		// POST /api/v1/speak - Synthesize speech
		v1.POST("/speak", generationHandler.Speak)
	}

	return r
}
