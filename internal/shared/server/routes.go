package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"datachat-backend/internal/shared/metrics"
)

func registerRoutes(r *gin.Engine, deps Deps) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, deps.Health.Status(c.Request.Context()))
	})
	r.GET("/metrics", metrics.Handler())

	root := r.Group("/")
	deps.Analyses.RegisterRoutes(root)
	deps.Topics.RegisterRoutes(root)
}

func methodNotAllowed(c *gin.Context) {
	c.Header("Allow", http.MethodPost)
	c.JSON(http.StatusMethodNotAllowed, gin.H{
		"success": false,
		"message": "Method " + c.Request.Method + " Not Allowed",
	})
}
