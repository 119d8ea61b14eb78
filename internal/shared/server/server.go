package server

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"datachat-backend/internal/analyses"
	"datachat-backend/internal/services/health"
	"datachat-backend/internal/shared/config"
	"datachat-backend/internal/shared/server/middleware"
	"datachat-backend/internal/topics"
)

// Deps collects everything route registration needs.
type Deps struct {
	Health   *health.Service
	Analyses *analyses.Handler
	Topics   *topics.Handler
}

// NewEngine builds the gin engine with middleware and routes registered.
func NewEngine(cfg config.Config, deps Deps) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
	)

	// All mutating endpoints are POST only; anything else gets a 405 with
	// the allowed method advertised.
	engine.HandleMethodNotAllowed = true
	engine.NoMethod(methodNotAllowed)

	registerRoutes(engine, deps)
	return engine
}

// Addr returns a normalized listen address for the given port.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return fmt.Sprintf(":%s", port)
}
