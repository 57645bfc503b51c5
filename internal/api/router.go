package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	routes "saferoute/internal/api/handlers"
	"saferoute/internal/model"
	"saferoute/internal/service/session"
)

// Deps carries what the HTTP layer needs from main
type Deps struct {
	Registry        *session.Registry
	DefaultPlatform model.Platform
	Info            routes.ServiceInfo
	Logger          *zap.Logger
}

// SetupRouter installs middleware and all application routes
func SetupRouter(r *gin.Engine, deps Deps) {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r.Use(RecoveryMiddleware(log))
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))

	if deps.Info.Sessions == nil {
		deps.Info.Sessions = deps.Registry.Count
	}

	// API group
	api := r.Group("/api")

	// Setup main handlers
	routes.SetupMainHandlers(r.Group(""), deps.Info)

	// Setup session handlers
	routes.SetupSessionHandlers(api, routes.NewSessionHandler(deps.Registry, deps.DefaultPlatform, log.Named("http")))
}
