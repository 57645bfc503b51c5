package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"saferoute/internal/apperr"
)

// ServiceInfo is reported on the index endpoint
type ServiceInfo struct {
	Env             string
	DefaultPlatform string
	HasMapsKey      bool
	RouteCache      bool
	GeocodeCache    bool
	Sessions        func() int
}

// SetupMainHandlers registers the main application endpoints
func SetupMainHandlers(router *gin.RouterGroup, info ServiceInfo) {
	router.GET("/", func(c *gin.Context) {
		body := gin.H{
			"service":          "saferoute",
			"env":              info.Env,
			"default_platform": info.DefaultPlatform,
			"maps_key":         info.HasMapsKey,
			"route_cache":      info.RouteCache,
			"geocode_cache":    info.GeocodeCache,
		}
		if info.Sessions != nil {
			body["sessions"] = info.Sessions()
		}
		if !info.HasMapsKey {
			body["warning"] = apperr.MissingAPIKeyWarning
		}
		c.JSON(http.StatusOK, body)
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
