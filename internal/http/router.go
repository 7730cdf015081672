package http

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"parking-service/internal/auth"
	"parking-service/internal/http/middleware"
)

// defaultPolicy mirrors the gate layout of the deployment: the camera
// consoles authenticate as staff and may only post detections, everything
// else is back-office.
func defaultPolicy() middleware.AccessPolicy {
	return middleware.AccessPolicy{
		Public: []string{
			"/auth/login",
			"/healthz",
		},
		Staff: []string{
			"/detection/entry",
			"/detection/exit",
		},
		Admin: []string{
			"/auth/register",
			"/detection/*",
			"/user*",
		},
	}
}

func NewRouter(handler *Handler, tokens *auth.Manager, environment string) *gin.Engine {
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	r.Use(cors.New(corsConfig))

	r.Use(middleware.RequestID())
	r.Use(middleware.Auth(tokens))
	r.Use(middleware.AccessControl(defaultPolicy()))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handler.Register(r)

	return r
}
