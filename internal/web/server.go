// Package web gin server
package web

import (
	"net/http"

	ginMw "github.com/Laisky/gin-middlewares/v7"
	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/openmlhub/model-registry/internal/registry/controller"
	"github.com/openmlhub/model-registry/library/log"
)

// newServer builds the gin engine with the full HTTP surface wired to
// the registry controller.
func newServer(ctrl *controller.Registry) *gin.Engine {
	if !gconfig.Shared.GetBool("debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	server := gin.New()
	server.Use(
		gin.Recovery(),
		ginMw.NewLoggerMiddleware(
			ginMw.WithLoggerMwColored(),
			ginMw.WithLevel(log.Logger.Level().String()),
			ginMw.WithLogger(log.Logger.Named("gin")),
		),
		// the admin panel is served from arbitrary hosts, so the API
		// accepts every origin, method and header
		cors.New(cors.Config{
			AllowAllOrigins: true,
			AllowMethods:    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
			AllowHeaders:    []string{"*"},
		}),
	)

	server.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"message": "Hello from the model registry backend!"})
	})
	server.GET("/test", ctrl.Diagnostics)

	api := server.Group("/api")
	api.GET("/hello", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"message": "Hello from the backend API!"})
	})
	api.POST("/models", ctrl.UploadModel)
	api.POST("/models/url", ctrl.SetModelURL)
	api.GET("/models/active", ctrl.GetActiveModel)
	api.GET("/models", ctrl.ListModels)

	return server
}

// RunServer serves the registry HTTP API on addr and blocks.
func RunServer(addr string, ctrl *controller.Registry) {
	server := newServer(ctrl)

	if err := ginMw.EnableMetric(server); err != nil {
		log.Logger.Panic("enable metric server", zap.Error(err))
	}

	log.Logger.Info("listening on http", zap.String("addr", addr))
	log.Logger.Panic("httpServer exit", zap.Error(server.Run(addr)))
}
