package router

import (
	"github.com/aiphoto/backend/config"
	"github.com/aiphoto/backend/internal/handler"
	"github.com/aiphoto/backend/internal/pkg/storage"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Setup(
	cfg *config.Config,
	generationHandler *handler.GenerationHandler,
	knowledgeHandler *handler.KnowledgeHandler,
	objects storage.ObjectReader,
) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))
	// 图片已压缩，只对 JSON 响应做 gzip
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{staticPrefix})))

	api := r.Group("/api")
	{
		generations := api.Group("/generations")
		{
			generations.POST("", generationHandler.Create)
			generations.GET("/:task_id", generationHandler.Get)
		}

		knowledge := api.Group("/knowledge")
		{
			knowledge.GET("", knowledgeHandler.Search)
			knowledge.POST("", knowledgeHandler.Create)
			knowledge.POST("/smart-search", knowledgeHandler.SmartSearch)
			knowledge.GET("/:id", knowledgeHandler.Get)
			knowledge.PUT("/:id", knowledgeHandler.Update)
		}
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if objects != nil {
		setupStatic(r, objects)
	}

	return r
}
