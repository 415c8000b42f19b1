package internal

import (
	"net/http"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	docs "github.com/raids-lab/taskboard/docs"
	"github.com/raids-lab/taskboard/internal/handler"
	"github.com/raids-lab/taskboard/internal/middleware"
	"github.com/raids-lab/taskboard/pkg/config"
)

// Register assembles the gin engine: health check, CORS in debug mode,
// the manager routes in their public/protected/admin groups, metrics and
// swagger.
func Register(conf *handler.RegisterConfig) *gin.Engine {
	r := gin.Default()

	// Kubernetes health check
	r.GET("/v1/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "ok",
		})
	})

	// Enable CORS for http://localhost:XXXX in debug mode
	if gin.Mode() == gin.DebugMode {
		fe := os.Getenv("TASKBOARD_FE_PORT")
		if fe != "" {
			url := "http://localhost:" + fe
			corsConf := cors.DefaultConfig()
			corsConf.AllowOrigins = []string{url}
			corsConf.AllowHeaders = append(corsConf.AllowHeaders, "Authorization")
			r.Use(cors.New(corsConf))
		}
	}

	managers := registerManagers(conf)

	publicRouter := r.Group("/v1")

	protectedRouter := r.Group("/v1")
	protectedRouter.Use(middleware.AuthProtected(conf.DB))

	adminRouter := r.Group("/v1/admin")
	adminRouter.Use(middleware.AuthProtected(conf.DB), middleware.AuthAdmin())

	metricsRouter := r.Group(config.GetConfig().MetricsPath)

	for _, mgr := range managers {
		if mgr.GetName() == "metrics" {
			mgr.RegisterPublic(metricsRouter)
			continue
		}
		mgr.RegisterPublic(publicRouter)
		mgr.RegisterProtected(protectedRouter)
		mgr.RegisterAdmin(adminRouter.Group("/" + mgr.GetName()))
	}

	// Swagger
	docs.SwaggerInfo.BasePath = "/"
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
