package bootstrap

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/doerdesk/doerdesk-backend/internal/api/http"
	enginehttp "github.com/doerdesk/doerdesk-backend/internal/engine/http"
	engine "github.com/doerdesk/doerdesk-backend/internal/engine/service"
)

type RouterDeps struct {
	ServiceName string
	Version     string
	Environment string
	Pool        *pgxpool.Pool
	Engine      *engine.Engine
}

func SetGinMode(env string) {
	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.Default()
	r.Use(cors.Default())

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.Pool)
	healthHandler.RegisterRoutes(r)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	enginehttp.Register(api, enginehttp.NewHandler(dep.Engine))

	return r
}
