// Package router assembles the HTTP surface of the service.
package router

import (
	"html/template"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/genplan/genplan-web/internal/handler"
	"github.com/genplan/genplan-web/internal/middleware"
	"github.com/genplan/genplan-web/internal/models"
	"github.com/genplan/genplan-web/internal/service"
	"github.com/genplan/genplan-web/pkg/config"
	"github.com/genplan/genplan-web/pkg/logger"
	corsmiddleware "github.com/genplan/genplan-web/pkg/middleware/cors"
	reqidmiddleware "github.com/genplan/genplan-web/pkg/middleware/requestid"
)

// Dependencies are the handlers and collaborators the routes are bound to.
type Dependencies struct {
	Config    *config.Config
	Logger    *zap.Logger
	Metrics   *service.MetricsService
	Auth      middleware.TokenValidator
	Templates *template.Template

	Timetable *handler.TimetableHandler
	Generator *handler.ScheduleGeneratorHandler
	Probes    *handler.MetricsHandler
}

// New builds the gin engine with global middleware and every route.
func New(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics))
	if deps.Templates != nil {
		r.SetHTMLTemplate(deps.Templates)
	}

	r.GET("/health", deps.Probes.Health)
	r.GET("/ready", deps.Probes.Ready)
	r.GET("/metrics", deps.Probes.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())

	// Share links carry their own signature.
	api.GET("/timetable/shared/:token", deps.Timetable.Shared)

	secured := api.Group("")
	secured.Use(middleware.JWT(deps.Auth, cfg.JWT.CookieName))

	timetable := secured.Group("/timetable")
	timetable.GET("/view", deps.Timetable.View)
	timetable.GET("/days", deps.Timetable.Days)
	timetable.GET("/grid", deps.Timetable.Grid)
	timetable.GET("/export", deps.Timetable.Export)
	timetable.POST("/export/link", deps.Timetable.CreateShareLink)

	schedules := secured.Group("/schedules")
	schedules.POST("/check-conflicts", middleware.RequireRoles(models.RoleAdmin, models.RoleLecturer), deps.Generator.CheckConflicts)

	admin := schedules.Group("")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/generate", deps.Generator.Jobs)
	admin.POST("/generate", deps.Generator.Generate)
	admin.GET("/generate/:jobId", deps.Generator.Job)
	admin.POST("/resolve-conflicts", deps.Generator.ResolveConflicts)

	secured.GET("/metrics/summary", middleware.RequireRoles(models.RoleAdmin), deps.Probes.Summary)

	return r
}
