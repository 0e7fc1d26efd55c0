package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/noah-isme/sma-swap-api/internal/handler"
	"github.com/noah-isme/sma-swap-api/internal/middleware"
	"github.com/noah-isme/sma-swap-api/internal/models"
	"github.com/noah-isme/sma-swap-api/internal/service"
	"github.com/noah-isme/sma-swap-api/pkg/config"
)

type routeDeps struct {
	identity     *service.IdentityService
	directory    *service.DirectoryService
	metrics      *service.MetricsService
	checks       map[string]handler.Pinger
	timetables   *handler.TimetableHandler
	availability *handler.AvailabilityHandler
	swaps        *handler.SwapHandler
}

func registerRoutes(r *gin.Engine, cfg *config.Config, deps routeDeps) {
	r.Use(middleware.Metrics(deps.metrics, "/health", "/ready", "/metrics", "/docs/*any"))

	ops := handler.NewMetricsHandler(deps.metrics, deps.checks)
	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)
	r.GET("/metrics", ops.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(deps.identity))
	api.Use(middleware.RequireRoles(models.RoleTeacher))
	api.Use(middleware.Directory(deps.directory))

	api.GET("/classes", deps.timetables.ListClasses)
	api.POST("/classes", deps.timetables.RegisterClass)
	api.GET("/classes/:id/timetable", deps.timetables.GetClassTimetable)
	api.PUT("/classes/:id/timetable", deps.timetables.SaveClassTimetable)
	api.GET("/classes/:id/timetable/export", deps.timetables.ExportClassTimetable)
	api.POST("/timetables/import", deps.timetables.Import)

	api.GET("/me/schedule", deps.timetables.GetMySchedule)
	api.PUT("/me/schedule", deps.timetables.SaveMySchedule)
	api.PATCH("/me/schedule", deps.timetables.MergeMySchedule)
	api.GET("/me/schedule/export", deps.timetables.ExportMySchedule)
	api.GET("/teachers/:id/schedule", deps.timetables.GetTeacherSchedule)

	api.GET("/availability", deps.availability.Find)

	api.GET("/swaps", deps.swaps.List)
	api.POST("/swaps", deps.swaps.Create)
	api.GET("/swaps/:id", deps.swaps.Get)
	api.DELETE("/swaps/:id", deps.swaps.Delete)
	api.POST("/swaps/:id/accept", deps.swaps.Accept)
}
