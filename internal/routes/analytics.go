package routes

import (
	"github.com/labstack/echo/v4"

	"tramite-system/internal/authz"
	"tramite-system/internal/controllers"
	"tramite-system/pkg/middleware"
)

// runAnalyticsRouter - чтение требует analytics:view, запись и пересчёты analytics:manage.
func runAnalyticsRouter(secureGroup *echo.Group, deps Dependencies, authMW *middleware.AuthMiddleware) {
	ctrl := controllers.NewAnalyticsController(deps.AnalyticsService, deps.PriorityService, deps.DailyMetrics, deps.TramiteService, deps.Logger)

	g := secureGroup.Group("/analytics", authMW.RequirePermission(authz.AnalyticsView))
	manage := authMW.RequirePermission(authz.AnalyticsManage)

	g.GET("/report", ctrl.GetReport)
	g.GET("/bottlenecks", ctrl.GetBottlenecks)
	g.GET("/statistics", ctrl.GetStatistics)
	g.GET("/trends", ctrl.GetTrends)
	g.GET("/metrics", ctrl.GetMetrics)
	g.POST("/metrics", ctrl.RegisterMetric, manage)
	g.POST("/daily-metrics", ctrl.RecordDailyMetrics, manage)
	g.POST("/priorities/recompute", ctrl.RecomputePriorities, manage)
	g.POST("/assignments", ctrl.SuggestAssignments, manage)
}
