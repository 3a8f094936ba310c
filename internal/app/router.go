package app

import (
	"goal_tracker_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

// registerRoutes 注册全部 API 路由
func (a *App) registerRoutes(router *gin.Engine, c *controllers) {
	// Prometheus 指标
	router.GET("/metrics", monitoring.PrometheusHandler())

	api := router.Group("/api")
	{
		api.GET("/health", c.health.HealthCheck)

		goals := api.Group("/goals")
		{
			goals.POST("", c.goal.CreateGoal)
			goals.GET("", c.goal.GetGoals)
			goals.GET("/:id", c.goal.GetGoal)
			goals.PUT("/:id/schedule", c.goal.UpdateGoalSchedule)
			goals.POST("/:id/complete", c.goal.CompleteGoal)
			goals.POST("/:id/subgoals", c.goal.CreateSubGoal)
			goals.POST("/:id/subgoals/:subGoalId/complete", c.goal.CompleteSubGoal)
			goals.POST("/:id/subgoals/:subGoalId/expire", c.goal.MarkSubGoalExpired)
			goals.POST("/check-expirations", c.goal.CheckExpirations)
		}

		tasks := api.Group("/tasks")
		{
			tasks.GET("/completed", c.goal.GetCompletedTasks)
			tasks.GET("/incomplete", c.goal.GetIncompleteTasks)
		}

		api.GET("/performance", c.goal.GetPerformanceStats)
		api.GET("/widget/summary", c.dashboard.GetWidgetSummary)

		notifications := api.Group("/notifications")
		{
			notifications.GET("/pending", c.notification.GetPending)
			notifications.GET("/pending/:id", c.notification.GetPendingForGoal)
			notifications.POST("/recover", c.notification.Recover)
			notifications.GET("/ws", c.notification.ServeWS)
		}
	}
}
