package controller

import (
	"goal_tracker_backend/internal/service"
	"goal_tracker_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// DashboardController 桌面小组件的只读摘要接口

type DashboardController struct {
	GoalService *service.GoalService
}

func NewDashboardController(goalService *service.GoalService) *DashboardController {
	return &DashboardController{GoalService: goalService}
}

// @Summary 小组件摘要
// @Description 各集合数量与最近三条临近目标，小组件无写路径
// @Tags 小组件
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/widget/summary [get]
func (c *DashboardController) GetWidgetSummary(ctx *gin.Context) {
	util.Success(ctx, c.GoalService.GetSummary())
}
