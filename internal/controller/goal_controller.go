package controller

import (
	"errors"
	"net/http"
	"time"

	"goal_tracker_backend/internal/service"
	"goal_tracker_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// GoalController 处理目标生命周期的API请求

type GoalController struct {
	GoalService *service.GoalService
}

func NewGoalController(goalService *service.GoalService) *GoalController {
	return &GoalController{GoalService: goalService}
}

// respondError 按错误类型映射HTTP状态码。持久化失败时内存状态已生效，
// 用502让调用方知道"已接受但没存住"
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrGoalNotFound), errors.Is(err, util.ErrSubGoalNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrEmptyTitle),
		errors.Is(err, util.ErrInvalidTimeRange),
		errors.Is(err, util.ErrSubGoalOutOfBounds),
		errors.Is(err, util.ErrAlreadyDue):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, util.ErrSubGoalsIncomplete):
		util.Error(ctx, http.StatusConflict, err.Error())
	case errors.Is(err, util.ErrPersistence):
		util.Error(ctx, http.StatusBadGateway, "state updated but failed to persist")
	default:
		util.LogInternalError(ctx, err)
	}
}

// @Summary 创建目标
// @Description 创建新目标并排定提醒
// @Tags 目标
// @Accept json
// @Produce json
// @Param goal body service.CreateGoalRequest true "目标信息"
// @Success 201 {object} util.Response
// @Router /api/goals [post]
func (c *GoalController) CreateGoal(ctx *gin.Context) {
	var req service.CreateGoalRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	goal, err := c.GoalService.CreateGoal(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Created(ctx, goal)
}

// @Summary 获取活跃目标
// @Description 获取全部活跃目标
// @Tags 目标
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/goals [get]
func (c *GoalController) GetGoals(ctx *gin.Context) {
	util.Success(ctx, c.GoalService.ActiveGoals())
}

// @Summary 获取单个目标
// @Description 在三个集合中按ID查找目标
// @Tags 目标
// @Produce json
// @Param id path string true "目标ID"
// @Success 200 {object} util.Response
// @Router /api/goals/{id} [get]
func (c *GoalController) GetGoal(ctx *gin.Context) {
	goal, err := c.GoalService.GetGoal(ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, goal)
}

// @Summary 调整目标时间窗
// @Description 修改目标的开始/截止时间并全量重建提醒
// @Tags 目标
// @Accept json
// @Produce json
// @Param id path string true "目标ID"
// @Param schedule body service.UpdateScheduleRequest true "新时间窗"
// @Success 200 {object} util.Response
// @Router /api/goals/{id}/schedule [put]
func (c *GoalController) UpdateGoalSchedule(ctx *gin.Context) {
	var req service.UpdateScheduleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	goal, err := c.GoalService.UpdateGoalSchedule(ctx.Request.Context(), ctx.Param("id"), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, goal)
}

// @Summary 创建子目标
// @Description 给目标追加子目标，时间窗必须在父目标窗口内
// @Tags 目标
// @Accept json
// @Produce json
// @Param id path string true "目标ID"
// @Param subGoal body service.CreateSubGoalRequest true "子目标信息"
// @Success 201 {object} util.Response
// @Router /api/goals/{id}/subgoals [post]
func (c *GoalController) CreateSubGoal(ctx *gin.Context) {
	var req service.CreateSubGoalRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sub, err := c.GoalService.CreateSubGoal(ctx.Request.Context(), ctx.Param("id"), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, sub)
}

// @Summary 完成目标
// @Description 直接完成目标；还有未完成子目标时返回409
// @Tags 目标
// @Produce json
// @Param id path string true "目标ID"
// @Success 200 {object} util.Response
// @Router /api/goals/{id}/complete [post]
func (c *GoalController) CompleteGoal(ctx *gin.Context) {
	goal, err := c.GoalService.CompleteGoal(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, goal)
}

// @Summary 切换子目标完成状态
// @Description 翻转子目标的完成标记，全部完成时父目标自动完成
// @Tags 目标
// @Produce json
// @Param id path string true "目标ID"
// @Param subGoalId path string true "子目标ID"
// @Success 200 {object} util.Response
// @Router /api/goals/{id}/subgoals/{subGoalId}/complete [post]
func (c *GoalController) CompleteSubGoal(ctx *gin.Context) {
	goal, err := c.GoalService.CompleteSubGoal(ctx.Request.Context(), ctx.Param("id"), ctx.Param("subGoalId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, goal)
}

// @Summary 标记子目标过期
// @Description 子目标到期未完成，整个父目标移入未完成集合
// @Tags 目标
// @Produce json
// @Param id path string true "目标ID"
// @Param subGoalId path string true "子目标ID"
// @Success 200 {object} util.Response
// @Router /api/goals/{id}/subgoals/{subGoalId}/expire [post]
func (c *GoalController) MarkSubGoalExpired(ctx *gin.Context) {
	goal, err := c.GoalService.MarkSubGoalExpired(ctx.Request.Context(), ctx.Param("id"), ctx.Param("subGoalId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, goal)
}

// @Summary 获取已完成目标
// @Tags 目标
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/tasks/completed [get]
func (c *GoalController) GetCompletedTasks(ctx *gin.Context) {
	util.Success(ctx, c.GoalService.CompletedGoals())
}

// @Summary 获取未完成（过期）目标
// @Tags 目标
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/tasks/incomplete [get]
func (c *GoalController) GetIncompleteTasks(ctx *gin.Context) {
	util.Success(ctx, c.GoalService.IncompleteGoals())
}

// @Summary 触发过期扫描
// @Description 应用回到前台时调用，立即执行一轮过期检查
// @Tags 目标
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/goals/check-expirations [post]
func (c *GoalController) CheckExpirations(ctx *gin.Context) {
	moved, err := c.GoalService.CheckExpirations(ctx.Request.Context(), time.Now())
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"moved": moved})
}

// @Summary 获取完成率统计
// @Tags 统计
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/performance [get]
func (c *GoalController) GetPerformanceStats(ctx *gin.Context) {
	util.Success(ctx, c.GoalService.GetPerformanceStats())
}
