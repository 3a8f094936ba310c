package controller

import (
	"goal_tracker_backend/internal/service"
	"goal_tracker_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// NotificationController 提醒查询、恢复触发与实时推送通道

type NotificationController struct {
	ReminderService *service.ReminderService
	RecoveryService *service.RecoveryService
	Hub             *service.NotifyHub
}

func NewNotificationController(reminders *service.ReminderService, recovery *service.RecoveryService, hub *service.NotifyHub) *NotificationController {
	return &NotificationController{
		ReminderService: reminders,
		RecoveryService: recovery,
		Hub:             hub,
	}
}

// @Summary 获取全部排定中的提醒
// @Tags 提醒
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/notifications [get]
func (c *NotificationController) GetPending(ctx *gin.Context) {
	records, err := c.ReminderService.AllPending(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, records)
}

// @Summary 获取某目标的排定提醒
// @Tags 提醒
// @Produce json
// @Param id path string true "目标ID"
// @Success 200 {object} util.Response
// @Router /api/goals/{id}/notifications [get]
func (c *NotificationController) GetPendingForGoal(ctx *gin.Context) {
	records, err := c.ReminderService.PendingForGoal(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, records)
}

// @Summary 触发提醒恢复
// @Description 重建闹钟状态：错过的补发一次，未来的重新下发。重复调用幂等
// @Tags 提醒
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/notifications/recover [post]
func (c *NotificationController) Recover(ctx *gin.Context) {
	result, err := c.RecoveryService.Recover(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary 提醒推送通道
// @Description WebSocket连接，触发的提醒实时推给客户端
// @Tags 提醒
// @Router /api/notifications/ws [get]
func (c *NotificationController) ServeWS(ctx *gin.Context) {
	c.Hub.ServeWS(ctx.Writer, ctx.Request)
}
