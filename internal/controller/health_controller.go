package controller

import (
	"errors"
	"net/http"

	"goal_tracker_backend/internal/repository"
	"goal_tracker_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type HealthController struct {
	Store repository.KVStore
}

func NewHealthController(store repository.KVStore) *HealthController {
	return &HealthController{Store: store}
}

// @Summary 健康检查
// @Description 检查服务和存储状态
// @Tags 系统
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	// 键不存在也说明存储可达
	_, err := c.Store.Get(ctx.Request.Context(), "goals")
	if err != nil && !errors.Is(err, repository.ErrKeyNotFound) {
		util.Error(ctx, http.StatusServiceUnavailable, "Storage unavailable")
		return
	}

	util.Success(ctx, gin.H{
		"status": "ok",
		"components": gin.H{
			"storage": "up",
		},
	})
}
