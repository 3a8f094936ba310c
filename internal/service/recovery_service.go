package service

import (
	"context"
	"fmt"
	"time"

	"goal_tracker_backend/internal/model"
	"goal_tracker_backend/internal/repository"
	"goal_tracker_backend/internal/util"
	"goal_tracker_backend/pkg/logger"
	"goal_tracker_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// DeliveryFunc 立即投递一条通知（错过的提醒走这里，不经过闹钟）
type DeliveryFunc func(id string, payload model.ReminderPayload)

// RecoveryService 进程重启（含设备重启）后从持久化簿记重建提醒状态。
// 闹钟存储可能没撑过重启，而应用存储撑过了，所以未来的提醒一律重新下发。
type RecoveryService struct {
	Notifier     Notifier
	ReminderRepo *repository.ReminderRepository
	Deliver      DeliveryFunc

	now func() time.Time
}

func NewRecoveryService(notifier Notifier, reminderRepo *repository.ReminderRepository, deliver DeliveryFunc) *RecoveryService {
	return &RecoveryService{
		Notifier:     notifier,
		ReminderRepo: reminderRepo,
		Deliver:      deliver,
		now:          time.Now,
	}
}

// RecoveryResult 一次恢复的结果
type RecoveryResult struct {
	Restored int `json:"restored"`
	Missed   int `json:"missed"`
}

// Recover 枚举全部簿记：触发时间已过的，补发一次"错过的提醒"后删除记录；
// 还没到的，先取消再重新排定（而不是叠加）。重复调用是幂等的——
// 错过的记录在首次处理后已删除，未来的记录重发不会产生重复。
func (s *RecoveryService) Recover(ctx context.Context) (RecoveryResult, error) {
	var result RecoveryResult

	records, err := s.ReminderRepo.AllRecords(ctx)
	if err != nil {
		return result, fmt.Errorf("%w: enumerate reminder records: %v", util.ErrPersistence, err)
	}

	now := s.now()
	for _, rec := range records {
		if rec.TriggerTime.Before(now) {
			s.fireMissed(rec)
			if err := s.ReminderRepo.RemoveID(ctx, rec.GoalID, rec.ID); err != nil {
				logger.Log.Error("failed to discard missed reminder record",
					zap.String("reminderId", rec.ID), zap.Error(err))
			}
			result.Missed++
			continue
		}

		if err := s.Notifier.Cancel(rec.ID); err != nil {
			logger.Log.Warn("failed to cancel reminder before restore",
				zap.String("reminderId", rec.ID), zap.Error(err))
		}
		if _, err := s.Notifier.ScheduleAt(rec.ID, rec.TriggerTime, rec.Payload); err != nil {
			monitoring.ReminderDispatchErrors.Inc()
			logger.Log.Warn("failed to restore reminder",
				zap.String("reminderId", rec.ID), zap.Error(err))
			continue
		}
		result.Restored++
	}

	logger.Log.Info("reminder recovery finished",
		zap.Int("restored", result.Restored), zap.Int("missed", result.Missed))
	return result, nil
}

func (s *RecoveryService) fireMissed(rec model.ReminderRecord) {
	payload := rec.Payload
	payload.Title = "Missed: " + payload.Title
	s.Deliver(rec.ID, payload)
	monitoring.RemindersMissed.Inc()
}
