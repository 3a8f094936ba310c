package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"goal_tracker_backend/internal/model"
	"goal_tracker_backend/internal/repository"
	"goal_tracker_backend/internal/util"
	"goal_tracker_backend/pkg/logger"
	"goal_tracker_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// Notifier 外部通知派发服务（系统闹钟）的抽象。
// 实现方保证 payload 在 triggerTime 之后恰好投递一次，并支持按 ID 取消。
type Notifier interface {
	ScheduleAt(id string, triggerTime time.Time, payload model.ReminderPayload) (string, error)
	Cancel(id string) error
}

// ReminderService 维护每个目标的提醒集合。
// 重排永远是先全量取消再重建，编辑后不会有旧提醒残留；
// 同一目标的重排通过 per-goal 锁串行化。
type ReminderService struct {
	Notifier     Notifier
	ReminderRepo *repository.ReminderRepository

	mu        sync.Mutex
	goalLocks map[string]*sync.Mutex

	now func() time.Time
}

func NewReminderService(notifier Notifier, reminderRepo *repository.ReminderRepository) *ReminderService {
	return &ReminderService{
		Notifier:     notifier,
		ReminderRepo: reminderRepo,
		goalLocks:    make(map[string]*sync.Mutex),
		now:          time.Now,
	}
}

func (s *ReminderService) lockGoal(goalID string) func() {
	s.mu.Lock()
	lock, ok := s.goalLocks[goalID]
	if !ok {
		lock = &sync.Mutex{}
		s.goalLocks[goalID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// RescheduleGoal 全量替换某目标的提醒：取消全部旧提醒，再按目标及其未完成
// 子目标的当前时间窗重建。派发失败只记录并计数，不阻断调用方的生命周期操作。
func (s *ReminderService) RescheduleGoal(ctx context.Context, goal *model.Goal) error {
	unlock := s.lockGoal(goal.ID)
	defer unlock()

	if err := s.cancelLocked(ctx, goal.ID); err != nil {
		logger.Log.Warn("failed to cancel previous reminders",
			zap.String("goalId", goal.ID), zap.Error(err))
	}

	now := s.now()
	records := buildReminderRecords(goal, now)

	scheduled := make([]model.ReminderRecord, 0, len(records))
	for _, rec := range records {
		if _, err := s.Notifier.ScheduleAt(rec.ID, rec.TriggerTime, rec.Payload); err != nil {
			monitoring.ReminderDispatchErrors.Inc()
			logger.Log.Warn("failed to schedule reminder",
				zap.String("goalId", goal.ID),
				zap.String("reminderId", rec.ID),
				zap.Error(err))
			continue
		}
		scheduled = append(scheduled, rec)
	}
	monitoring.RemindersScheduled.Add(float64(len(scheduled)))

	if err := s.ReminderRepo.SaveForGoal(ctx, goal.ID, scheduled); err != nil {
		return fmt.Errorf("%w: reminder bookkeeping for goal %s: %v", util.ErrPersistence, goal.ID, err)
	}
	return nil
}

// CancelGoal 取消并清除某目标的全部提醒
func (s *ReminderService) CancelGoal(ctx context.Context, goalID string) error {
	unlock := s.lockGoal(goalID)
	defer unlock()
	return s.cancelLocked(ctx, goalID)
}

func (s *ReminderService) cancelLocked(ctx context.Context, goalID string) error {
	ids, err := s.ReminderRepo.IDsForGoal(ctx, goalID)
	if err != nil {
		return fmt.Errorf("%w: reminder ids for goal %s: %v", util.ErrPersistence, goalID, err)
	}

	for _, id := range ids {
		if err := s.Notifier.Cancel(id); err != nil {
			monitoring.ReminderDispatchErrors.Inc()
			logger.Log.Warn("failed to cancel reminder",
				zap.String("reminderId", id), zap.Error(err))
		}
	}
	monitoring.RemindersCanceled.Add(float64(len(ids)))

	if err := s.ReminderRepo.DeleteForGoal(ctx, goalID, ids); err != nil {
		return fmt.Errorf("%w: reminder cleanup for goal %s: %v", util.ErrPersistence, goalID, err)
	}
	return nil
}

// PendingForGoal 查询某目标当前排定的提醒
func (s *ReminderService) PendingForGoal(ctx context.Context, goalID string) ([]model.ReminderRecord, error) {
	return s.ReminderRepo.RecordsForGoal(ctx, goalID)
}

// AllPending 查询全部排定中的提醒
func (s *ReminderService) AllPending(ctx context.Context) ([]model.ReminderRecord, error) {
	return s.ReminderRepo.AllRecords(ctx)
}

// buildReminderRecords 为目标本身和每个未完成子目标计算检查点。
// 已过期的窗口（ErrAlreadyDue）不产生提醒。
func buildReminderRecords(goal *model.Goal, now time.Time) []model.ReminderRecord {
	var records []model.ReminderRecord

	checkpoints, err := ComputeCheckpoints(goal.StartTime, goal.DueDate, now)
	if err != nil && !errors.Is(err, util.ErrAlreadyDue) {
		logger.Log.Warn("invalid goal window", zap.String("goalId", goal.ID), zap.Error(err))
	}
	for _, cp := range checkpoints {
		records = append(records, model.ReminderRecord{
			ID:          fmt.Sprintf("task-%s-%d", goal.ID, cp.Percent),
			GoalID:      goal.ID,
			TriggerTime: cp.TriggerTime,
			Percent:     cp.Percent,
			Payload:     taskPayload(goal, cp),
		})
	}

	for i := range goal.SubGoals {
		sub := &goal.SubGoals[i]
		if sub.Completed || sub.Expired {
			continue
		}
		checkpoints, err := ComputeCheckpoints(sub.StartTime, sub.DueDate, now)
		if err != nil {
			continue
		}
		for _, cp := range checkpoints {
			records = append(records, model.ReminderRecord{
				ID:          fmt.Sprintf("subgoal-%s-%d", sub.ID, cp.Percent),
				GoalID:      goal.ID,
				TriggerTime: cp.TriggerTime,
				Percent:     cp.Percent,
				Payload:     subGoalPayload(goal, sub, cp),
			})
		}
	}

	return records
}

func taskPayload(goal *model.Goal, cp Checkpoint) model.ReminderPayload {
	title := "Task Reminder"
	body := fmt.Sprintf("Your task %q is due in %s!", goal.Title, formatTimeRemaining(goal.DueDate.Sub(cp.TriggerTime)))
	if cp.Percent == 100 {
		title = "Task Due Now!"
		body = fmt.Sprintf("Your task %q is due now!", goal.Title)
	}
	return model.ReminderPayload{
		Title:   title,
		Body:    body,
		Channel: model.ReminderChannel,
		Data: model.ReminderData{
			TaskID:  goal.ID,
			Type:    model.ReminderTask,
			DueDate: goal.DueDate,
			Title:   goal.Title,
		},
	}
}

func subGoalPayload(goal *model.Goal, sub *model.SubGoal, cp Checkpoint) model.ReminderPayload {
	title := "Sub-goal Reminder"
	body := fmt.Sprintf("Sub-goal %q of %q is due in %s!", sub.Title, goal.Title, formatTimeRemaining(sub.DueDate.Sub(cp.TriggerTime)))
	if cp.Percent == 100 {
		title = "Sub-goal Due Now!"
		body = fmt.Sprintf("Sub-goal %q of %q is due now!", sub.Title, goal.Title)
	}
	return model.ReminderPayload{
		Title:   title,
		Body:    body,
		Channel: model.ReminderChannel,
		Data: model.ReminderData{
			TaskID:      goal.ID,
			Type:        model.ReminderSubGoal,
			DueDate:     sub.DueDate,
			Title:       sub.Title,
			SubGoalID:   sub.ID,
			ParentTitle: goal.Title,
		},
	}
}

func formatTimeRemaining(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	switch {
	case days == 1:
		return "1 day"
	case days > 1:
		return fmt.Sprintf("%d days", days)
	case hours == 1:
		return "1 hour"
	case hours > 1:
		return fmt.Sprintf("%d hours", hours)
	case minutes == 1:
		return "1 minute"
	case minutes > 1:
		return fmt.Sprintf("%d minutes", minutes)
	default:
		return "less than a minute"
	}
}
