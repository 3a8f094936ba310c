package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"goal_tracker_backend/internal/model"
	"goal_tracker_backend/internal/repository"
	"goal_tracker_backend/internal/util"
	"goal_tracker_backend/pkg/logger"
	"goal_tracker_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// GoalService 目标生命周期引擎，三份集合（active/completed/incomplete）的唯一写入方。
// 每个目标的 ID 在任一时刻只出现在一个集合中；completed 与 incomplete 是终态。
// 持久化是乐观的：写存储失败时内存状态保留，错误向调用方透出，下次成功写入即可收敛。
type GoalService struct {
	GoalRepo  *repository.GoalRepository
	Reminders *ReminderService

	mu         sync.RWMutex
	active     []model.Goal
	completed  []model.Goal
	incomplete []model.Goal

	now func() time.Time
}

func NewGoalService(goalRepo *repository.GoalRepository, reminders *ReminderService) *GoalService {
	return &GoalService{
		GoalRepo:  goalRepo,
		Reminders: reminders,
		now:       time.Now,
	}
}

// CreateGoalRequest 创建目标的请求结构
type CreateGoalRequest struct {
	Title     string    `json:"title" binding:"required,max=255"`
	StartTime time.Time `json:"startTime" binding:"required"`
	DueDate   time.Time `json:"dueDate" binding:"required"`
}

// CreateSubGoalRequest 创建子目标的请求结构
type CreateSubGoalRequest struct {
	Title     string    `json:"title" binding:"required,max=255"`
	StartTime time.Time `json:"startTime" binding:"required"`
	DueDate   time.Time `json:"dueDate" binding:"required"`
}

// UpdateScheduleRequest 调整目标时间窗的请求结构
type UpdateScheduleRequest struct {
	StartTime time.Time `json:"startTime" binding:"required"`
	DueDate   time.Time `json:"dueDate" binding:"required"`
}

// PerformanceStats 完成率统计
type PerformanceStats struct {
	Total             int     `json:"total"`
	Completed         int     `json:"completed"`
	Incomplete        int     `json:"incomplete"`
	Performance       float64 `json:"performance"`
	TotalSubGoals     int     `json:"totalSubGoals"`
	CompletedSubGoals int     `json:"completedSubGoals"`
}

// UpcomingGoal 小组件摘要里的一条临近目标
type UpcomingGoal struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	DueDate time.Time `json:"dueDate"`
}

// WidgetSummary 小组件只读摘要：各集合数量加最近三条临近目标
type WidgetSummary struct {
	ActiveCount     int            `json:"activeCount"`
	CompletedCount  int            `json:"completedCount"`
	IncompleteCount int            `json:"incompleteCount"`
	Upcoming        []UpcomingGoal `json:"upcoming"`
}

// Load 从存储恢复三份集合，进程启动时调用一次
func (s *GoalService) Load(ctx context.Context) error {
	active, completed, incomplete, err := s.GoalRepo.LoadCollections(ctx)
	if err != nil {
		return fmt.Errorf("%w: load goal collections: %v", util.ErrPersistence, err)
	}

	s.mu.Lock()
	s.active = active
	s.completed = completed
	s.incomplete = incomplete
	s.mu.Unlock()
	return nil
}

// CreateGoal 创建目标并排定提醒
func (s *GoalService) CreateGoal(ctx context.Context, req CreateGoalRequest) (*model.Goal, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, util.ErrEmptyTitle
	}
	if !req.StartTime.Before(req.DueDate) {
		return nil, util.ErrInvalidTimeRange
	}

	goal := model.Goal{
		ID:        model.NewID(),
		Title:     req.Title,
		StartTime: req.StartTime,
		DueDate:   req.DueDate,
		SubGoals:  []model.SubGoal{},
	}

	s.mu.Lock()
	s.active = append(s.active, goal)
	persistErr := s.persistLocked(ctx)
	s.mu.Unlock()

	s.rescheduleReminders(ctx, &goal)
	return copyGoal(&goal), persistErr
}

// CreateSubGoal 给已有目标追加子目标并重排父目标的提醒。
// 边界校验只在创建时做，之后父目标时间窗变化不会回头修正子目标。
func (s *GoalService) CreateSubGoal(ctx context.Context, goalID string, req CreateSubGoalRequest) (*model.SubGoal, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, util.ErrEmptyTitle
	}
	if !req.StartTime.Before(req.DueDate) {
		return nil, util.ErrInvalidTimeRange
	}

	s.mu.Lock()
	idx := indexOfGoal(s.active, goalID)
	if idx < 0 {
		s.mu.Unlock()
		return nil, util.ErrGoalNotFound
	}
	parent := &s.active[idx]
	if req.StartTime.Before(parent.StartTime) || req.DueDate.After(parent.DueDate) {
		s.mu.Unlock()
		return nil, util.ErrSubGoalOutOfBounds
	}

	sub := model.SubGoal{
		ID:        model.NewID(),
		Title:     req.Title,
		StartTime: req.StartTime,
		DueDate:   req.DueDate,
	}
	parent.SubGoals = append(parent.SubGoals, sub)
	parentCopy := copyGoal(parent)
	persistErr := s.persistLocked(ctx)
	s.mu.Unlock()

	s.rescheduleReminders(ctx, parentCopy)
	return &sub, persistErr
}

// UpdateGoalSchedule 调整目标的时间窗并全量重排提醒，旧提醒不会残留
func (s *GoalService) UpdateGoalSchedule(ctx context.Context, goalID string, req UpdateScheduleRequest) (*model.Goal, error) {
	if !req.StartTime.Before(req.DueDate) {
		return nil, util.ErrInvalidTimeRange
	}

	s.mu.Lock()
	idx := indexOfGoal(s.active, goalID)
	if idx < 0 {
		s.mu.Unlock()
		return nil, util.ErrGoalNotFound
	}
	goal := &s.active[idx]
	goal.StartTime = req.StartTime
	goal.DueDate = req.DueDate
	goalCopy := copyGoal(goal)
	persistErr := s.persistLocked(ctx)
	s.mu.Unlock()

	s.rescheduleReminders(ctx, goalCopy)
	return goalCopy, persistErr
}

// CompleteGoal 直接完成目标。带子目标的目标只能通过全部子目标完成来达成，
// 还有未完成子目标时拒绝。
func (s *GoalService) CompleteGoal(ctx context.Context, goalID string) (*model.Goal, error) {
	s.mu.Lock()
	idx := indexOfGoal(s.active, goalID)
	if idx < 0 {
		s.mu.Unlock()
		return nil, util.ErrGoalNotFound
	}
	if !s.active[idx].AllSubGoalsCompleted() {
		s.mu.Unlock()
		return nil, util.ErrSubGoalsIncomplete
	}

	goalCopy := s.completeGoalLocked(idx, s.now())
	persistErr := s.persistLocked(ctx)
	s.mu.Unlock()

	s.cancelReminders(ctx, goalID)
	return goalCopy, persistErr
}

// CompleteSubGoal 翻转子目标的完成状态。翻转后父目标的全部子目标都完成时，
// 父目标自动完成——这是唯一一条自下而上的完成路径。
func (s *GoalService) CompleteSubGoal(ctx context.Context, goalID, subGoalID string) (*model.Goal, error) {
	s.mu.Lock()
	idx := indexOfGoal(s.active, goalID)
	if idx < 0 {
		s.mu.Unlock()
		return nil, util.ErrGoalNotFound
	}
	goal := &s.active[idx]
	sub := goal.FindSubGoal(subGoalID)
	if sub == nil {
		s.mu.Unlock()
		return nil, util.ErrSubGoalNotFound
	}

	sub.Completed = !sub.Completed

	autoCompleted := len(goal.SubGoals) > 0 && goal.AllSubGoalsCompleted()
	var goalCopy *model.Goal
	if autoCompleted {
		goalCopy = s.completeGoalLocked(idx, s.now())
	} else {
		goalCopy = copyGoal(goal)
	}
	persistErr := s.persistLocked(ctx)
	s.mu.Unlock()

	if autoCompleted {
		s.cancelReminders(ctx, goalID)
	} else {
		s.rescheduleReminders(ctx, goalCopy)
	}
	return goalCopy, persistErr
}

// MarkSubGoalExpired 子目标到期未完成：整个父目标连同全部子目标一起移入
// incomplete，一个子目标过期即判整个目标失败。重复调用不会产生重复条目。
func (s *GoalService) MarkSubGoalExpired(ctx context.Context, goalID, subGoalID string) (*model.Goal, error) {
	s.mu.Lock()
	idx := indexOfGoal(s.active, goalID)
	if idx < 0 {
		// 已经移走则视为幂等成功
		if prev := indexOfGoal(s.incomplete, goalID); prev >= 0 {
			goalCopy := copyGoal(&s.incomplete[prev])
			s.mu.Unlock()
			return goalCopy, nil
		}
		s.mu.Unlock()
		return nil, util.ErrGoalNotFound
	}
	if s.active[idx].FindSubGoal(subGoalID) == nil {
		s.mu.Unlock()
		return nil, util.ErrSubGoalNotFound
	}

	goalCopy := s.expireSubGoalLocked(idx, subGoalID, s.now())
	persistErr := s.persistLocked(ctx)
	s.mu.Unlock()

	s.cancelReminders(ctx, goalID)
	return goalCopy, persistErr
}

// CheckExpirations 过期扫描。到期未完成的目标移入 incomplete；
// 子目标先于父目标到期的，走整目标失败的路径。对同一批目标重复扫描是幂等的。
func (s *GoalService) CheckExpirations(ctx context.Context, now time.Time) (int, error) {
	started := time.Now()

	s.mu.Lock()
	var movedIDs []string
	for idx := 0; idx < len(s.active); {
		goal := &s.active[idx]

		if goal.DueDate.Before(now) && !goal.Completed {
			goal.ExpiredReason = "Goal due date passed"
			movedIDs = append(movedIDs, goal.ID)
			s.moveToIncompleteLocked(idx, now)
			continue
		}

		if subID := firstExpiredSubGoal(goal, now); subID != "" {
			movedIDs = append(movedIDs, goal.ID)
			s.expireSubGoalLocked(idx, subID, now)
			continue
		}

		idx++
	}

	var persistErr error
	if len(movedIDs) > 0 {
		persistErr = s.persistLocked(ctx)
	}
	s.mu.Unlock()

	for _, goalID := range movedIDs {
		s.cancelReminders(ctx, goalID)
	}
	if len(movedIDs) > 0 {
		monitoring.GoalsExpired.Add(float64(len(movedIDs)))
		logger.Log.Info("expiration sweep moved goals",
			zap.Int("count", len(movedIDs)), zap.Strings("goalIds", movedIDs))
	}
	monitoring.SweepDuration.Observe(time.Since(started).Seconds())

	return len(movedIDs), persistErr
}

// ActiveGoals 活跃集合的副本
func (s *GoalService) ActiveGoals() []model.Goal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyGoals(s.active)
}

// CompletedGoals 已完成集合的副本
func (s *GoalService) CompletedGoals() []model.Goal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyGoals(s.completed)
}

// IncompleteGoals 未完成（过期）集合的副本
func (s *GoalService) IncompleteGoals() []model.Goal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyGoals(s.incomplete)
}

// GetGoal 在三份集合中按 ID 查找
func (s *GoalService) GetGoal(goalID string) (*model.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, goals := range [][]model.Goal{s.active, s.completed, s.incomplete} {
		if idx := indexOfGoal(goals, goalID); idx >= 0 {
			return copyGoal(&goals[idx]), nil
		}
	}
	return nil, util.ErrGoalNotFound
}

// GetPerformanceStats 汇总完成率，含子目标粒度的统计
func (s *GoalService) GetPerformanceStats() PerformanceStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := PerformanceStats{
		Total:     len(s.active) + len(s.completed) + len(s.incomplete),
		Completed: len(s.completed),
	}
	stats.Incomplete = stats.Total - stats.Completed
	if stats.Total > 0 {
		stats.Performance = float64(stats.Completed) / float64(stats.Total) * 100
	}

	for _, goals := range [][]model.Goal{s.active, s.completed, s.incomplete} {
		for i := range goals {
			stats.TotalSubGoals += len(goals[i].SubGoals)
			for j := range goals[i].SubGoals {
				if goals[i].SubGoals[j].Completed {
					stats.CompletedSubGoals++
				}
			}
		}
	}
	return stats
}

// GetSummary 小组件只读摘要：数量加按截止时间排序的最近三条
func (s *GoalService) GetSummary() WidgetSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := WidgetSummary{
		ActiveCount:     len(s.active),
		CompletedCount:  len(s.completed),
		IncompleteCount: len(s.incomplete),
		Upcoming:        []UpcomingGoal{},
	}

	upcoming := make([]UpcomingGoal, 0, len(s.active))
	for i := range s.active {
		upcoming = append(upcoming, UpcomingGoal{
			ID:      s.active[i].ID,
			Title:   s.active[i].Title,
			DueDate: s.active[i].DueDate,
		})
	}
	sort.Slice(upcoming, func(i, j int) bool {
		return upcoming[i].DueDate.Before(upcoming[j].DueDate)
	})
	if len(upcoming) > 3 {
		upcoming = upcoming[:3]
	}
	summary.Upcoming = upcoming
	return summary
}

// completeGoalLocked 把 active[idx] 标记完成并移入 completed，返回移动后的副本
func (s *GoalService) completeGoalLocked(idx int, now time.Time) *model.Goal {
	goal := s.active[idx]
	goal.Completed = true
	goal.CompletedDate = &now

	s.active = append(s.active[:idx], s.active[idx+1:]...)
	if indexOfGoal(s.completed, goal.ID) < 0 {
		s.completed = append(s.completed, goal)
	}
	return copyGoal(&goal)
}

// expireSubGoalLocked 标记子目标过期并把整个父目标移入 incomplete
func (s *GoalService) expireSubGoalLocked(idx int, subGoalID string, now time.Time) *model.Goal {
	goal := &s.active[idx]
	sub := goal.FindSubGoal(subGoalID)
	sub.Expired = true
	goal.ExpiredReason = fmt.Sprintf("Sub-goal %q expired", sub.Title)
	return s.moveToIncompleteLocked(idx, now)
}

// moveToIncompleteLocked 把 active[idx] 移入 incomplete，按 ID 去重
func (s *GoalService) moveToIncompleteLocked(idx int, now time.Time) *model.Goal {
	goal := s.active[idx]
	goal.ExpiredDate = &now

	s.active = append(s.active[:idx], s.active[idx+1:]...)
	if indexOfGoal(s.incomplete, goal.ID) < 0 {
		s.incomplete = append(s.incomplete, goal)
	}
	return copyGoal(&goal)
}

func (s *GoalService) persistLocked(ctx context.Context) error {
	if err := s.GoalRepo.SaveCollections(ctx, s.active, s.completed, s.incomplete); err != nil {
		logger.Log.Error("failed to persist goal collections", zap.Error(err))
		return fmt.Errorf("%w: %v", util.ErrPersistence, err)
	}
	return nil
}

func (s *GoalService) rescheduleReminders(ctx context.Context, goal *model.Goal) {
	if err := s.Reminders.RescheduleGoal(ctx, goal); err != nil {
		logger.Log.Warn("failed to reschedule reminders",
			zap.String("goalId", goal.ID), zap.Error(err))
	}
}

func (s *GoalService) cancelReminders(ctx context.Context, goalID string) {
	if err := s.Reminders.CancelGoal(ctx, goalID); err != nil {
		logger.Log.Warn("failed to cancel reminders",
			zap.String("goalId", goalID), zap.Error(err))
	}
}

func firstExpiredSubGoal(goal *model.Goal, now time.Time) string {
	for i := range goal.SubGoals {
		sub := &goal.SubGoals[i]
		if !sub.Completed && !sub.Expired && sub.DueDate.Before(now) {
			return sub.ID
		}
	}
	return ""
}

func indexOfGoal(goals []model.Goal, goalID string) int {
	for i := range goals {
		if goals[i].ID == goalID {
			return i
		}
	}
	return -1
}

func copyGoal(goal *model.Goal) *model.Goal {
	out := *goal
	out.SubGoals = append([]model.SubGoal(nil), goal.SubGoals...)
	return &out
}

func copyGoals(goals []model.Goal) []model.Goal {
	out := make([]model.Goal, len(goals))
	for i := range goals {
		out[i] = *copyGoal(&goals[i])
	}
	return out
}
