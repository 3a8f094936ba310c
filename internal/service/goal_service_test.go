package service

import (
	"context"
	"testing"
	"time"

	"goal_tracker_backend/internal/model"
	"goal_tracker_backend/internal/repository"
	"goal_tracker_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type goalServiceFixture struct {
	svc      *GoalService
	notifier *fakeNotifier
	store    *repository.MemoryStore
}

func newGoalServiceFixture(t *testing.T, now time.Time) *goalServiceFixture {
	t.Helper()

	store := repository.NewMemoryStore()
	notifier := newFakeNotifier()
	reminders := NewReminderService(notifier, repository.NewReminderRepository(store))
	reminders.now = func() time.Time { return now }

	svc := NewGoalService(repository.NewGoalRepository(store), reminders)
	svc.now = func() time.Time { return now }
	require.NoError(t, svc.Load(context.Background()))

	return &goalServiceFixture{svc: svc, notifier: notifier, store: store}
}

func (f *goalServiceFixture) createGoal(t *testing.T, title string, start, due time.Time) *model.Goal {
	t.Helper()
	goal, err := f.svc.CreateGoal(context.Background(), CreateGoalRequest{
		Title:     title,
		StartTime: start,
		DueDate:   due,
	})
	require.NoError(t, err)
	return goal
}

func (f *goalServiceFixture) createSubGoal(t *testing.T, goalID, title string, start, due time.Time) *model.SubGoal {
	t.Helper()
	sub, err := f.svc.CreateSubGoal(context.Background(), goalID, CreateSubGoalRequest{
		Title:     title,
		StartTime: start,
		DueDate:   due,
	})
	require.NoError(t, err)
	return sub
}

// assertPartition 校验一个目标 ID 恰好出现在期望的那份集合里
func assertPartition(t *testing.T, svc *GoalService, goalID, expected string) {
	t.Helper()
	collections := map[string][]model.Goal{
		"active":     svc.ActiveGoals(),
		"completed":  svc.CompletedGoals(),
		"incomplete": svc.IncompleteGoals(),
	}
	for name, goals := range collections {
		found := false
		for i := range goals {
			if goals[i].ID == goalID {
				found = true
			}
		}
		assert.Equal(t, name == expected, found, "goal %s in collection %s", goalID, name)
	}
}

func TestCreateGoalValidation(t *testing.T) {
	f := newGoalServiceFixture(t, tuesday(8, 0))

	_, err := f.svc.CreateGoal(context.Background(), CreateGoalRequest{
		Title: "  ", StartTime: tuesday(8, 0), DueDate: tuesday(18, 0),
	})
	assert.ErrorIs(t, err, util.ErrEmptyTitle)

	_, err = f.svc.CreateGoal(context.Background(), CreateGoalRequest{
		Title: "Backwards", StartTime: tuesday(18, 0), DueDate: tuesday(8, 0),
	})
	assert.ErrorIs(t, err, util.ErrInvalidTimeRange)

	_, err = f.svc.CreateGoal(context.Background(), CreateGoalRequest{
		Title: "Zero window", StartTime: tuesday(8, 0), DueDate: tuesday(8, 0),
	})
	assert.ErrorIs(t, err, util.ErrInvalidTimeRange)
}

func TestCreateGoalSchedulesReminders(t *testing.T) {
	f := newGoalServiceFixture(t, tuesday(8, 0))

	goal := f.createGoal(t, "Write report", tuesday(8, 0), tuesday(18, 0))

	assertPartition(t, f.svc, goal.ID, "active")
	assert.Len(t, f.notifier.scheduledIDs(), 6)

	got, err := f.svc.GetGoal(goal.ID)
	require.NoError(t, err)
	assert.Equal(t, "Write report", got.Title)
	assert.NotNil(t, got.SubGoals)
}

func TestCreateSubGoalBounds(t *testing.T) {
	f := newGoalServiceFixture(t, tuesday(8, 0))
	goal := f.createGoal(t, "Write report", tuesday(9, 0), tuesday(18, 0))

	_, err := f.svc.CreateSubGoal(context.Background(), goal.ID, CreateSubGoalRequest{
		Title: "Too early", StartTime: tuesday(8, 0), DueDate: tuesday(12, 0),
	})
	assert.ErrorIs(t, err, util.ErrSubGoalOutOfBounds)

	_, err = f.svc.CreateSubGoal(context.Background(), goal.ID, CreateSubGoalRequest{
		Title: "Too late", StartTime: tuesday(10, 0), DueDate: tuesday(19, 0),
	})
	assert.ErrorIs(t, err, util.ErrSubGoalOutOfBounds)

	_, err = f.svc.CreateSubGoal(context.Background(), "missing", CreateSubGoalRequest{
		Title: "Orphan", StartTime: tuesday(10, 0), DueDate: tuesday(12, 0),
	})
	assert.ErrorIs(t, err, util.ErrGoalNotFound)

	sub := f.createSubGoal(t, goal.ID, "Draft", tuesday(10, 0), tuesday(12, 0))
	got, err := f.svc.GetGoal(goal.ID)
	require.NoError(t, err)
	require.Len(t, got.SubGoals, 1)
	assert.Equal(t, sub.ID, got.SubGoals[0].ID)
}

func TestCompleteGoalWithoutSubGoals(t *testing.T) {
	now := tuesday(9, 0)
	f := newGoalServiceFixture(t, now)
	goal := f.createGoal(t, "Write report", tuesday(8, 0), tuesday(18, 0))

	completed, err := f.svc.CompleteGoal(context.Background(), goal.ID)
	require.NoError(t, err)

	assert.True(t, completed.Completed)
	require.NotNil(t, completed.CompletedDate)
	assert.True(t, completed.CompletedDate.Equal(now))
	assertPartition(t, f.svc, goal.ID, "completed")
	assert.Empty(t, f.notifier.scheduledIDs())
}

func TestCompleteGoalRefusedWhileSubGoalsOpen(t *testing.T) {
	f := newGoalServiceFixture(t, tuesday(8, 0))
	goal := f.createGoal(t, "Write report", tuesday(8, 0), tuesday(18, 0))
	f.createSubGoal(t, goal.ID, "Draft", tuesday(9, 0), tuesday(12, 0))

	_, err := f.svc.CompleteGoal(context.Background(), goal.ID)
	assert.ErrorIs(t, err, util.ErrSubGoalsIncomplete)
	assertPartition(t, f.svc, goal.ID, "active")

	_, err = f.svc.CompleteGoal(context.Background(), "missing")
	assert.ErrorIs(t, err, util.ErrGoalNotFound)
}

func TestCompleteSubGoalToggle(t *testing.T) {
	f := newGoalServiceFixture(t, tuesday(8, 0))
	goal := f.createGoal(t, "Write report", tuesday(8, 0), tuesday(18, 0))
	f.createSubGoal(t, goal.ID, "Draft", tuesday(9, 0), tuesday(12, 0))
	sub := f.createSubGoal(t, goal.ID, "Review", tuesday(12, 0), tuesday(14, 0))

	updated, err := f.svc.CompleteSubGoal(context.Background(), goal.ID, sub.ID)
	require.NoError(t, err)
	assert.True(t, updated.FindSubGoal(sub.ID).Completed)
	assertPartition(t, f.svc, goal.ID, "active")

	// 翻转回未完成
	updated, err = f.svc.CompleteSubGoal(context.Background(), goal.ID, sub.ID)
	require.NoError(t, err)
	assert.False(t, updated.FindSubGoal(sub.ID).Completed)

	_, err = f.svc.CompleteSubGoal(context.Background(), goal.ID, "missing")
	assert.ErrorIs(t, err, util.ErrSubGoalNotFound)
}

func TestCompleteLastSubGoalAutoCompletesParent(t *testing.T) {
	now := tuesday(9, 0)
	f := newGoalServiceFixture(t, now)
	goal := f.createGoal(t, "Write report", tuesday(8, 0), tuesday(18, 0))
	first := f.createSubGoal(t, goal.ID, "Draft", tuesday(9, 0), tuesday(12, 0))
	second := f.createSubGoal(t, goal.ID, "Review", tuesday(12, 0), tuesday(14, 0))

	_, err := f.svc.CompleteSubGoal(context.Background(), goal.ID, first.ID)
	require.NoError(t, err)
	assertPartition(t, f.svc, goal.ID, "active")

	updated, err := f.svc.CompleteSubGoal(context.Background(), goal.ID, second.ID)
	require.NoError(t, err)

	assert.True(t, updated.Completed)
	require.NotNil(t, updated.CompletedDate)
	assertPartition(t, f.svc, goal.ID, "completed")
	assert.Empty(t, f.notifier.scheduledIDs())
}

func TestMarkSubGoalExpiredFailsWholeGoal(t *testing.T) {
	now := tuesday(13, 0)
	f := newGoalServiceFixture(t, now)
	goal := f.createGoal(t, "Write report", tuesday(8, 0), tuesday(18, 0))
	sub := f.createSubGoal(t, goal.ID, "Draft", tuesday(9, 0), tuesday(17, 0))

	moved, err := f.svc.MarkSubGoalExpired(context.Background(), goal.ID, sub.ID)
	require.NoError(t, err)

	assert.True(t, moved.FindSubGoal(sub.ID).Expired)
	assert.Equal(t, `Sub-goal "Draft" expired`, moved.ExpiredReason)
	require.NotNil(t, moved.ExpiredDate)
	assertPartition(t, f.svc, goal.ID, "incomplete")
	assert.Empty(t, f.notifier.scheduledIDs())

	// 重复标记是幂等的，不产生重复条目
	again, err := f.svc.MarkSubGoalExpired(context.Background(), goal.ID, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, moved.ID, again.ID)
	assert.Len(t, f.svc.IncompleteGoals(), 1)
}

func TestUpdateGoalScheduleReschedules(t *testing.T) {
	f := newGoalServiceFixture(t, tuesday(8, 0))
	goal := f.createGoal(t, "Write report", tuesday(8, 0), tuesday(18, 0))

	updated, err := f.svc.UpdateGoalSchedule(context.Background(), goal.ID, UpdateScheduleRequest{
		StartTime: tuesday(8, 0),
		DueDate:   tuesday(16, 0),
	})
	require.NoError(t, err)
	assert.True(t, updated.DueDate.Equal(tuesday(16, 0)))

	// 旧提醒被取消，新提醒按新窗口排定
	assert.Len(t, f.notifier.canceled, 6)
	assert.Len(t, f.notifier.scheduledIDs(), 6)

	_, err = f.svc.UpdateGoalSchedule(context.Background(), goal.ID, UpdateScheduleRequest{
		StartTime: tuesday(18, 0), DueDate: tuesday(8, 0),
	})
	assert.ErrorIs(t, err, util.ErrInvalidTimeRange)
}

func TestCheckExpirationsMovesOverdueGoals(t *testing.T) {
	f := newGoalServiceFixture(t, tuesday(8, 0))
	overdue := f.createGoal(t, "Overdue", tuesday(8, 0), tuesday(10, 0))
	ongoing := f.createGoal(t, "Ongoing", tuesday(8, 0), tuesday(18, 0))

	moved, err := f.svc.CheckExpirations(context.Background(), tuesday(11, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	assertPartition(t, f.svc, overdue.ID, "incomplete")
	assertPartition(t, f.svc, ongoing.ID, "active")

	got, err := f.svc.GetGoal(overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, "Goal due date passed", got.ExpiredReason)
	require.NotNil(t, got.ExpiredDate)
	assert.True(t, got.ExpiredDate.Equal(tuesday(11, 0)))

	// 幂等：同一时间点再扫一遍不再移动
	moved, err = f.svc.CheckExpirations(context.Background(), tuesday(11, 0))
	require.NoError(t, err)
	assert.Equal(t, 0, moved)
	assert.Len(t, f.svc.IncompleteGoals(), 1)
}

func TestCheckExpirationsSubGoalCascade(t *testing.T) {
	f := newGoalServiceFixture(t, tuesday(8, 0))
	goal := f.createGoal(t, "Write report", tuesday(8, 0), tuesday(18, 0))
	f.createSubGoal(t, goal.ID, "Draft", tuesday(9, 0), tuesday(11, 0))

	// 子目标先于父目标到期，整个目标判失败
	moved, err := f.svc.CheckExpirations(context.Background(), tuesday(12, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	assertPartition(t, f.svc, goal.ID, "incomplete")
	got, err := f.svc.GetGoal(goal.ID)
	require.NoError(t, err)
	assert.Equal(t, `Sub-goal "Draft" expired`, got.ExpiredReason)
	assert.True(t, got.SubGoals[0].Expired)
}

func TestCheckExpirationsIgnoresCompletedSubGoals(t *testing.T) {
	f := newGoalServiceFixture(t, tuesday(8, 0))
	goal := f.createGoal(t, "Write report", tuesday(8, 0), tuesday(18, 0))
	sub := f.createSubGoal(t, goal.ID, "Draft", tuesday(9, 0), tuesday(11, 0))

	_, err := f.svc.CompleteSubGoal(context.Background(), goal.ID, sub.ID)
	require.NoError(t, err)

	moved, err := f.svc.CheckExpirations(context.Background(), tuesday(12, 0))
	require.NoError(t, err)
	assert.Equal(t, 0, moved)
	assertPartition(t, f.svc, goal.ID, "completed")
}

func TestCollectionsSurviveReload(t *testing.T) {
	now := tuesday(9, 0)
	f := newGoalServiceFixture(t, now)
	active := f.createGoal(t, "Still going", tuesday(8, 0), tuesday(18, 0))
	done := f.createGoal(t, "Finished", tuesday(8, 0), tuesday(18, 0))
	f.createSubGoal(t, active.ID, "Draft", tuesday(9, 0), tuesday(12, 0))

	_, err := f.svc.CompleteGoal(context.Background(), done.ID)
	require.NoError(t, err)

	// 同一份存储上的新服务实例，重载后集合内容一致
	reminders := NewReminderService(newFakeNotifier(), repository.NewReminderRepository(f.store))
	reloaded := NewGoalService(repository.NewGoalRepository(f.store), reminders)
	require.NoError(t, reloaded.Load(context.Background()))

	assert.Equal(t, f.svc.ActiveGoals(), reloaded.ActiveGoals())
	assert.Equal(t, f.svc.CompletedGoals(), reloaded.CompletedGoals())
	assert.Equal(t, f.svc.IncompleteGoals(), reloaded.IncompleteGoals())

	got, err := reloaded.GetGoal(active.ID)
	require.NoError(t, err)
	require.Len(t, got.SubGoals, 1)
	assert.Equal(t, "Draft", got.SubGoals[0].Title)
}

func TestGetPerformanceStats(t *testing.T) {
	now := tuesday(9, 0)
	f := newGoalServiceFixture(t, now)
	a := f.createGoal(t, "A", tuesday(8, 0), tuesday(18, 0))
	b := f.createGoal(t, "B", tuesday(8, 0), tuesday(18, 0))
	f.createGoal(t, "C", tuesday(8, 0), tuesday(18, 0))
	sub := f.createSubGoal(t, a.ID, "Draft", tuesday(9, 0), tuesday(12, 0))

	_, err := f.svc.CompleteSubGoal(context.Background(), a.ID, sub.ID)
	require.NoError(t, err)
	_, err = f.svc.CompleteGoal(context.Background(), b.ID)
	require.NoError(t, err)

	stats := f.svc.GetPerformanceStats()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Completed)
	assert.Equal(t, 1, stats.Incomplete)
	assert.InDelta(t, 66.66, stats.Performance, 0.1)
	assert.Equal(t, 1, stats.TotalSubGoals)
	assert.Equal(t, 1, stats.CompletedSubGoals)
}

func TestGetSummaryUpcomingOrder(t *testing.T) {
	f := newGoalServiceFixture(t, tuesday(8, 0))
	f.createGoal(t, "Later", tuesday(8, 0), tuesday(17, 0))
	f.createGoal(t, "Soonest", tuesday(8, 0), tuesday(10, 0))
	f.createGoal(t, "Middle", tuesday(8, 0), tuesday(13, 0))
	f.createGoal(t, "Last", tuesday(8, 0), tuesday(18, 0))

	summary := f.svc.GetSummary()
	assert.Equal(t, 4, summary.ActiveCount)
	require.Len(t, summary.Upcoming, 3)
	assert.Equal(t, "Soonest", summary.Upcoming[0].Title)
	assert.Equal(t, "Middle", summary.Upcoming[1].Title)
	assert.Equal(t, "Later", summary.Upcoming[2].Title)
}
