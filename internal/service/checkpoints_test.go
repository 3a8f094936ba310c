package service

import (
	"testing"
	"time"

	"goal_tracker_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2026-03-03 是周二，整个 10 小时窗口落在工作日白天
func tuesday(hour, min int) time.Time {
	return time.Date(2026, time.March, 3, hour, min, 0, 0, time.UTC)
}

func TestComputeCheckpointsDaytimeWindow(t *testing.T) {
	start := tuesday(8, 0)
	due := tuesday(18, 0)

	checkpoints, err := ComputeCheckpoints(start, due, start)
	require.NoError(t, err)
	require.Len(t, checkpoints, 6)

	expected := []struct {
		percent int
		trigger time.Time
	}{
		{25, tuesday(10, 30)},
		{50, tuesday(13, 0)},
		{75, tuesday(15, 30)},
		{90, tuesday(17, 0)},
		{95, tuesday(17, 30)},
		{100, tuesday(18, 0)},
	}
	for i, want := range expected {
		assert.Equal(t, want.percent, checkpoints[i].Percent)
		assert.True(t, checkpoints[i].TriggerTime.Equal(want.trigger),
			"percent %d: got %v, want %v", want.percent, checkpoints[i].TriggerTime, want.trigger)
	}
}

func TestComputeCheckpointsDeterministic(t *testing.T) {
	start := tuesday(8, 0)
	due := tuesday(18, 0)

	first, err := ComputeCheckpoints(start, due, start)
	require.NoError(t, err)
	second, err := ComputeCheckpoints(start, due, start)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestComputeCheckpointsAlreadyDue(t *testing.T) {
	start := tuesday(8, 0)
	due := tuesday(18, 0)

	_, err := ComputeCheckpoints(start, due, due)
	assert.ErrorIs(t, err, util.ErrAlreadyDue)

	_, err = ComputeCheckpoints(start, due, due.Add(time.Hour))
	assert.ErrorIs(t, err, util.ErrAlreadyDue)
}

func TestComputeCheckpointsInvalidWindow(t *testing.T) {
	// due 在 now 之后，但 start 晚于 due
	due := tuesday(18, 0)
	start := due.Add(time.Hour)

	_, err := ComputeCheckpoints(start, due, tuesday(8, 0))
	assert.ErrorIs(t, err, util.ErrInvalidTimeRange)
}

func TestComputeCheckpointsDropsPastTriggers(t *testing.T) {
	start := tuesday(8, 0)
	due := tuesday(18, 0)

	// 窗口过半，25% 和 50% 的检查点已经过去
	checkpoints, err := ComputeCheckpoints(start, due, tuesday(14, 0))
	require.NoError(t, err)
	require.Len(t, checkpoints, 4)
	assert.Equal(t, 75, checkpoints[0].Percent)
}

func TestAdjustQuietHours(t *testing.T) {
	monday := func(hour int) time.Time {
		return time.Date(2026, time.March, 2, hour, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "daytime untouched",
			in:   tuesday(14, 30),
			want: tuesday(14, 30),
		},
		{
			name: "late evening moves to next morning",
			in:   tuesday(23, 0),
			want: time.Date(2026, time.March, 4, 8, 0, 0, 0, time.UTC),
		},
		{
			name: "early morning moves to same morning",
			in:   tuesday(3, 0),
			want: tuesday(8, 0),
		},
		{
			name: "saturday moves to monday morning",
			in:   time.Date(2026, time.March, 7, 12, 0, 0, 0, time.UTC),
			want: time.Date(2026, time.March, 9, 8, 0, 0, 0, time.UTC),
		},
		{
			name: "sunday moves to monday morning",
			in:   time.Date(2026, time.March, 8, 12, 0, 0, 0, time.UTC),
			want: time.Date(2026, time.March, 9, 8, 0, 0, 0, time.UTC),
		},
		{
			name: "friday night cascades past the weekend",
			in:   time.Date(2026, time.March, 6, 23, 30, 0, 0, time.UTC),
			want: time.Date(2026, time.March, 9, 8, 0, 0, 0, time.UTC),
		},
		{
			name: "monday morning boundary untouched",
			in:   monday(8),
			want: monday(8),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := adjustQuietHours(tt.in)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
		})
	}
}

func TestFormatTimeRemaining(t *testing.T) {
	assert.Equal(t, "2 days", formatTimeRemaining(49*time.Hour))
	assert.Equal(t, "1 day", formatTimeRemaining(25*time.Hour))
	assert.Equal(t, "5 hours", formatTimeRemaining(5*time.Hour))
	assert.Equal(t, "1 hour", formatTimeRemaining(90*time.Minute))
	assert.Equal(t, "30 minutes", formatTimeRemaining(30*time.Minute))
	assert.Equal(t, "less than a minute", formatTimeRemaining(30*time.Second))
}
