package service

import (
	"time"

	"goal_tracker_backend/internal/util"
)

// 百分比检查点：提醒落在整个时间窗的这些位置上
var checkpointPercents = []int{25, 50, 75, 90, 95, 100}

// 安静时段 [22:00, 08:00)，落入其中的提醒顺延到当天/次日 08:00；
// 周末的提醒顺延到下周一 08:00
const (
	quietHourStart = 22
	quietHourEnd   = 8
)

// Checkpoint 一条已计算好触发时间的提醒检查点
type Checkpoint struct {
	Percent     int       `json:"percent"`
	TriggerTime time.Time `json:"triggerTime"`
}

// ComputeCheckpoints 计算 [start, due) 窗口内的提醒检查点。
// 触发时间 = start + percent × (due − start)，再做安静时段/周末顺延；
// 顺延后不严格晚于 now 的检查点被丢弃。due 不晚于 now 时返回 ErrAlreadyDue。
// 对固定的 start、due、now，结果完全确定。
func ComputeCheckpoints(start, due, now time.Time) ([]Checkpoint, error) {
	if !due.After(now) {
		return nil, util.ErrAlreadyDue
	}
	duration := due.Sub(start)
	if duration <= 0 {
		return nil, util.ErrInvalidTimeRange
	}

	checkpoints := make([]Checkpoint, 0, len(checkpointPercents))
	for _, percent := range checkpointPercents {
		offset := time.Duration(int64(duration) * int64(percent) / 100)
		trigger := adjustQuietHours(start.Add(offset))
		if !trigger.After(now) {
			continue
		}
		checkpoints = append(checkpoints, Checkpoint{Percent: percent, TriggerTime: trigger})
	}
	return checkpoints, nil
}

// adjustQuietHours 迭代到不动点：深夜顺延可能落到周六早上，还要再顺延到周一
func adjustQuietHours(t time.Time) time.Time {
	for i := 0; i < 4; i++ {
		switch {
		case t.Weekday() == time.Saturday:
			t = atMorning(t.AddDate(0, 0, 2))
		case t.Weekday() == time.Sunday:
			t = atMorning(t.AddDate(0, 0, 1))
		case t.Hour() >= quietHourStart:
			t = atMorning(t.AddDate(0, 0, 1))
		case t.Hour() < quietHourEnd:
			t = atMorning(t)
		default:
			return t
		}
	}
	return t
}

func atMorning(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), quietHourEnd, 0, 0, 0, t.Location())
}
