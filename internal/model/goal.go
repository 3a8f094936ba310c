package model

import (
	"time"

	"github.com/google/uuid"
)

// Goal 顶层目标，带有 [startTime, dueDate) 的时间窗口，可拆分为若干子目标
type Goal struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	StartTime     time.Time  `json:"startTime"`
	DueDate       time.Time  `json:"dueDate"`
	Completed     bool       `json:"completed"`
	CompletedDate *time.Time `json:"completedDate,omitempty"`
	SubGoals      []SubGoal  `json:"subGoals"`
	ExpiredReason string     `json:"expiredReason,omitempty"`
	ExpiredDate   *time.Time `json:"expiredDate,omitempty"`
}

// SubGoal 子目标，时间窗口必须落在父目标窗口之内（创建时校验）
type SubGoal struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"startTime"`
	DueDate   time.Time `json:"dueDate"`
	Completed bool      `json:"completed"`
	Expired   bool      `json:"expired,omitempty"`
}

// NewID 生成全局唯一 ID，避免按时间戳生成在同一毫秒内的冲突
func NewID() string {
	return uuid.New().String()
}

// AllSubGoalsCompleted 所有子目标都已完成时返回 true；没有子目标也返回 true
func (g *Goal) AllSubGoalsCompleted() bool {
	for i := range g.SubGoals {
		if !g.SubGoals[i].Completed {
			return false
		}
	}
	return true
}

// FindSubGoal 按 ID 查找子目标，找不到返回 nil
func (g *Goal) FindSubGoal(subGoalID string) *SubGoal {
	for i := range g.SubGoals {
		if g.SubGoals[i].ID == subGoalID {
			return &g.SubGoals[i]
		}
	}
	return nil
}
