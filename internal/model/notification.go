package model

import "time"

// ReminderChannel 提醒投递所用的通知渠道
const ReminderChannel = "task-alarms"

type ReminderType string

const (
	ReminderTask    ReminderType = "task"
	ReminderSubGoal ReminderType = "subgoal"
)

// ReminderData 随通知一起投递的附加数据，客户端据此定位目标
type ReminderData struct {
	TaskID      string       `json:"taskId"`
	Type        ReminderType `json:"type"`
	DueDate     time.Time    `json:"dueDate"`
	Title       string       `json:"title"`
	SubGoalID   string       `json:"subGoalId,omitempty"`
	ParentTitle string       `json:"parentTitle,omitempty"`
}

// ReminderPayload 通知展示内容
type ReminderPayload struct {
	Title   string       `json:"title"`
	Body    string       `json:"body"`
	Channel string       `json:"channel"`
	Data    ReminderData `json:"data"`
}

// ReminderRecord 已排定提醒的持久化簿记，进程重启后恢复用
type ReminderRecord struct {
	ID          string          `json:"id"`
	GoalID      string          `json:"goalId"`
	TriggerTime time.Time       `json:"triggerTime"`
	Percent     int             `json:"percent"`
	Payload     ReminderPayload `json:"payload"`
}
