package alarm

import (
	"sync"
	"time"

	"goal_tracker_backend/internal/model"
	"goal_tracker_backend/pkg/logger"

	"go.uber.org/zap"
)

// DeliveryFunc 闹钟触发时的投递回调
type DeliveryFunc func(id string, payload model.ReminderPayload)

// Service 进程内定时器实现的闹钟服务，承担系统 AlarmManager 的角色：
// 到点投递一次 payload，支持按 ID 取消；对同一 ID 重复排定是替换而不是叠加。
type Service struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	deliver DeliveryFunc
	stopped bool
}

func New(deliver DeliveryFunc) *Service {
	return &Service{
		timers:  make(map[string]*time.Timer),
		deliver: deliver,
	}
}

// ScheduleAt 排定一条闹钟。triggerTime 已过的立即触发；id 为空时自动生成。
func (s *Service) ScheduleAt(id string, triggerTime time.Time, payload model.ReminderPayload) (string, error) {
	if id == "" {
		id = model.NewID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return id, nil
	}

	if existing, ok := s.timers[id]; ok {
		existing.Stop()
	}

	delay := time.Until(triggerTime)
	if delay < 0 {
		delay = 0
	}
	s.timers[id] = time.AfterFunc(delay, func() {
		s.fire(id, payload)
	})
	return id, nil
}

// Cancel 取消一条闹钟，ID 不存在时静默成功
func (s *Service) Cancel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[id]; ok {
		timer.Stop()
		delete(s.timers, id)
	}
	return nil
}

// FireNow 绕过定时器立即投递（恢复流程补发错过的提醒用）
func (s *Service) FireNow(id string, payload model.ReminderPayload) {
	s.deliver(id, payload)
}

// Stop 停掉全部定时器，之后的排定请求被忽略
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
	logger.Log.Info("alarm service stopped")
}

func (s *Service) fire(id string, payload model.ReminderPayload) {
	s.mu.Lock()
	delete(s.timers, id)
	stopped := s.stopped
	s.mu.Unlock()

	if stopped {
		return
	}
	logger.Log.Debug("alarm fired", zap.String("id", id), zap.String("title", payload.Title))
	s.deliver(id, payload)
}
