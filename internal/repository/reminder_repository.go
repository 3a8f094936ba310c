package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"goal_tracker_backend/internal/model"
)

// 提醒簿记的键布局：
//   notifications-task-<goalId> → 该目标当前排定的提醒 ID 数组
//   notification-time-<id>     → 触发时间（恢复流程用）
//   notification-data-<id>     → 完整的 ReminderRecord
const (
	reminderIDsKeyPrefix  = "notifications-task-"
	reminderTimeKeyPrefix = "notification-time-"
	reminderDataKeyPrefix = "notification-data-"
)

// ReminderRepository 负责已排定提醒的持久化簿记
type ReminderRepository struct {
	Store KVStore
}

func NewReminderRepository(store KVStore) *ReminderRepository {
	return &ReminderRepository{Store: store}
}

// IDsForGoal 返回某目标当前记录的全部提醒 ID，无记录返回空
func (r *ReminderRepository) IDsForGoal(ctx context.Context, goalID string) ([]string, error) {
	raw, err := r.Store.Get(ctx, reminderIDsKeyPrefix+goalID)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// SaveForGoal 写入某目标的全部提醒记录，覆盖旧的 ID 数组
func (r *ReminderRepository) SaveForGoal(ctx context.Context, goalID string, records []model.ReminderRecord) error {
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := r.Store.Set(ctx, reminderDataKeyPrefix+rec.ID, data); err != nil {
			return err
		}
		at, err := json.Marshal(rec.TriggerTime)
		if err != nil {
			return err
		}
		if err := r.Store.Set(ctx, reminderTimeKeyPrefix+rec.ID, at); err != nil {
			return err
		}
		ids = append(ids, rec.ID)
	}

	if len(ids) == 0 {
		return r.Store.Delete(ctx, reminderIDsKeyPrefix+goalID)
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return r.Store.Set(ctx, reminderIDsKeyPrefix+goalID, raw)
}

// DeleteForGoal 删除某目标的 ID 数组及给定提醒的全部簿记
func (r *ReminderRepository) DeleteForGoal(ctx context.Context, goalID string, ids []string) error {
	keys := make([]string, 0, len(ids)*2+1)
	for _, id := range ids {
		keys = append(keys, reminderTimeKeyPrefix+id, reminderDataKeyPrefix+id)
	}
	keys = append(keys, reminderIDsKeyPrefix+goalID)
	return r.Store.Delete(ctx, keys...)
}

// RemoveID 删除单条提醒的簿记，并把它从所属目标的 ID 数组中摘除
func (r *ReminderRepository) RemoveID(ctx context.Context, goalID, id string) error {
	if err := r.Store.Delete(ctx, reminderTimeKeyPrefix+id, reminderDataKeyPrefix+id); err != nil {
		return err
	}

	ids, err := r.IDsForGoal(ctx, goalID)
	if err != nil {
		return err
	}
	remaining := make([]string, 0, len(ids))
	for _, existing := range ids {
		if existing != id {
			remaining = append(remaining, existing)
		}
	}
	if len(remaining) == 0 {
		return r.Store.Delete(ctx, reminderIDsKeyPrefix+goalID)
	}
	raw, err := json.Marshal(remaining)
	if err != nil {
		return err
	}
	return r.Store.Set(ctx, reminderIDsKeyPrefix+goalID, raw)
}

// AllRecords 枚举存储中的全部提醒记录，按触发时间升序返回
func (r *ReminderRepository) AllRecords(ctx context.Context) ([]model.ReminderRecord, error) {
	keys, err := r.Store.Keys(ctx, reminderDataKeyPrefix)
	if err != nil {
		return nil, err
	}

	records := make([]model.ReminderRecord, 0, len(keys))
	for _, key := range keys {
		raw, err := r.Store.Get(ctx, key)
		if errors.Is(err, ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var rec model.ReminderRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	sortRecordsByTriggerTime(records)
	return records, nil
}

// RecordsForGoal 返回某目标当前排定的提醒记录
func (r *ReminderRepository) RecordsForGoal(ctx context.Context, goalID string) ([]model.ReminderRecord, error) {
	ids, err := r.IDsForGoal(ctx, goalID)
	if err != nil {
		return nil, err
	}

	records := make([]model.ReminderRecord, 0, len(ids))
	for _, id := range ids {
		raw, err := r.Store.Get(ctx, reminderDataKeyPrefix+id)
		if errors.Is(err, ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var rec model.ReminderRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	sortRecordsByTriggerTime(records)
	return records, nil
}

func sortRecordsByTriggerTime(records []model.ReminderRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].TriggerTime.Before(records[j].TriggerTime)
	})
}
