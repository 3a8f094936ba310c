package repository

import (
	"context"
	"encoding/json"
	"errors"

	"goal_tracker_backend/internal/model"
)

// 三份目标集合在存储中的键，任何目标的 ID 在任一时刻只出现在其中一个集合里
const (
	keyActiveGoals     = "goals"
	keyCompletedTasks  = "completedTasks"
	keyIncompleteTasks = "incompleteTasks"
)

// GoalRepository 负责三份目标集合的加载与持久化
type GoalRepository struct {
	Store KVStore
}

func NewGoalRepository(store KVStore) *GoalRepository {
	return &GoalRepository{Store: store}
}

// LoadCollections 从存储恢复 active/completed/incomplete 三份集合，缺失的键视为空集合
func (r *GoalRepository) LoadCollections(ctx context.Context) (active, completed, incomplete []model.Goal, err error) {
	if active, err = r.loadCollection(ctx, keyActiveGoals); err != nil {
		return nil, nil, nil, err
	}
	if completed, err = r.loadCollection(ctx, keyCompletedTasks); err != nil {
		return nil, nil, nil, err
	}
	if incomplete, err = r.loadCollection(ctx, keyIncompleteTasks); err != nil {
		return nil, nil, nil, err
	}
	return active, completed, incomplete, nil
}

// SaveCollections 整体写回三份集合
func (r *GoalRepository) SaveCollections(ctx context.Context, active, completed, incomplete []model.Goal) error {
	if err := r.saveCollection(ctx, keyActiveGoals, active); err != nil {
		return err
	}
	if err := r.saveCollection(ctx, keyCompletedTasks, completed); err != nil {
		return err
	}
	return r.saveCollection(ctx, keyIncompleteTasks, incomplete)
}

func (r *GoalRepository) loadCollection(ctx context.Context, key string) ([]model.Goal, error) {
	raw, err := r.Store.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return []model.Goal{}, nil
	}
	if err != nil {
		return nil, err
	}

	var goals []model.Goal
	if err := json.Unmarshal(raw, &goals); err != nil {
		return nil, err
	}
	if goals == nil {
		goals = []model.Goal{}
	}
	return goals, nil
}

func (r *GoalRepository) saveCollection(ctx context.Context, key string, goals []model.Goal) error {
	if goals == nil {
		goals = []model.Goal{}
	}
	raw, err := json.Marshal(goals)
	if err != nil {
		return err
	}
	return r.Store.Set(ctx, key, raw)
}
