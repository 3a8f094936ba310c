package util

import "errors"

var (
	ErrEmptyTitle         = errors.New("title must not be empty")
	ErrInvalidTimeRange   = errors.New("start time must be before due date")
	ErrSubGoalOutOfBounds = errors.New("sub-goal window must fall within the parent goal window")
	ErrGoalNotFound       = errors.New("goal not found")
	ErrSubGoalNotFound    = errors.New("sub-goal not found")
	ErrSubGoalsIncomplete = errors.New("goal still has incomplete sub-goals")
	ErrAlreadyDue         = errors.New("due date has already passed")
	ErrPersistence        = errors.New("failed to persist state")
	ErrDispatch           = errors.New("failed to dispatch notification")
)
