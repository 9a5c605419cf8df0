package domain

import (
	"errors"
)

const (
	TaskStatusPending   = "PENDING"
	TaskStatusRunning   = "RUNNING"
	TaskStatusCompleted = "COMPLETED"
	TaskStatusFailed    = "FAILED"
)

var (
	ErrTaskNotFound = errors.New("task not found")
)
