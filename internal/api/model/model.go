package model

import "time"

// Task is one generation request tracked in memory. Artifacts are held only
// for the lifetime of the process; history does not survive a restart.
type Task struct {
	TaskID      string
	Kind        string
	Prompt      string
	Status      string
	Error       string
	ContentType string
	Artifacts   [][]byte
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
