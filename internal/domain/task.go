package domain

import "time"

type Task struct {
	ID          int64
	Title       string
	Description *string
	DueDate     *string // calendar date, "YYYY-MM-DD"
	IsDone      bool
	Owner       int64 // foreign key to users
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
