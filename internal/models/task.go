package models

import "time"

const (
	PriorityLow    = 1
	PriorityMedium = 2
	PriorityHigh   = 3
)

type Task struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	Description     *string    `json:"description"`
	DueDate         *time.Time `json:"due_date"`
	Completed       bool       `json:"completed"`
	Priority        int        `json:"priority"` // 1=Low, 2=Medium, 3=High
	UserID          int64      `json:"user_id"`
	CalendarEventID *int64     `json:"calendar_event_id"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type CreateTaskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"due_date"`
	Priority    *int    `json:"priority"`
	Completed   bool    `json:"completed"`
}

type UpdateTaskRequest struct {
	Title       *string        `json:"title"`
	Description OptionalString `json:"description"`
	DueDate     OptionalString `json:"due_date"`
	Completed   *bool          `json:"completed"`
	Priority    *int           `json:"priority"`
}
