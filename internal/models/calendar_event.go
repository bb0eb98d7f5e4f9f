package models

import "time"

// TaskEventCategory marks calendar events that are owned by a task's due date.
const TaskEventCategory = "task"

type CalendarEvent struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	StartTime   time.Time `json:"start"`
	EndTime     time.Time `json:"end"`
	UserID      int64     `json:"user_id"`
	Category    *string   `json:"category"`
	Location    *string   `json:"location"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CreateCalendarEventRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	Category    *string `json:"category"`
	Location    *string `json:"location"`
}

type UpdateCalendarEventRequest struct {
	Title       *string        `json:"title"`
	Description OptionalString `json:"description"`
	StartTime   *string        `json:"start_time"`
	EndTime     *string        `json:"end_time"`
	Category    OptionalString `json:"category"`
	Location    OptionalString `json:"location"`
}
