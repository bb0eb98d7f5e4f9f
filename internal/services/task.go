package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"

	"studyhub-backend/internal/models"
)

const (
	maxTitleLength = 100
	taskEventSpan  = time.Hour

	msgTaskNotFound = "Task not found"
)

type TaskService struct {
	store Store
	now   func() time.Time
}

func NewTaskService(store Store) *TaskService {
	return &TaskService{store: store, now: time.Now}
}

func validateTitle(errs fieldErrors, title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		errs.add("title", "Title is required")
	} else if utf8.RuneCountInString(title) > maxTitleLength {
		errs.add("title", "Title must be at most 100 characters")
	}
	return title
}

func validatePriority(errs fieldErrors, p int) {
	if p < models.PriorityLow || p > models.PriorityHigh {
		errs.add("priority", "Priority must be 1 (Low), 2 (Medium) or 3 (High)")
	}
}

func (s *TaskService) Create(ctx context.Context, userID int64, req models.CreateTaskRequest) (*models.Task, error) {
	errs := fieldErrors{}
	now := s.now().UTC()

	task := &models.Task{
		Title:       validateTitle(errs, req.Title),
		Description: req.Description,
		Completed:   req.Completed,
		Priority:    models.PriorityLow,
		UserID:      userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Priority != nil {
		validatePriority(errs, *req.Priority)
		task.Priority = *req.Priority
	}
	if req.DueDate != nil && strings.TrimSpace(*req.DueDate) != "" {
		due, err := parseTimestamp("due_date", *req.DueDate)
		if err != nil {
			errs.add("due_date", "Invalid ISO 8601 timestamp")
		} else {
			task.DueDate = &due
		}
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	err := s.store.WithTx(ctx, func(r Repositories) error {
		if err := syncTaskEvent(ctx, r, task, now); err != nil {
			return err
		}
		return r.Tasks.Create(ctx, task)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) Get(ctx context.Context, userID, id int64) (*models.Task, error) {
	task, err := s.store.Repos().Tasks.GetByID(ctx, id, userID)
	if err != nil {
		return nil, notFoundOr(err, msgTaskNotFound)
	}
	return task, nil
}

func (s *TaskService) List(ctx context.Context, userID int64, completed *bool) ([]*models.Task, error) {
	return s.store.Repos().Tasks.List(ctx, userID, completed)
}

// Update applies a partial update. The linked calendar event follows the due date.
func (s *TaskService) Update(ctx context.Context, userID, id int64, req models.UpdateTaskRequest) (*models.Task, error) {
	var task *models.Task
	err := s.store.WithTx(ctx, func(r Repositories) error {
		var err error
		task, err = r.Tasks.GetByID(ctx, id, userID)
		if err != nil {
			return notFoundOr(err, msgTaskNotFound)
		}

		errs := fieldErrors{}
		if req.Title != nil {
			task.Title = validateTitle(errs, *req.Title)
		}
		if req.Description.Set {
			task.Description = req.Description.Value
		}
		if req.Completed != nil {
			task.Completed = *req.Completed
		}
		if req.Priority != nil {
			validatePriority(errs, *req.Priority)
			task.Priority = *req.Priority
		}
		if req.DueDate.Set {
			if req.DueDate.IsNull() {
				task.DueDate = nil
			} else if due, err := parseTimestamp("due_date", *req.DueDate.Value); err != nil {
				errs.add("due_date", "Invalid ISO 8601 timestamp")
			} else {
				task.DueDate = &due
			}
		}
		if err := errs.err(); err != nil {
			return err
		}

		now := s.now().UTC()
		if err := syncTaskEvent(ctx, r, task, now); err != nil {
			return err
		}
		task.UpdatedAt = now
		return r.Tasks.Update(ctx, task)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// Delete removes the task and then the event it owns.
func (s *TaskService) Delete(ctx context.Context, userID, id int64) error {
	return s.store.WithTx(ctx, func(r Repositories) error {
		task, err := r.Tasks.GetByID(ctx, id, userID)
		if err != nil {
			return notFoundOr(err, msgTaskNotFound)
		}
		if err := r.Tasks.Delete(ctx, id, userID); err != nil {
			return notFoundOr(err, msgTaskNotFound)
		}
		if task.CalendarEventID != nil {
			return ignoreNoRows(r.Calendar.Delete(ctx, *task.CalendarEventID, userID))
		}
		return nil
	})
}

// syncTaskEvent makes the task's calendar event match its due date: a one hour
// "task" event when a due date is set, no event otherwise. It updates task.CalendarEventID.
func syncTaskEvent(ctx context.Context, r Repositories, task *models.Task, now time.Time) error {
	if task.DueDate == nil {
		if task.CalendarEventID == nil {
			return nil
		}
		eventID := *task.CalendarEventID
		task.CalendarEventID = nil
		return ignoreNoRows(r.Calendar.Delete(ctx, eventID, task.UserID))
	}

	start := task.DueDate.UTC()
	end := start.Add(taskEventSpan)

	if task.CalendarEventID != nil {
		event, err := r.Calendar.GetByID(ctx, *task.CalendarEventID, task.UserID)
		switch {
		case err == nil:
			event.Title = task.Title
			event.Description = task.Description
			event.StartTime = start
			event.EndTime = end
			event.UpdatedAt = now
			return r.Calendar.Update(ctx, event)
		case !errors.Is(err, pgx.ErrNoRows):
			return err
		}
		// The event is gone, fall through and recreate it.
	}

	category := models.TaskEventCategory
	event := &models.CalendarEvent{
		Title:       task.Title,
		Description: task.Description,
		StartTime:   start,
		EndTime:     end,
		UserID:      task.UserID,
		Category:    &category,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.Calendar.Create(ctx, event); err != nil {
		return err
	}
	task.CalendarEventID = &event.ID
	return nil
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return &NotFoundError{Message: msg}
	}
	return err
}

func ignoreNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	return err
}
