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
	maxCategoryLength = 50
	maxLocationLength = 200

	msgEventNotFound  = "Calendar event not found"
	msgEventTaskOwned = "This event belongs to a task; change the task's due date instead"
)

type CalendarService struct {
	store Store
	now   func() time.Time
}

func NewCalendarService(store Store) *CalendarService {
	return &CalendarService{store: store, now: time.Now}
}

func (s *CalendarService) Create(ctx context.Context, userID int64, req models.CreateCalendarEventRequest) (*models.CalendarEvent, error) {
	errs := fieldErrors{}
	now := s.now().UTC()

	event := &models.CalendarEvent{
		Title:       validateTitle(errs, req.Title),
		Description: req.Description,
		UserID:      userID,
		Category:    trimOptional(req.Category),
		Location:    trimOptional(req.Location),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if strings.TrimSpace(req.StartTime) == "" {
		errs.add("start_time", "Start time is required")
	} else if t, err := parseTimestamp("start_time", req.StartTime); err != nil {
		errs.add("start_time", "Invalid ISO 8601 timestamp")
	} else {
		event.StartTime = t
	}
	if strings.TrimSpace(req.EndTime) == "" {
		errs.add("end_time", "End time is required")
	} else if t, err := parseTimestamp("end_time", req.EndTime); err != nil {
		errs.add("end_time", "Invalid ISO 8601 timestamp")
	} else {
		event.EndTime = t
	}
	validateEvent(errs, event)
	if err := errs.err(); err != nil {
		return nil, err
	}

	if err := s.store.Repos().Calendar.Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func validateEvent(errs fieldErrors, e *models.CalendarEvent) {
	if !e.StartTime.IsZero() && !e.EndTime.IsZero() && !e.EndTime.After(e.StartTime) {
		errs.add("end_time", "End time must be after start time")
	}
	if e.Category != nil && utf8.RuneCountInString(*e.Category) > maxCategoryLength {
		errs.add("category", "Category must be at most 50 characters")
	}
	if e.Location != nil && utf8.RuneCountInString(*e.Location) > maxLocationLength {
		errs.add("location", "Location must be at most 200 characters")
	}
}

func (s *CalendarService) Get(ctx context.Context, userID, id int64) (*models.CalendarEvent, error) {
	event, err := s.store.Repos().Calendar.GetByID(ctx, id, userID)
	if err != nil {
		return nil, notFoundOr(err, msgEventNotFound)
	}
	return event, nil
}

// List returns events overlapping the optional [start, end] window.
func (s *CalendarService) List(ctx context.Context, userID int64, start, end string) ([]*models.CalendarEvent, error) {
	from, to, err := parseRange("start", start, "end", end)
	if err != nil {
		return nil, err
	}
	return s.store.Repos().Calendar.List(ctx, userID, from, to)
}

func (s *CalendarService) Update(ctx context.Context, userID, id int64, req models.UpdateCalendarEventRequest) (*models.CalendarEvent, error) {
	var event *models.CalendarEvent
	err := s.store.WithTx(ctx, func(r Repositories) error {
		var err error
		event, err = r.Calendar.GetByID(ctx, id, userID)
		if err != nil {
			return notFoundOr(err, msgEventNotFound)
		}
		if err := refuseTaskOwned(ctx, r, id, userID); err != nil {
			return err
		}

		errs := fieldErrors{}
		if req.Title != nil {
			event.Title = validateTitle(errs, *req.Title)
		}
		if req.Description.Set {
			event.Description = req.Description.Value
		}
		if req.Category.Set {
			event.Category = trimOptional(req.Category.Value)
		}
		if req.Location.Set {
			event.Location = trimOptional(req.Location.Value)
		}
		if req.StartTime != nil {
			if t, err := parseTimestamp("start_time", *req.StartTime); err != nil {
				errs.add("start_time", "Invalid ISO 8601 timestamp")
			} else {
				event.StartTime = t
			}
		}
		if req.EndTime != nil {
			if t, err := parseTimestamp("end_time", *req.EndTime); err != nil {
				errs.add("end_time", "Invalid ISO 8601 timestamp")
			} else {
				event.EndTime = t
			}
		}
		validateEvent(errs, event)
		if err := errs.err(); err != nil {
			return err
		}

		event.UpdatedAt = s.now().UTC()
		return r.Calendar.Update(ctx, event)
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (s *CalendarService) Delete(ctx context.Context, userID, id int64) error {
	return s.store.WithTx(ctx, func(r Repositories) error {
		if _, err := r.Calendar.GetByID(ctx, id, userID); err != nil {
			return notFoundOr(err, msgEventNotFound)
		}
		if err := refuseTaskOwned(ctx, r, id, userID); err != nil {
			return err
		}
		return notFoundOr(r.Calendar.Delete(ctx, id, userID), msgEventNotFound)
	})
}

// refuseTaskOwned keeps a task's event under the task's control.
func refuseTaskOwned(ctx context.Context, r Repositories, eventID, userID int64) error {
	_, err := r.Tasks.GetByCalendarEventID(ctx, eventID, userID)
	if err == nil {
		return &ConflictError{Message: msgEventTaskOwned}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	return err
}

// trimOptional treats blank strings as absent.
func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
