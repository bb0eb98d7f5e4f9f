package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"

	"studyhub-backend/internal/models"
	"studyhub-backend/internal/repository"
)

const (
	maxSubjectLength = 100

	// One reward interval of game time is earned per full study interval.
	studyRewardInterval = 60 * 60
	gameRewardInterval  = 15 * 60
)

const (
	msgSessionNotFound = "Study session not found"
	msgActiveExists    = "An active study session already exists"
	msgNoActiveSession = "No active study session"
)

// GameReward returns the game time in seconds earned for a completed session.
func GameReward(durationSeconds int) int {
	if durationSeconds <= 0 {
		return 0
	}
	return (durationSeconds / studyRewardInterval) * gameRewardInterval
}

type StudySessionService struct {
	store  Store
	events EventPublisher
	now    func() time.Time
}

func NewStudySessionService(store Store, events EventPublisher) *StudySessionService {
	if events == nil {
		events = nopPublisher{}
	}
	return &StudySessionService{store: store, events: events, now: time.Now}
}

func (s *StudySessionService) Create(ctx context.Context, userID int64, req models.CreateStudySessionRequest) (*models.StudySession, error) {
	errs := fieldErrors{}

	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		errs.add("subject", "Subject is required")
	} else if utf8.RuneCountInString(subject) > maxSubjectLength {
		errs.add("subject", "Subject must be at most 100 characters")
	}

	now := s.now().UTC()
	session := &models.StudySession{
		UserID:    userID,
		Subject:   &subject,
		Notes:     req.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	session.SetStartTime(now)

	if req.StartTime != nil {
		t, err := parseTimestamp("start_time", *req.StartTime)
		if err != nil {
			errs.add("start_time", "Invalid ISO 8601 timestamp")
		} else {
			session.SetStartTime(t)
		}
	}
	if req.EndTime != nil {
		t, err := parseTimestamp("end_time", *req.EndTime)
		if err != nil {
			errs.add("end_time", "Invalid ISO 8601 timestamp")
		} else {
			session.SetEndTime(&t)
		}
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	err := s.store.WithTx(ctx, func(r Repositories) error {
		return r.Sessions.Create(ctx, session)
	})
	if err != nil {
		return nil, sessionWriteError(err)
	}

	if session.Active() {
		s.events.Publish(ctx, userID, models.WSMessage{Type: models.EventSessionStarted, Payload: session})
	}
	return session, nil
}

func (s *StudySessionService) Get(ctx context.Context, userID, id int64) (*models.StudySession, error) {
	session, err := s.store.Repos().Sessions.GetByID(ctx, id, userID)
	if err != nil {
		return nil, sessionReadError(err, msgSessionNotFound)
	}
	return session, nil
}

func (s *StudySessionService) Update(ctx context.Context, userID, id int64, req models.UpdateStudySessionRequest) (*models.StudySession, error) {
	var session *models.StudySession
	err := s.store.WithTx(ctx, func(r Repositories) error {
		var err error
		session, err = r.Sessions.GetByID(ctx, id, userID)
		if err != nil {
			return sessionReadError(err, msgSessionNotFound)
		}
		if err := applySessionUpdate(session, req); err != nil {
			return err
		}
		session.UpdatedAt = s.now().UTC()
		return r.Sessions.Update(ctx, session)
	})
	if err != nil {
		return nil, sessionWriteError(err)
	}
	return session, nil
}

// applySessionUpdate applies a partial update in a fixed order: text fields, start,
// end (null reopens), then an explicit duration which wins over the computed one.
func applySessionUpdate(session *models.StudySession, req models.UpdateStudySessionRequest) error {
	errs := fieldErrors{}

	if req.Subject.Set {
		if req.Subject.IsNull() || strings.TrimSpace(*req.Subject.Value) == "" {
			session.Subject = nil
		} else {
			subject := strings.TrimSpace(*req.Subject.Value)
			if utf8.RuneCountInString(subject) > maxSubjectLength {
				errs.add("subject", "Subject must be at most 100 characters")
			}
			session.Subject = &subject
		}
	}
	if req.Notes.Set {
		session.Notes = req.Notes.Value
	}

	if req.StartTime.Set {
		if req.StartTime.IsNull() {
			errs.add("start_time", "Start time cannot be cleared")
		} else if t, err := parseTimestamp("start_time", *req.StartTime.Value); err != nil {
			errs.add("start_time", "Invalid ISO 8601 timestamp")
		} else {
			session.SetStartTime(t)
		}
	}

	if req.EndTime.Set {
		if req.EndTime.IsNull() {
			session.SetEndTime(nil)
		} else if t, err := parseTimestamp("end_time", *req.EndTime.Value); err != nil {
			errs.add("end_time", "Invalid ISO 8601 timestamp")
		} else {
			session.SetEndTime(&t)
		}
	}

	if req.Duration != nil {
		if session.Active() {
			errs.add("duration", "Duration cannot be set on an active session")
		} else {
			session.OverrideDuration(*req.Duration)
		}
	}

	return errs.err()
}

func (s *StudySessionService) Delete(ctx context.Context, userID, id int64) error {
	err := s.store.Repos().Sessions.Delete(ctx, id, userID)
	if err != nil {
		return sessionReadError(err, msgSessionNotFound)
	}
	return nil
}

func (s *StudySessionService) List(ctx context.Context, userID int64, q models.StudySessionQuery) (*models.StudySessionPage, error) {
	filter, err := buildSessionFilter(q)
	if err != nil {
		return nil, err
	}

	sessions, total, err := s.store.Repos().Sessions.List(ctx, userID, filter)
	if err != nil {
		return nil, err
	}

	page := &models.StudySessionPage{Total: total, Offset: filter.Offset, Sessions: sessions}
	if filter.Limit > 0 {
		page.Limit = &filter.Limit
	}
	return page, nil
}

func buildSessionFilter(q models.StudySessionQuery) (models.StudySessionFilter, error) {
	var filter models.StudySessionFilter
	errs := fieldErrors{}

	from, to, err := parseRange("start_date", q.StartDate, "end_date", q.EndDate)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			for k, v := range verr.Fields {
				errs.add(k, v)
			}
		}
	}
	filter.StartDate, filter.EndDate = from, to

	if q.Completed != "" {
		completed, err := strconv.ParseBool(q.Completed)
		if err != nil {
			errs.add("completed", "Must be true or false")
		} else {
			filter.Completed = &completed
		}
	}
	filter.Subject = strings.TrimSpace(q.Subject)

	if q.Limit != "" {
		limit, err := strconv.Atoi(q.Limit)
		if err != nil || limit < 0 {
			errs.add("limit", "Must be a non-negative integer")
		} else {
			filter.Limit = limit
		}
	}
	if q.Offset != "" {
		offset, err := strconv.Atoi(q.Offset)
		if err != nil || offset < 0 {
			errs.add("offset", "Must be a non-negative integer")
		} else {
			filter.Offset = offset
		}
	}

	return filter, errs.err()
}

// Start opens a new session, refusing when one is already running.
func (s *StudySessionService) Start(ctx context.Context, userID int64, req models.StartStudySessionRequest) (*models.StudySession, error) {
	now := s.now().UTC()
	session := &models.StudySession{
		UserID:    userID,
		Notes:     req.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	session.SetStartTime(now)
	if req.Subject != nil {
		if subject := strings.TrimSpace(*req.Subject); subject != "" {
			if utf8.RuneCountInString(subject) > maxSubjectLength {
				return nil, invalidField("subject", "Subject must be at most 100 characters")
			}
			session.Subject = &subject
		}
	}

	err := s.store.WithTx(ctx, func(r Repositories) error {
		_, err := r.Sessions.GetActive(ctx, userID)
		if err == nil {
			return &ConflictError{Message: msgActiveExists}
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		return r.Sessions.Create(ctx, session)
	})
	if err != nil {
		return nil, sessionWriteError(err)
	}

	s.events.Publish(ctx, userID, models.WSMessage{Type: models.EventSessionStarted, Payload: session})
	return session, nil
}

// End closes the running session and credits study and game time in the same transaction.
func (s *StudySessionService) End(ctx context.Context, userID int64, req models.EndStudySessionRequest) (*models.SessionEndResult, error) {
	var result *models.SessionEndResult
	err := s.store.WithTx(ctx, func(r Repositories) error {
		session, err := r.Sessions.GetActive(ctx, userID)
		if err != nil {
			return sessionReadError(err, msgNoActiveSession)
		}

		now := s.now().UTC()
		session.SetEndTime(&now)
		if req.Notes != nil {
			session.Notes = req.Notes
		}
		session.UpdatedAt = now
		if err := r.Sessions.Update(ctx, session); err != nil {
			return err
		}

		reward := GameReward(session.Duration)
		user, err := r.Users.AddStudyTime(ctx, userID, session.Duration, reward)
		if err != nil {
			return err
		}

		result = &models.SessionEndResult{
			Session:    session,
			EarnedGame: reward,
			StudyTime:  user.StudyTime,
			GameTime:   user.GameTime,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, userID, models.WSMessage{Type: models.EventSessionEnded, Payload: result})
	return result, nil
}

func (s *StudySessionService) Active(ctx context.Context, userID int64) (*models.StudySession, error) {
	session, err := s.store.Repos().Sessions.GetActive(ctx, userID)
	if err != nil {
		return nil, sessionReadError(err, msgNoActiveSession)
	}
	return session, nil
}

// Stats aggregates every session started inside the optional date range.
func (s *StudySessionService) Stats(ctx context.Context, userID int64, startDate, endDate string) (*models.StudyStats, error) {
	from, to, err := parseRange("start_date", startDate, "end_date", endDate)
	if err != nil {
		return nil, err
	}

	sessions, _, err := s.store.Repos().Sessions.List(ctx, userID, models.StudySessionFilter{StartDate: from, EndDate: to})
	if err != nil {
		return nil, err
	}

	stats := AggregateStudyStats(sessions, s.now())
	return &stats, nil
}

func sessionReadError(err error, notFound string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return &NotFoundError{Message: notFound}
	}
	return err
}

// sessionWriteError maps the one-active-session index to a conflict.
func sessionWriteError(err error) error {
	if repository.IsUniqueViolation(err, repository.ConstraintActiveSession) {
		return &ConflictError{Message: msgActiveExists}
	}
	return err
}
