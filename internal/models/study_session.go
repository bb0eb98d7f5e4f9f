package models

import "time"

type StudySession struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Subject   *string    `json:"subject"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	Duration  int        `json:"duration"` // seconds
	Notes     *string    `json:"notes"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Active reports whether the session is still running.
func (s *StudySession) Active() bool {
	return s.EndTime == nil
}

// SetStartTime stores t in UTC and keeps Duration consistent with the new bounds.
func (s *StudySession) SetStartTime(t time.Time) {
	s.StartTime = t.UTC()
	s.recomputeDuration()
}

// SetEndTime stores t in UTC and recomputes Duration. A nil t reopens the session.
func (s *StudySession) SetEndTime(t *time.Time) {
	if t == nil {
		s.EndTime = nil
		s.Duration = 0
		return
	}
	end := t.UTC()
	s.EndTime = &end
	s.recomputeDuration()
}

// OverrideDuration replaces the computed duration for manual corrections.
func (s *StudySession) OverrideDuration(seconds int) {
	if seconds < 0 {
		seconds = 0
	}
	s.Duration = seconds
}

func (s *StudySession) recomputeDuration() {
	if s.EndTime == nil {
		s.Duration = 0
		return
	}
	s.Duration = DurationSeconds(s.StartTime, *s.EndTime)
}

// DurationSeconds returns floor(end - start) in whole seconds, never negative.
func DurationSeconds(start, end time.Time) int {
	d := end.Sub(start)
	if d <= 0 {
		return 0
	}
	return int(d / time.Second)
}

type CreateStudySessionRequest struct {
	Subject   string  `json:"subject"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
	Notes     *string `json:"notes"`
}

type UpdateStudySessionRequest struct {
	Subject   OptionalString `json:"subject"`
	Notes     OptionalString `json:"notes"`
	StartTime OptionalString `json:"start_time"`
	EndTime   OptionalString `json:"end_time"`
	Duration  *int           `json:"duration"`
}

type StartStudySessionRequest struct {
	Subject *string `json:"subject"`
	Notes   *string `json:"notes"`
}

type EndStudySessionRequest struct {
	Notes *string `json:"notes"`
}

// StudySessionQuery holds the raw list query parameters.
type StudySessionQuery struct {
	StartDate string
	EndDate   string
	Completed string
	Subject   string
	Limit     string
	Offset    string
}

type StudySessionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time // exclusive upper bound
	Completed *bool
	Subject   string
	Limit     int
	Offset    int
}

type StudySessionPage struct {
	Total    int             `json:"total"`
	Limit    *int            `json:"limit"`
	Offset   int             `json:"offset"`
	Sessions []*StudySession `json:"sessions"`
}

// SessionEndResult is returned when the active session is closed and the user credited.
type SessionEndResult struct {
	Session    *StudySession `json:"session"`
	EarnedGame int           `json:"earned_game_time"`
	StudyTime  int           `json:"study_time"`
	GameTime   int           `json:"game_time"`
}

type SubjectStats struct {
	Subject       string     `json:"subject"`
	TotalDuration int        `json:"total_duration"`
	SessionCount  int        `json:"session_count"`
	LastStudied   *time.Time `json:"last_studied"`
}

type DailyStats struct {
	Date          string `json:"date"`
	TotalDuration int    `json:"total_duration"`
	SessionCount  int    `json:"session_count"`
	BreakDuration int    `json:"break_duration"`
	BreakCount    int    `json:"break_count"`
}

type BreakStats struct {
	TotalSessions        int `json:"total_sessions"`
	TotalDuration        int `json:"total_duration"`
	TotalDurationMinutes int `json:"total_duration_minutes"`
}

type StudyStats struct {
	TotalSessions        int            `json:"total_sessions"`
	TotalDuration        int            `json:"total_duration"`
	TotalDurationMinutes int            `json:"total_duration_minutes"`
	BreakSessions        int            `json:"break_sessions"`
	BreakDuration        int            `json:"break_duration"`
	BreakDurationMinutes int            `json:"break_duration_minutes"`
	Subjects             []SubjectStats `json:"subjects"`
	DailyStats           []DailyStats   `json:"daily_stats"`
	FavoriteSubject      *string        `json:"favorite_subject"`
	BreakStats           BreakStats     `json:"break_stats"`
}
