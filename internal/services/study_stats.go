package services

import (
	"sort"
	"strings"
	"time"

	"studyhub-backend/internal/models"
)

const (
	statsWindowDays      = 30
	uncategorizedSubject = "Uncategorized"
)

// IsBreakSession reports whether a session counts as a break rather than study.
func IsBreakSession(s *models.StudySession) bool {
	return s.Subject != nil && strings.Contains(strings.ToLower(*s.Subject), "break")
}

func subjectKey(s *models.StudySession) string {
	if s.Subject == nil {
		return uncategorizedSubject
	}
	if key := strings.TrimSpace(*s.Subject); key != "" {
		return key
	}
	return uncategorizedSubject
}

// AggregateStudyStats summarises sessions into totals, per-subject groups and a
// 30-day daily series ending on now's UTC date. The result does not depend on input order.
func AggregateStudyStats(sessions []*models.StudySession, now time.Time) models.StudyStats {
	var stats models.StudyStats

	today := now.UTC().Truncate(24 * time.Hour)
	daily := make([]models.DailyStats, statsWindowDays)
	dayIndex := make(map[string]int, statsWindowDays)
	for i := range daily {
		date := today.AddDate(0, 0, -i).Format(dateLayout)
		daily[i].Date = date
		dayIndex[date] = i
	}

	bySubject := make(map[string]*models.SubjectStats)

	for _, s := range sessions {
		isBreak := IsBreakSession(s)
		positive := s.Duration > 0

		if isBreak {
			stats.BreakSessions++
			if positive {
				stats.BreakDuration += s.Duration
			}
		} else {
			stats.TotalSessions++
			if positive {
				stats.TotalDuration += s.Duration
			}
		}

		if !positive {
			continue
		}

		if !isBreak {
			key := subjectKey(s)
			group, ok := bySubject[key]
			if !ok {
				group = &models.SubjectStats{Subject: key}
				bySubject[key] = group
			}
			group.TotalDuration += s.Duration
			group.SessionCount++
			if s.EndTime != nil && (group.LastStudied == nil || s.EndTime.After(*group.LastStudied)) {
				end := s.EndTime.UTC()
				group.LastStudied = &end
			}
		}

		if s.EndTime == nil {
			continue
		}
		i, ok := dayIndex[s.EndTime.UTC().Format(dateLayout)]
		if !ok {
			continue
		}
		if isBreak {
			daily[i].BreakDuration += s.Duration
			daily[i].BreakCount++
		} else {
			daily[i].TotalDuration += s.Duration
			daily[i].SessionCount++
		}
	}

	stats.Subjects = make([]models.SubjectStats, 0, len(bySubject))
	for _, group := range bySubject {
		stats.Subjects = append(stats.Subjects, *group)
	}
	sort.Slice(stats.Subjects, func(i, j int) bool {
		a, b := stats.Subjects[i], stats.Subjects[j]
		if a.TotalDuration != b.TotalDuration {
			return a.TotalDuration > b.TotalDuration
		}
		return a.Subject < b.Subject
	})
	if len(stats.Subjects) > 0 {
		favorite := stats.Subjects[0].Subject
		stats.FavoriteSubject = &favorite
	}

	stats.TotalDurationMinutes = stats.TotalDuration / 60
	stats.BreakDurationMinutes = stats.BreakDuration / 60
	stats.BreakStats = models.BreakStats{
		TotalSessions:        stats.BreakSessions,
		TotalDuration:        stats.BreakDuration,
		TotalDurationMinutes: stats.BreakDurationMinutes,
	}
	stats.DailyStats = daily

	return stats
}
