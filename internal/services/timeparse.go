package services

import (
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Accepted ISO-8601 forms. Values without an offset are taken as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	dateLayout,
}

// parseTimestamp parses an ISO-8601 value and returns it in UTC.
func parseTimestamp(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, invalidField(field, "Invalid ISO 8601 timestamp")
}

// parseRange turns optional start/end query values into a half-open [from, to) range.
// A date-only end covers that whole day; a full timestamp end is inclusive.
func parseRange(startField, start, endField, end string) (from, to *time.Time, err error) {
	errs := fieldErrors{}
	if start = strings.TrimSpace(start); start != "" {
		t, perr := parseTimestamp(startField, start)
		if perr != nil {
			errs.add(startField, "Invalid ISO 8601 timestamp")
		} else {
			from = &t
		}
	}
	if end = strings.TrimSpace(end); end != "" {
		t, perr := parseTimestamp(endField, end)
		if perr != nil {
			errs.add(endField, "Invalid ISO 8601 timestamp")
		} else {
			if isDateOnly(end) {
				t = t.AddDate(0, 0, 1)
			} else {
				// Postgres stores microseconds.
				t = t.Add(time.Microsecond)
			}
			to = &t
		}
	}
	if err := errs.err(); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func isDateOnly(value string) bool {
	_, err := time.Parse(dateLayout, value)
	return err == nil
}
