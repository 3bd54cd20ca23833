// Package rrule evaluates recurrence rules and explicit schedules.
//
// All functions are pure: the reference time is always passed in explicitly,
// and its location is the fixed reference timezone every computation is
// anchored to.
package rrule

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// TimestampLayout is the input format for explicit scheduling timestamps,
// interpreted in the reference timezone.
const TimestampLayout = "2006-01-02 15:04:05"

// ErrInvalidSchedule is returned when none of rule/timestamp/delay is given,
// or when the given rule or timestamp cannot be parsed.
var ErrInvalidSchedule = errors.New("invalid schedule")

// Parse parses an RFC 5545 RRULE string anchored at dtstart.
func Parse(ruleStr string, dtstart time.Time) (*rrule.RRule, error) {
	// Handle RRULE: prefix if present
	ruleStr = strings.TrimPrefix(ruleStr, "RRULE:")

	opt, err := rrule.StrToROption(ruleStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RRULE: %w", err)
	}

	// Re-anchor the start so the rule evaluates in the reference timezone,
	// keeping BYHOUR/BYMINUTE local-time semantics across DST transitions.
	opt.Dtstart = time.Date(
		dtstart.Year(), dtstart.Month(), dtstart.Day(),
		dtstart.Hour(), dtstart.Minute(), dtstart.Second(), 0,
		dtstart.Location(),
	)
	return rrule.NewRRule(*opt)
}

// FirstOccurrence resolves the first fire instant for a new reminder.
//
// Precedence is fixed: an explicit timestamp wins over delayMinutes, which
// wins over the recurrence rule. If none of the three is given the result is
// ErrInvalidSchedule.
func FirstOccurrence(ruleStr, timestamp string, delayMinutes *int, ref time.Time) (time.Time, error) {
	switch {
	case timestamp != "":
		t, err := time.ParseInLocation(TimestampLayout, timestamp, ref.Location())
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: bad timestamp %q (want %q)", ErrInvalidSchedule, timestamp, TimestampLayout)
		}
		return t, nil
	case delayMinutes != nil:
		return ref.Add(time.Duration(*delayMinutes) * time.Minute), nil
	case ruleStr != "":
		next, err := NextAfter(ruleStr, ref, ref)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
		}
		if next == nil {
			return time.Time{}, fmt.Errorf("%w: rule %q has no upcoming occurrence", ErrInvalidSchedule, ruleStr)
		}
		return *next, nil
	default:
		return time.Time{}, ErrInvalidSchedule
	}
}

// NextAfter returns the earliest occurrence of the rule strictly after the
// given time, or nil if the rule is exhausted (e.g. a bounded COUNT has been
// reached).
func NextAfter(ruleStr string, dtstart, after time.Time) (*time.Time, error) {
	rule, err := Parse(ruleStr, dtstart)
	if err != nil {
		return nil, err
	}

	// rrule.After(t, false) should already be strict, but keep searching to
	// guard against occurrences landing exactly on 'after' when the inputs
	// carry mismatched locations.
	current := after
	for i := 0; i < 1000; i++ { // Safety limit
		next := rule.After(current, false)
		if next.IsZero() {
			return nil, nil
		}
		if next.After(after) {
			return &next, nil
		}
		current = next.Add(time.Second)
	}

	return nil, nil
}

// IsRecurring checks if the RRULE string represents a recurring schedule
func IsRecurring(ruleStr string) bool {
	return ruleStr != "" && strings.Contains(strings.ToUpper(ruleStr), "FREQ=")
}
