package models

import "time"

type Reminder struct {
	ID             int        `json:"id"`
	AgentID        string     `json:"agentId"`
	Description    string     `json:"description"`
	RecurrenceRule string     `json:"recurrenceRule,omitempty"` // RFC 5545 RRULE subset
	Dtstart        time.Time  `json:"dtstart"`                  // Rule anchor: reference time at creation
	RemindAt       *time.Time `json:"remindAt,omitempty"`       // Next scheduled fire instant
	CreatedAt      time.Time  `json:"createdAt"`
	ModifiedAt     time.Time  `json:"updatedAt"`
}

// IsRecurring returns true if this reminder has a recurrence rule
func (r *Reminder) IsRecurring() bool {
	return r.RecurrenceRule != ""
}
