package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"reminderd/internal/models"
	"reminderd/internal/rrule"
	"reminderd/internal/scheduler"
)

// DefaultPageSize is the number of reminders per listing page.
const DefaultPageSize = 10

// Store is the slice of the reminder store the service needs.
type Store interface {
	Create(ctx context.Context, reminder *models.Reminder) error
	Delete(ctx context.Context, agentID string, id int) (*models.Reminder, error)
	DeleteByDescription(ctx context.Context, agentID, description string) (*models.Reminder, error)
	List(ctx context.Context, agentID string, page, pageSize int) ([]*models.Reminder, int, error)
}

// Scheduler registers and cancels reminder timers.
type Scheduler interface {
	Schedule(job scheduler.Job, fireAt time.Time)
	Cancel(agentID string, id int)
}

type Service struct {
	store  Store
	engine Scheduler
	loc    *time.Location
	nowFn  func() time.Time

	// mu serializes create against delete. Without it a delete landing
	// between the insert and the timer registration would remove the record
	// yet leave the creator about to arm a timer for it.
	mu sync.Mutex
}

type Option func(*Service)

// WithClock overrides the service clock. Tests use this to pin "now".
func WithClock(nowFn func() time.Time) Option {
	return func(s *Service) {
		if nowFn != nil {
			s.nowFn = nowFn
		}
	}
}

func New(store Store, engine Scheduler, loc *time.Location, opts ...Option) *Service {
	s := &Service{
		store:  store,
		engine: engine,
		loc:    loc,
		nowFn:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest carries the scheduling inputs for a new reminder. Exactly one
// of RecurrenceRule, Timestamp, or DelayMinutes determines the first
// occurrence; Timestamp wins over DelayMinutes, which wins over the rule.
type CreateRequest struct {
	AgentID        string
	Description    string
	RecurrenceRule string
	Timestamp      string
	DelayMinutes   *int
}

// CreateReminder persists a new reminder and registers its timer. It returns
// a confirmation message including the computed first occurrence.
func (s *Service) CreateReminder(ctx context.Context, req CreateRequest) (string, error) {
	if strings.TrimSpace(req.Description) == "" {
		return "", ErrEmptyDescription
	}

	now := s.nowFn().In(s.loc)
	first, err := rrule.FirstOccurrence(req.RecurrenceRule, req.Timestamp, req.DelayMinutes, now)
	if err != nil {
		return "", err
	}

	reminder := &models.Reminder{
		AgentID:        req.AgentID,
		Description:    req.Description,
		RecurrenceRule: req.RecurrenceRule,
		Dtstart:        now,
		RemindAt:       &first,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Create(ctx, reminder); err != nil {
		return "", err
	}

	s.engine.Schedule(scheduler.Job{
		ReminderID:     reminder.ID,
		AgentID:        reminder.AgentID,
		Description:    reminder.Description,
		RecurrenceRule: reminder.RecurrenceRule,
		Dtstart:        reminder.Dtstart,
	}, first)

	return fmt.Sprintf("Reminder %d created: %s. Next occurrence: %s.",
		reminder.ID, reminder.Description, first.Format(rrule.TimestampLayout)), nil
}

// DeleteReminder cancels the reminder's timer and removes its record. The id
// match takes precedence over the description match when both are given.
func (s *Service) DeleteReminder(ctx context.Context, agentID, description string, id *int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var reminder *models.Reminder
	var err error
	switch {
	case id != nil:
		// Cancel before removing the record; cancelling a timer that
		// already fired is a no-op.
		s.engine.Cancel(agentID, *id)
		reminder, err = s.store.Delete(ctx, agentID, *id)
	case description != "":
		reminder, err = s.store.DeleteByDescription(ctx, agentID, description)
		if err == nil {
			s.engine.Cancel(agentID, reminder.ID)
		}
	default:
		return "", ErrMissingSelector
	}
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Reminder %d deleted: %s.", reminder.ID, reminder.Description), nil
}

// ListResult is one page of an agent's reminders.
type ListResult struct {
	Reminders  []*models.Reminder
	Total      int
	Page       int
	TotalPages int
}

// ListReminders returns one page of the agent's reminders in insertion order.
// An out-of-range page yields an empty page, not an error.
func (s *Service) ListReminders(ctx context.Context, agentID string, page int) (*ListResult, error) {
	if page < 0 {
		page = 0
	}
	reminders, total, err := s.store.List(ctx, agentID, page, DefaultPageSize)
	if err != nil {
		return nil, err
	}
	if reminders == nil {
		reminders = []*models.Reminder{}
	}
	return &ListResult{
		Reminders:  reminders,
		Total:      total,
		Page:       page,
		TotalPages: (total + DefaultPageSize - 1) / DefaultPageSize,
	}, nil
}

// String renders the page the way the agent sees it.
func (l *ListResult) String() string {
	if len(l.Reminders) == 0 {
		return "No reminders found."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Showing %d of %d reminders (page %d/%d):",
		len(l.Reminders), l.Total, l.Page+1, l.TotalPages)
	for _, r := range l.Reminders {
		fmt.Fprintf(&sb, "\nID: %d, Description: %s, Recurrence Rule: %s, Created At: %s, Modified At: %s",
			r.ID, r.Description, r.RecurrenceRule,
			r.CreatedAt.Format(rrule.TimestampLayout), r.ModifiedAt.Format(rrule.TimestampLayout))
	}
	return sb.String()
}
