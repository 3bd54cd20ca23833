// Package scheduler owns the process-wide timer table for pending reminders.
//
// Each pending reminder holds exactly one registration keyed by
// (agent id, reminder id). When a timer matures the engine notifies the
// owning agent, then either re-registers the next occurrence of the rule or
// retires the reminder from the store. Operations on the same reminder are
// totally ordered; reminders never block each other.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"reminderd/internal/models"
	"reminderd/internal/repository"
	"reminderd/internal/rrule"
)

// Store is the slice of the reminder store the engine needs.
type Store interface {
	ListAll(ctx context.Context) ([]*models.Reminder, error)
	UpdateRemindAt(ctx context.Context, agentID string, id int, remindAt *time.Time) error
	Delete(ctx context.Context, agentID string, id int) (*models.Reminder, error)
}

// Notifier delivers a fired reminder's message to the owning agent.
type Notifier interface {
	Notify(ctx context.Context, agentID, text string) error
}

// Job carries everything a fire callback needs, by value, so reschedules
// never observe stale captured state.
type Job struct {
	ReminderID     int
	AgentID        string
	Description    string
	RecurrenceRule string
	Dtstart        time.Time
}

func jobFor(r *models.Reminder) Job {
	return Job{
		ReminderID:     r.ID,
		AgentID:        r.AgentID,
		Description:    r.Description,
		RecurrenceRule: r.RecurrenceRule,
		Dtstart:        r.Dtstart,
	}
}

type registration struct {
	job       Job
	timer     *time.Timer
	gen       uint64
	firing    bool
	cancelled bool
}

type Engine struct {
	store    Store
	notifier Notifier
	loc      *time.Location
	nowFn    func() time.Time

	mu      sync.Mutex
	timers  map[string]*registration
	stopped bool
	wg      sync.WaitGroup

	// Base context for fire callbacks; they outlive the request that
	// created the reminder.
	ctx    context.Context
	cancel context.CancelFunc
}

type Option func(*Engine)

// WithClock overrides the engine's clock. Tests use this to pin "now".
func WithClock(nowFn func() time.Time) Option {
	return func(e *Engine) {
		if nowFn != nil {
			e.nowFn = nowFn
		}
	}
}

func New(store Store, notifier Notifier, loc *time.Location, opts ...Option) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		store:    store,
		notifier: notifier,
		loc:      loc,
		nowFn:    time.Now,
		timers:   make(map[string]*registration),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start reloads all persisted reminders and re-registers their timers.
// Recurring reminders are recomputed from "now"; one-off reminders use the
// persisted fire instant, firing immediately when it already passed.
// Reminders with no recoverable occurrence are retired.
func (e *Engine) Start(ctx context.Context) error {
	reminders, err := e.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load reminders: %w", err)
	}

	now := e.nowFn().In(e.loc)
	registered := 0
	for _, r := range reminders {
		fireAt, ok := e.restoreFireTime(r, now)
		if !ok {
			log.Warn().Str("agent_id", r.AgentID).Int("reminder_id", r.ID).
				Msg("retiring reminder with no recoverable occurrence")
			e.retire(ctx, r.AgentID, r.ID)
			continue
		}
		e.Schedule(jobFor(r), fireAt)
		registered++
		if r.RemindAt == nil || !r.RemindAt.Equal(fireAt) {
			if err := e.store.UpdateRemindAt(ctx, r.AgentID, r.ID, &fireAt); err != nil {
				log.Error().Err(err).Int("reminder_id", r.ID).Msg("failed to persist restored fire time")
			}
		}
	}

	log.Info().Int("reminders", registered).Msg("scheduler started")
	return nil
}

func (e *Engine) restoreFireTime(r *models.Reminder, now time.Time) (time.Time, bool) {
	if r.IsRecurring() {
		next, err := rrule.NextAfter(r.RecurrenceRule, r.Dtstart, now)
		if err != nil || next == nil {
			return time.Time{}, false
		}
		return *next, true
	}
	if r.RemindAt == nil {
		return time.Time{}, false
	}
	if r.RemindAt.Before(now) {
		// Missed while the process was down; fire as soon as possible.
		return now, true
	}
	return *r.RemindAt, true
}

// Stop cancels every pending timer and waits for in-flight fires to finish.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.stopped = true
	for _, reg := range e.timers {
		reg.timer.Stop()
	}
	e.mu.Unlock()
	e.wg.Wait()
	e.cancel()
	log.Info().Msg("scheduler stopped")
}

// Schedule registers a timer for the job. An existing registration for the
// same reminder is superseded; it never double-fires.
func (e *Engine) Schedule(job Job, fireAt time.Time) {
	key := jobKey(job.AgentID, job.ReminderID)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}

	reg := &registration{job: job}
	if old := e.timers[key]; old != nil {
		old.timer.Stop()
		reg.gen = old.gen + 1
	}
	e.timers[key] = reg
	e.armLocked(key, reg, fireAt)
	timersActive.Set(float64(len(e.timers)))
}

// Cancel removes the registration for a reminder. Cancelling an unknown or
// already fired reminder is a no-op. A fire already in progress completes its
// notification but will not reschedule.
func (e *Engine) Cancel(agentID string, id int) {
	key := jobKey(agentID, id)

	e.mu.Lock()
	defer e.mu.Unlock()
	reg := e.timers[key]
	if reg == nil {
		return
	}
	reg.timer.Stop()
	if reg.firing {
		reg.cancelled = true
	} else {
		delete(e.timers, key)
		timersActive.Set(float64(len(e.timers)))
	}
}

// Pending reports whether the reminder currently holds a live registration.
func (e *Engine) Pending(agentID string, id int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timers[jobKey(agentID, id)] != nil
}

func (e *Engine) armLocked(key string, reg *registration, fireAt time.Time) {
	d := time.Until(fireAt)
	if d < 0 {
		d = 0
	}
	gen := reg.gen
	reg.timer = time.AfterFunc(d, func() {
		e.onFire(key, gen)
	})
}

func (e *Engine) onFire(key string, gen uint64) {
	e.mu.Lock()
	reg := e.timers[key]
	if reg == nil || reg.gen != gen || reg.firing || e.stopped {
		// Cancelled, superseded, or shutting down.
		e.mu.Unlock()
		return
	}
	reg.firing = true
	job := reg.job
	e.wg.Add(1)
	e.mu.Unlock()
	defer e.wg.Done()

	now := e.nowFn().In(e.loc)
	text := fmt.Sprintf("Reminder at %s: %s", now.Format(rrule.TimestampLayout), job.Description)
	firesTotal.Inc()
	if err := e.notifier.Notify(e.ctx, job.AgentID, text); err != nil {
		// Delivery failure must not stop future recurrences.
		deliveryFailures.Inc()
		log.Error().Err(err).Str("agent_id", job.AgentID).Int("reminder_id", job.ReminderID).
			Msg("failed to deliver reminder notification")
	} else {
		log.Info().Str("agent_id", job.AgentID).Int("reminder_id", job.ReminderID).
			Msg("reminder fired")
	}

	var next *time.Time
	if job.RecurrenceRule != "" {
		n, err := rrule.NextAfter(job.RecurrenceRule, job.Dtstart, now)
		if err != nil {
			// Malformed rule is fatal only for this reminder.
			log.Error().Err(err).Int("reminder_id", job.ReminderID).
				Msg("retiring reminder with malformed recurrence rule")
		} else {
			next = n
		}
	}

	e.mu.Lock()
	reg = e.timers[key]
	if reg == nil || reg.gen != gen {
		e.mu.Unlock()
		return
	}
	if reg.cancelled {
		// Deleted mid-fire; the delete request owns the record.
		delete(e.timers, key)
		timersActive.Set(float64(len(e.timers)))
		e.mu.Unlock()
		return
	}
	if next == nil || e.stopped {
		delete(e.timers, key)
		timersActive.Set(float64(len(e.timers)))
		e.mu.Unlock()
		if next == nil {
			e.retire(e.ctx, job.AgentID, job.ReminderID)
		}
		return
	}

	reg.firing = false
	reg.gen++
	e.armLocked(key, reg, *next)
	e.mu.Unlock()

	if err := e.store.UpdateRemindAt(e.ctx, job.AgentID, job.ReminderID, next); err != nil {
		log.Error().Err(err).Int("reminder_id", job.ReminderID).Msg("failed to persist next occurrence")
	}
	log.Info().Int("reminder_id", job.ReminderID).Time("next", *next).Msg("reminder rescheduled")
}

func (e *Engine) retire(ctx context.Context, agentID string, id int) {
	retiredTotal.Inc()
	if _, err := e.store.Delete(ctx, agentID, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		log.Error().Err(err).Str("agent_id", agentID).Int("reminder_id", id).
			Msg("failed to retire reminder")
	}
}

func jobKey(agentID string, id int) string {
	return agentID + "/" + strconv.Itoa(id)
}
