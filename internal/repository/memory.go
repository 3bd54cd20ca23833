package repository

import (
	"context"
	"sync"
	"time"

	"reminderd/internal/models"
)

// MemoryStore is an in-memory reminder store with the same contract as
// ReminderRepository. It backs tests and ephemeral runs without Postgres.
type MemoryStore struct {
	mu        sync.Mutex
	reminders map[string][]*models.Reminder // per agent, insertion order
	nextID    map[string]int
	nowFn     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reminders: make(map[string][]*models.Reminder),
		nextID:    make(map[string]int),
		nowFn:     time.Now,
	}
}

// SetClock overrides the clock used for created_at/modified_at.
func (s *MemoryStore) SetClock(nowFn func() time.Time) {
	s.nowFn = nowFn
}

func (s *MemoryStore) Create(ctx context.Context, reminder *models.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.reminders[reminder.AgentID] {
		if r.Description == reminder.Description {
			return ErrDuplicateDescription
		}
	}

	s.nextID[reminder.AgentID]++
	reminder.ID = s.nextID[reminder.AgentID]
	now := s.nowFn()
	reminder.CreatedAt = now
	reminder.ModifiedAt = now

	clone := *reminder
	s.reminders[reminder.AgentID] = append(s.reminders[reminder.AgentID], &clone)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, agentID string, id int) (*models.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.reminders[agentID] {
		if r.ID == id {
			return s.removeAt(agentID, i), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) DeleteByDescription(ctx context.Context, agentID, description string) (*models.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.reminders[agentID] {
		if r.Description == description {
			return s.removeAt(agentID, i), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) List(ctx context.Context, agentID string, page, pageSize int) ([]*models.Reminder, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.reminders[agentID]
	total := len(all)

	start := page * pageSize
	if start < 0 || start >= total {
		return nil, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	out := make([]*models.Reminder, 0, end-start)
	for _, r := range all[start:end] {
		clone := *r
		out = append(out, &clone)
	}
	return out, total, nil
}

func (s *MemoryStore) ListAll(ctx context.Context) ([]*models.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Reminder
	for _, agent := range s.reminders {
		for _, r := range agent {
			clone := *r
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (s *MemoryStore) UpdateRemindAt(ctx context.Context, agentID string, id int, remindAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.reminders[agentID] {
		if r.ID == id {
			r.RemindAt = remindAt
			r.ModifiedAt = s.nowFn()
			return nil
		}
	}
	// Tolerate updates racing a delete; last writer wins on the record.
	return nil
}

func (s *MemoryStore) removeAt(agentID string, i int) *models.Reminder {
	all := s.reminders[agentID]
	removed := all[i]
	s.reminders[agentID] = append(all[:i], all[i+1:]...)
	return removed
}
