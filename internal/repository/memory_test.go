package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"reminderd/internal/models"
)

func newReminder(agentID, description string) *models.Reminder {
	return &models.Reminder{
		AgentID:     agentID,
		Description: description,
		Dtstart:     time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestMemoryStoreAssignsMonotonicIDs(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for i := 1; i <= 3; i++ {
		r := newReminder("agent-a", fmt.Sprintf("reminder %d", i))
		if err := store.Create(ctx, r); err != nil {
			t.Fatalf("Create: %v", err)
		}
		if r.ID != i {
			t.Errorf("id = %d, want %d", r.ID, i)
		}
	}

	// Ids are partitioned per agent.
	other := newReminder("agent-b", "reminder 1")
	if err := store.Create(ctx, other); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if other.ID != 1 {
		t.Errorf("agent-b first id = %d, want 1", other.ID)
	}

	// Deleting the highest id must not cause its reuse.
	if _, err := store.Delete(ctx, "agent-a", 3); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	r := newReminder("agent-a", "reminder 4")
	if err := store.Create(ctx, r); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if r.ID != 4 {
		t.Errorf("id after delete = %d, want 4", r.ID)
	}
}

func TestMemoryStoreConcurrentCreatesGetDistinctIDs(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	const n = 50
	results := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := newReminder("agent-a", fmt.Sprintf("reminder %d", i))
			if err := store.Create(ctx, r); err != nil {
				t.Errorf("Create %d: %v", i, err)
				return
			}
			results <- r.ID
		}(i)
	}
	wg.Wait()
	close(results)

	// Every create must receive its own id, with no gaps.
	seen := make(map[int]bool, n)
	for id := range results {
		if seen[id] {
			t.Errorf("id %d assigned twice", id)
		}
		seen[id] = true
	}
	for id := 1; id <= n; id++ {
		if !seen[id] {
			t.Errorf("id %d never assigned", id)
		}
	}
}

func TestMemoryStoreRejectsDuplicateDescription(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Create(ctx, newReminder("agent-a", "take meds")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := store.Create(ctx, newReminder("agent-a", "take meds"))
	if !errors.Is(err, ErrDuplicateDescription) {
		t.Fatalf("err = %v, want ErrDuplicateDescription", err)
	}

	// First write wins; the store still holds exactly one record.
	_, total, err := store.List(ctx, "agent-a", 0, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 {
		t.Errorf("total = %d, want 1", total)
	}

	// The same description under another agent is fine.
	if err := store.Create(ctx, newReminder("agent-b", "take meds")); err != nil {
		t.Errorf("cross-agent duplicate should be allowed: %v", err)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	r := newReminder("agent-a", "call mom")
	if err := store.Create(ctx, r); err != nil {
		t.Fatalf("Create: %v", err)
	}

	deleted, err := store.Delete(ctx, "agent-a", r.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if deleted.Description != "call mom" {
		t.Errorf("deleted description = %q", deleted.Description)
	}

	if _, err := store.Delete(ctx, "agent-a", r.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreDeleteByDescription(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	r := newReminder("agent-a", "water plants")
	if err := store.Create(ctx, r); err != nil {
		t.Fatalf("Create: %v", err)
	}

	deleted, err := store.DeleteByDescription(ctx, "agent-a", "water plants")
	if err != nil {
		t.Fatalf("DeleteByDescription: %v", err)
	}
	if deleted.ID != r.ID {
		t.Errorf("deleted id = %d, want %d", deleted.ID, r.ID)
	}

	if _, err := store.DeleteByDescription(ctx, "agent-a", "water plants"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStorePagination(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for i := 1; i <= 25; i++ {
		if err := store.Create(ctx, newReminder("agent-a", fmt.Sprintf("reminder %d", i))); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	wantSizes := []int{10, 10, 5, 0}
	for page, want := range wantSizes {
		items, total, err := store.List(ctx, "agent-a", page, 10)
		if err != nil {
			t.Fatalf("List page %d: %v", page, err)
		}
		if total != 25 {
			t.Errorf("page %d total = %d, want 25", page, total)
		}
		if len(items) != want {
			t.Errorf("page %d size = %d, want %d", page, len(items), want)
		}
	}

	// Insertion order is stable across pages.
	items, _, _ := store.List(ctx, "agent-a", 1, 10)
	if items[0].ID != 11 {
		t.Errorf("page 1 starts at id %d, want 11", items[0].ID)
	}
}

func TestMemoryStoreUpdateRemindAt(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	clock := base
	store.SetClock(func() time.Time { return clock })

	r := newReminder("agent-a", "stand up")
	if err := store.Create(ctx, r); err != nil {
		t.Fatalf("Create: %v", err)
	}

	clock = base.Add(time.Hour)
	next := base.Add(24 * time.Hour)
	if err := store.UpdateRemindAt(ctx, "agent-a", r.ID, &next); err != nil {
		t.Fatalf("UpdateRemindAt: %v", err)
	}

	items, _, _ := store.List(ctx, "agent-a", 0, 10)
	got := items[0]
	if got.RemindAt == nil || !got.RemindAt.Equal(next) {
		t.Errorf("remind_at = %v, want %s", got.RemindAt, next)
	}
	if !got.ModifiedAt.Equal(base.Add(time.Hour)) {
		t.Errorf("modified_at = %s, want refresh", got.ModifiedAt)
	}
	if !got.CreatedAt.Equal(base) {
		t.Errorf("created_at = %s, want unchanged", got.CreatedAt)
	}

	// Updating a missing reminder is a no-op, not an error.
	if err := store.UpdateRemindAt(ctx, "agent-a", 99, &next); err != nil {
		t.Errorf("UpdateRemindAt missing: %v", err)
	}
}
