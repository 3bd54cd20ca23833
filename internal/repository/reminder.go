package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"reminderd/internal/database"
	"reminderd/internal/models"
)

const reminderColumns = `agent_id, id, description, recurrence_rule, dtstart, remind_at, created_at, modified_at`

type ReminderRepository struct {
	db *database.DB
}

func NewReminderRepository(db *database.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// Create assigns the next id for the agent and persists the reminder in a
// single transaction. Ids are drawn from a per-agent sequence row so that
// concurrent creates serialize on it and ids are never reused after deletion.
func (r *ReminderRepository) Create(ctx context.Context, reminder *models.Reminder) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM reminders WHERE agent_id = $1 AND description = $2)`,
		reminder.AgentID, reminder.Description,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicateDescription
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO reminder_sequences (agent_id, last_id) VALUES ($1, 1)
		 ON CONFLICT (agent_id) DO UPDATE SET last_id = reminder_sequences.last_id + 1
		 RETURNING last_id`,
		reminder.AgentID,
	).Scan(&reminder.ID)
	if err != nil {
		return err
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO reminders (agent_id, id, description, recurrence_rule, dtstart, remind_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at, modified_at`,
		reminder.AgentID, reminder.ID, reminder.Description, reminder.RecurrenceRule,
		reminder.Dtstart, reminder.RemindAt,
	).Scan(&reminder.CreatedAt, &reminder.ModifiedAt)
	if err != nil {
		// Two creates with the same description can race past the EXISTS
		// check; the unique constraint decides the loser.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateDescription
		}
		return err
	}

	return tx.Commit(ctx)
}

// Delete removes and returns the reminder, or ErrNotFound.
func (r *ReminderRepository) Delete(ctx context.Context, agentID string, id int) (*models.Reminder, error) {
	row := r.db.Pool.QueryRow(ctx,
		`DELETE FROM reminders WHERE agent_id = $1 AND id = $2 RETURNING `+reminderColumns,
		agentID, id,
	)
	return scanReminder(row)
}

// DeleteByDescription removes and returns the reminder with an exact
// description match, or ErrNotFound.
func (r *ReminderRepository) DeleteByDescription(ctx context.Context, agentID, description string) (*models.Reminder, error) {
	row := r.db.Pool.QueryRow(ctx,
		`DELETE FROM reminders WHERE agent_id = $1 AND description = $2 RETURNING `+reminderColumns,
		agentID, description,
	)
	return scanReminder(row)
}

// List returns one page of the agent's reminders in insertion order plus the
// total count. An out-of-range page yields an empty slice.
func (r *ReminderRepository) List(ctx context.Context, agentID string, page, pageSize int) ([]*models.Reminder, int, error) {
	var total int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM reminders WHERE agent_id = $1`, agentID,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE agent_id = $1
		 ORDER BY id ASC LIMIT $2 OFFSET $3`,
		agentID, pageSize, page*pageSize,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	reminders, err := collectReminders(rows)
	if err != nil {
		return nil, 0, err
	}
	return reminders, total, nil
}

// ListAll returns every persisted reminder across all agents. Used at startup
// to re-register timers.
func (r *ReminderRepository) ListAll(ctx context.Context) ([]*models.Reminder, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+reminderColumns+` FROM reminders ORDER BY agent_id, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectReminders(rows)
}

// UpdateRemindAt persists the next fire instant and refreshes modified_at.
// Updating an already deleted reminder is a no-op.
func (r *ReminderRepository) UpdateRemindAt(ctx context.Context, agentID string, id int, remindAt *time.Time) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE reminders SET remind_at = $3, modified_at = now() WHERE agent_id = $1 AND id = $2`,
		agentID, id, remindAt,
	)
	return err
}

func scanReminder(row pgx.Row) (*models.Reminder, error) {
	reminder := &models.Reminder{}
	err := row.Scan(&reminder.AgentID, &reminder.ID, &reminder.Description, &reminder.RecurrenceRule,
		&reminder.Dtstart, &reminder.RemindAt, &reminder.CreatedAt, &reminder.ModifiedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return reminder, nil
}

func collectReminders(rows pgx.Rows) ([]*models.Reminder, error) {
	var reminders []*models.Reminder
	for rows.Next() {
		reminder := &models.Reminder{}
		if err := rows.Scan(&reminder.AgentID, &reminder.ID, &reminder.Description, &reminder.RecurrenceRule,
			&reminder.Dtstart, &reminder.RemindAt, &reminder.CreatedAt, &reminder.ModifiedAt); err != nil {
			return nil, err
		}
		reminders = append(reminders, reminder)
	}
	return reminders, rows.Err()
}
