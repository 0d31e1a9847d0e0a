package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/openbracket/progression-engine/models"
)

var ErrOutboxEventNotFound = errors.New("outbox event not found")

// OutboxRepository stores outbound side effects next to the state change that
// produced them; the dispatcher drains pending rows with retries.
type OutboxRepository interface {
	Enqueue(ctx context.Context, exec SQLExecutor, event *models.OutboxEvent) error
	// ListPending claims up to limit pending events. SKIP LOCKED keeps
	// concurrent dispatcher ticks from delivering the same event twice.
	ListPending(ctx context.Context, exec SQLExecutor, limit int) ([]*models.OutboxEvent, error)
	MarkDelivered(ctx context.Context, exec SQLExecutor, id string) error
	MarkFailed(ctx context.Context, exec SQLExecutor, id string, attempts int, lastError string, terminal bool) error
}

type postgresOutboxRepository struct {
	db *sql.DB
}

func NewPostgresOutboxRepository(db *sql.DB) OutboxRepository {
	return &postgresOutboxRepository{db: db}
}

func (r *postgresOutboxRepository) exec(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresOutboxRepository) Enqueue(ctx context.Context, exec SQLExecutor, event *models.OutboxEvent) error {
	query := `
		INSERT INTO outbox_events (id, kind, payload, status, attempts)
		VALUES ($1, $2, $3, $4, 0)
		RETURNING created_at, updated_at`

	err := r.exec(exec).QueryRowContext(ctx, query,
		event.ID, event.Kind, event.Payload, models.OutboxStatusPending,
	).Scan(&event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to enqueue outbox event %s: %w", event.ID, err)
	}
	event.Status = models.OutboxStatusPending
	return nil
}

func (r *postgresOutboxRepository) ListPending(ctx context.Context, exec SQLExecutor, limit int) ([]*models.OutboxEvent, error) {
	query := `
		SELECT id, kind, payload, status, attempts, last_error, created_at, updated_at
		FROM outbox_events
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED`

	rows, err := r.exec(exec).QueryContext(ctx, query, models.OutboxStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending outbox events: %w", err)
	}
	defer rows.Close()

	events := make([]*models.OutboxEvent, 0)
	for rows.Next() {
		var e models.OutboxEvent
		if scanErr := rows.Scan(&e.ID, &e.Kind, &e.Payload, &e.Status, &e.Attempts, &e.LastError, &e.CreatedAt, &e.UpdatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan outbox row: %w", scanErr)
		}
		events = append(events, &e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during outbox rows iteration: %w", err)
	}
	return events, nil
}

func (r *postgresOutboxRepository) MarkDelivered(ctx context.Context, exec SQLExecutor, id string) error {
	query := `
		UPDATE outbox_events
		SET status = $1, updated_at = NOW()
		WHERE id = $2`
	result, err := r.exec(exec).ExecContext(ctx, query, models.OutboxStatusDelivered, id)
	if err != nil {
		return fmt.Errorf("failed to mark outbox event %s delivered: %w", id, err)
	}
	return checkAffectedRows(result, ErrOutboxEventNotFound)
}

func (r *postgresOutboxRepository) MarkFailed(ctx context.Context, exec SQLExecutor, id string, attempts int, lastError string, terminal bool) error {
	status := models.OutboxStatusPending
	if terminal {
		status = models.OutboxStatusFailed
	}
	query := `
		UPDATE outbox_events
		SET status = $1, attempts = $2, last_error = $3, updated_at = NOW()
		WHERE id = $4`
	result, err := r.exec(exec).ExecContext(ctx, query, status, attempts, lastError, id)
	if err != nil {
		return fmt.Errorf("failed to mark outbox event %s failed: %w", id, err)
	}
	return checkAffectedRows(result, ErrOutboxEventNotFound)
}
