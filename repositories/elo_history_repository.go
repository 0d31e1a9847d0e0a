package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/openbracket/progression-engine/models"
)

// EloHistoryRepository appends to the immutable rating ledger. There is no
// update or delete on purpose.
type EloHistoryRepository interface {
	Create(ctx context.Context, exec SQLExecutor, entry *models.EloHistory) error
	ListByPlayer(ctx context.Context, exec SQLExecutor, playerID int) ([]*models.EloHistory, error)
}

type postgresEloHistoryRepository struct {
	db *sql.DB
}

func NewPostgresEloHistoryRepository(db *sql.DB) EloHistoryRepository {
	return &postgresEloHistoryRepository{db: db}
}

func (r *postgresEloHistoryRepository) exec(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresEloHistoryRepository) Create(ctx context.Context, exec SQLExecutor, entry *models.EloHistory) error {
	query := `
		INSERT INTO elo_history (player_id, old_elo, new_elo, change_reason)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.exec(exec).QueryRowContext(ctx, query,
		entry.PlayerID, entry.OldElo, entry.NewElo, entry.ChangeReason,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create elo history for player %d: %w", entry.PlayerID, err)
	}
	return nil
}

func (r *postgresEloHistoryRepository) ListByPlayer(ctx context.Context, exec SQLExecutor, playerID int) ([]*models.EloHistory, error) {
	query := `
		SELECT id, player_id, old_elo, new_elo, change_reason, created_at
		FROM elo_history
		WHERE player_id = $1
		ORDER BY created_at DESC, id DESC`

	rows, err := r.exec(exec).QueryContext(ctx, query, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query elo history for player %d: %w", playerID, err)
	}
	defer rows.Close()

	entries := make([]*models.EloHistory, 0)
	for rows.Next() {
		var e models.EloHistory
		if scanErr := rows.Scan(&e.ID, &e.PlayerID, &e.OldElo, &e.NewElo, &e.ChangeReason, &e.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan elo history row: %w", scanErr)
		}
		entries = append(entries, &e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during elo history rows iteration: %w", err)
	}
	return entries, nil
}
