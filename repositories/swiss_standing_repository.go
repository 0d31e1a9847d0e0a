package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/openbracket/progression-engine/models"
)

var ErrSwissStandingNotFound = errors.New("swiss standing not found")

type SwissStandingRepository interface {
	BatchCreate(ctx context.Context, exec SQLExecutor, standings []*models.SwissStanding) error
	GetByBracketAndPlayer(ctx context.Context, exec SQLExecutor, bracketID, playerID int) (*models.SwissStanding, error)
	Update(ctx context.Context, exec SQLExecutor, standing *models.SwissStanding) error
	ListByBracket(ctx context.Context, exec SQLExecutor, bracketID int) ([]*models.SwissStanding, error)
}

type postgresSwissStandingRepository struct {
	db *sql.DB
}

func NewPostgresSwissStandingRepository(db *sql.DB) SwissStandingRepository {
	return &postgresSwissStandingRepository{db: db}
}

func (r *postgresSwissStandingRepository) exec(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresSwissStandingRepository) BatchCreate(ctx context.Context, exec SQLExecutor, standings []*models.SwissStanding) error {
	if len(standings) == 0 {
		return nil
	}
	query := `
		INSERT INTO swiss_standings (bracket_id, player_id, wins, losses)
		VALUES ($1, $2, $3, $4)
		RETURNING id, updated_at`

	for _, standing := range standings {
		err := r.exec(exec).QueryRowContext(ctx, query,
			standing.BracketID, standing.PlayerID, standing.Wins, standing.Losses,
		).Scan(&standing.ID, &standing.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create standing for player %d: %w", standing.PlayerID, err)
		}
	}
	return nil
}

func scanStanding(rowScanner interface{ Scan(...interface{}) error }) (*models.SwissStanding, error) {
	var s models.SwissStanding
	err := rowScanner.Scan(&s.ID, &s.BracketID, &s.PlayerID, &s.Wins, &s.Losses, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSwissStandingNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *postgresSwissStandingRepository) GetByBracketAndPlayer(ctx context.Context, exec SQLExecutor, bracketID, playerID int) (*models.SwissStanding, error) {
	query := `
		SELECT id, bracket_id, player_id, wins, losses, updated_at
		FROM swiss_standings
		WHERE bracket_id = $1 AND player_id = $2`
	return scanStanding(r.exec(exec).QueryRowContext(ctx, query, bracketID, playerID))
}

func (r *postgresSwissStandingRepository) Update(ctx context.Context, exec SQLExecutor, standing *models.SwissStanding) error {
	query := `
		UPDATE swiss_standings
		SET wins = $1, losses = $2, updated_at = NOW()
		WHERE id = $3`
	result, err := r.exec(exec).ExecContext(ctx, query, standing.Wins, standing.Losses, standing.ID)
	if err != nil {
		return fmt.Errorf("failed to update standing %d: %w", standing.ID, err)
	}
	return checkAffectedRows(result, ErrSwissStandingNotFound)
}

func (r *postgresSwissStandingRepository) ListByBracket(ctx context.Context, exec SQLExecutor, bracketID int) ([]*models.SwissStanding, error) {
	// Ordered by id so repeated reads produce the same base order; ranking is
	// applied in memory by the standings package.
	query := `
		SELECT id, bracket_id, player_id, wins, losses, updated_at
		FROM swiss_standings
		WHERE bracket_id = $1
		ORDER BY id ASC`

	rows, err := r.exec(exec).QueryContext(ctx, query, bracketID)
	if err != nil {
		return nil, fmt.Errorf("failed to query standings for bracket %d: %w", bracketID, err)
	}
	defer rows.Close()

	standings := make([]*models.SwissStanding, 0)
	for rows.Next() {
		s, scanErr := scanStanding(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan standing row: %w", scanErr)
		}
		standings = append(standings, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during standing rows iteration: %w", err)
	}
	return standings, nil
}
