package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/openbracket/progression-engine/models"
)

var ErrSwissBracketNotFound = errors.New("swiss bracket not found")

type SwissBracketRepository interface {
	Create(ctx context.Context, exec SQLExecutor, bracket *models.SwissBracket) error
	GetByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (*models.SwissBracket, error)
	// GetByTournamentForUpdate locks the bracket row so that concurrent
	// completions of the last matches in a round cannot both trigger the
	// round transition.
	GetByTournamentForUpdate(ctx context.Context, exec SQLExecutor, tournamentID int) (*models.SwissBracket, error)
	IncrementCurrentRound(ctx context.Context, exec SQLExecutor, bracketID int) error
}

type postgresSwissBracketRepository struct {
	db *sql.DB
}

func NewPostgresSwissBracketRepository(db *sql.DB) SwissBracketRepository {
	return &postgresSwissBracketRepository{db: db}
}

func (r *postgresSwissBracketRepository) exec(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresSwissBracketRepository) Create(ctx context.Context, exec SQLExecutor, bracket *models.SwissBracket) error {
	query := `
		INSERT INTO swiss_brackets (tournament_id, number_of_rounds, current_round)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.exec(exec).QueryRowContext(ctx, query,
		bracket.TournamentID,
		bracket.NumberOfRounds,
		bracket.CurrentRound,
	).Scan(&bracket.ID, &bracket.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create swiss bracket for tournament %d: %w", bracket.TournamentID, err)
	}
	return nil
}

func (r *postgresSwissBracketRepository) getByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, forUpdate bool) (*models.SwissBracket, error) {
	query := `
		SELECT id, tournament_id, number_of_rounds, current_round, created_at
		FROM swiss_brackets
		WHERE tournament_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var b models.SwissBracket
	err := r.exec(exec).QueryRowContext(ctx, query, tournamentID).Scan(
		&b.ID, &b.TournamentID, &b.NumberOfRounds, &b.CurrentRound, &b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSwissBracketNotFound
		}
		return nil, fmt.Errorf("failed to scan swiss bracket for tournament %d: %w", tournamentID, err)
	}
	return &b, nil
}

func (r *postgresSwissBracketRepository) GetByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (*models.SwissBracket, error) {
	return r.getByTournament(ctx, exec, tournamentID, false)
}

func (r *postgresSwissBracketRepository) GetByTournamentForUpdate(ctx context.Context, exec SQLExecutor, tournamentID int) (*models.SwissBracket, error) {
	return r.getByTournament(ctx, exec, tournamentID, true)
}

func (r *postgresSwissBracketRepository) IncrementCurrentRound(ctx context.Context, exec SQLExecutor, bracketID int) error {
	query := `UPDATE swiss_brackets SET current_round = current_round + 1 WHERE id = $1`
	result, err := r.exec(exec).ExecContext(ctx, query, bracketID)
	if err != nil {
		return fmt.Errorf("failed to increment current round for bracket %d: %w", bracketID, err)
	}
	return checkAffectedRows(result, ErrSwissBracketNotFound)
}
