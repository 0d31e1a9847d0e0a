package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/openbracket/progression-engine/models"
)

var (
	ErrMatchNotFound          = errors.New("match not found")
	ErrMatchTournamentInvalid = errors.New("match tournament conflict or invalid")
	ErrMatchRoundTypeInvalid  = errors.New("match round type conflict or invalid")
	ErrMatchGameTypeInvalid   = errors.New("match game type conflict or invalid")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	// GetByIDForUpdate locks the match row for the duration of the enclosing
	// transaction. Concurrent sibling completions writing into the same
	// downstream match serialize on this lock.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Match, error)
	ListBySwissRound(ctx context.Context, exec SQLExecutor, tournamentID, swissRound int) ([]*models.Match, error)
	UpdateResult(ctx context.Context, exec SQLExecutor, id int, winnerID, loserID int, updatedAt time.Time) error
	UpdatePlayers(ctx context.Context, exec SQLExecutor, id int, player1ID, player2ID *int) error
	UpdateNextMatchID(ctx context.Context, exec SQLExecutor, id int, nextMatchID *int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) exec(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `
	m.id, m.tournament_id, m.player1_id, m.player2_id, m.winner_id, m.loser_id,
	m.round_type_id, m.game_type_id, m.swiss_round_number, m.next_match_id,
	m.status, m.created_at, m.updated_at,
	rt.id, rt.name, rt.number_of_players`

const matchFrom = `
	FROM matches m
	JOIN round_types rt ON rt.id = m.round_type_id`

func scanMatch(rowScanner interface{ Scan(...interface{}) error }) (*models.Match, error) {
	var m models.Match
	var rt models.RoundType
	err := rowScanner.Scan(
		&m.ID, &m.TournamentID, &m.Player1ID, &m.Player2ID, &m.WinnerID, &m.LoserID,
		&m.RoundTypeID, &m.GameTypeID, &m.SwissRoundNumber, &m.NextMatchID,
		&m.Status, &m.CreatedAt, &m.UpdatedAt,
		&rt.ID, &rt.Name, &rt.NumberOfPlayers,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	m.RoundType = &rt
	return &m, nil
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		INSERT INTO matches
			(tournament_id, player1_id, player2_id, winner_id, loser_id,
			 round_type_id, game_type_id, swiss_round_number, next_match_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	err := r.exec(exec).QueryRowContext(ctx, query,
		match.TournamentID,
		match.Player1ID,
		match.Player2ID,
		match.WinnerID,
		match.LoserID,
		match.RoundTypeID,
		match.GameTypeID,
		match.SwissRoundNumber,
		match.NextMatchID,
		match.Status,
	).Scan(&match.ID, &match.CreatedAt, &match.UpdatedAt)

	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	query := `SELECT` + matchColumns + matchFrom + ` WHERE m.id = $1`
	return scanMatch(r.exec(exec).QueryRowContext(ctx, query, id))
}

func (r *postgresMatchRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	query := `SELECT` + matchColumns + matchFrom + ` WHERE m.id = $1 FOR UPDATE OF m`
	return scanMatch(r.exec(exec).QueryRowContext(ctx, query, id))
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Match, error) {
	query := `SELECT` + matchColumns + matchFrom + `
		WHERE m.tournament_id = $1
		ORDER BY m.id ASC`
	return r.list(ctx, exec, query, tournamentID)
}

func (r *postgresMatchRepository) ListBySwissRound(ctx context.Context, exec SQLExecutor, tournamentID, swissRound int) ([]*models.Match, error) {
	query := `SELECT` + matchColumns + matchFrom + `
		WHERE m.tournament_id = $1 AND m.swiss_round_number = $2
		ORDER BY m.id ASC`
	return r.list(ctx, exec, query, tournamentID, swissRound)
}

func (r *postgresMatchRepository) list(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]*models.Match, error) {
	rows, err := r.exec(exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) UpdateResult(ctx context.Context, exec SQLExecutor, id int, winnerID, loserID int, updatedAt time.Time) error {
	query := `
		UPDATE matches
		SET winner_id = $1, loser_id = $2, status = $3, updated_at = $4
		WHERE id = $5`

	result, err := r.exec(exec).ExecContext(ctx, query, winnerID, loserID, models.MatchStatusCompleted, updatedAt, id)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdatePlayers(ctx context.Context, exec SQLExecutor, id int, player1ID, player2ID *int) error {
	query := `UPDATE matches SET player1_id = $1, player2_id = $2, updated_at = NOW() WHERE id = $3`
	result, err := r.exec(exec).ExecContext(ctx, query, player1ID, player2ID, id)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateNextMatchID(ctx context.Context, exec SQLExecutor, id int, nextMatchID *int) error {
	query := `UPDATE matches SET next_match_id = $1 WHERE id = $2`
	result, err := r.exec(exec).ExecContext(ctx, query, nextMatchID, id)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Constraint {
		case "matches_tournament_id_fkey":
			return ErrMatchTournamentInvalid
		case "matches_round_type_id_fkey":
			return ErrMatchRoundTypeInvalid
		case "matches_game_type_id_fkey":
			return ErrMatchGameTypeInvalid
		}
	}
	return err
}
