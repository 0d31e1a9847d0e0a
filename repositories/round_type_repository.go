package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/openbracket/progression-engine/models"
)

var ErrRoundTypeNotFound = errors.New("round type not found")

type RoundTypeRepository interface {
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.RoundType, error)
	// GetByCapacity selects the stage whose player capacity matches exactly:
	// 8 players resolve to "Quarterfinal", 2 to "Final".
	GetByCapacity(ctx context.Context, exec SQLExecutor, numberOfPlayers int) (*models.RoundType, error)
	GetByName(ctx context.Context, exec SQLExecutor, name string) (*models.RoundType, error)
}

type postgresRoundTypeRepository struct {
	db *sql.DB
}

func NewPostgresRoundTypeRepository(db *sql.DB) RoundTypeRepository {
	return &postgresRoundTypeRepository{db: db}
}

func (r *postgresRoundTypeRepository) exec(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresRoundTypeRepository) getOne(ctx context.Context, exec SQLExecutor, query string, arg interface{}) (*models.RoundType, error) {
	var rt models.RoundType
	err := r.exec(exec).QueryRowContext(ctx, query, arg).Scan(&rt.ID, &rt.Name, &rt.NumberOfPlayers)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoundTypeNotFound
		}
		return nil, fmt.Errorf("failed to scan round type: %w", err)
	}
	return &rt, nil
}

func (r *postgresRoundTypeRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.RoundType, error) {
	return r.getOne(ctx, exec, `SELECT id, name, number_of_players FROM round_types WHERE id = $1`, id)
}

func (r *postgresRoundTypeRepository) GetByCapacity(ctx context.Context, exec SQLExecutor, numberOfPlayers int) (*models.RoundType, error) {
	return r.getOne(ctx, exec,
		`SELECT id, name, number_of_players FROM round_types WHERE number_of_players = $1 AND name <> '`+models.SwissRoundTypeName+`'`,
		numberOfPlayers)
}

func (r *postgresRoundTypeRepository) GetByName(ctx context.Context, exec SQLExecutor, name string) (*models.RoundType, error) {
	return r.getOne(ctx, exec, `SELECT id, name, number_of_players FROM round_types WHERE name = $1`, name)
}
