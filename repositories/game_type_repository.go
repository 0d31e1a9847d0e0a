package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/openbracket/progression-engine/models"
)

var ErrGameTypeNotFound = errors.New("game type not found")

type GameTypeRepository interface {
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.GameType, error)
}

type postgresGameTypeRepository struct {
	db *sql.DB
}

func NewPostgresGameTypeRepository(db *sql.DB) GameTypeRepository {
	return &postgresGameTypeRepository{db: db}
}

func (r *postgresGameTypeRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.GameType, error) {
	executor := SQLExecutor(r.db)
	if exec != nil {
		executor = exec
	}

	var gt models.GameType
	err := executor.QueryRowContext(ctx, `SELECT id, name FROM game_types WHERE id = $1`, id).
		Scan(&gt.ID, &gt.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGameTypeNotFound
		}
		return nil, fmt.Errorf("failed to scan game type %d: %w", id, err)
	}
	return &gt, nil
}
