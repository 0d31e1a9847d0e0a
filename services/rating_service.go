package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/openbracket/progression-engine/clients"
	"github.com/openbracket/progression-engine/models"
	"github.com/openbracket/progression-engine/ratings"
	"github.com/openbracket/progression-engine/repositories"
)

type RatingService interface {
	// UpdateMatchElo recomputes both players' ratings for a decided match,
	// records the change in elo history and enqueues the pushes to the rating
	// store and the leaderboard. Delivery happens via the outbox dispatcher.
	UpdateMatchElo(ctx context.Context, winnerID, loserID int) error
	GetPlayerHistory(ctx context.Context, playerID int) ([]*models.EloHistory, error)
}

type ratingService struct {
	txRunner    repositories.TxRunner
	historyRepo repositories.EloHistoryRepository
	outboxRepo  repositories.OutboxRepository
	rating      clients.RatingClient
	logger      *slog.Logger
}

func NewRatingService(
	txRunner repositories.TxRunner,
	historyRepo repositories.EloHistoryRepository,
	outboxRepo repositories.OutboxRepository,
	rating clients.RatingClient,
	logger *slog.Logger,
) RatingService {
	return &ratingService{
		txRunner:    txRunner,
		historyRepo: historyRepo,
		outboxRepo:  outboxRepo,
		rating:      rating,
		logger:      logger,
	}
}

func (s *ratingService) UpdateMatchElo(ctx context.Context, winnerID, loserID int) error {
	var winnerElo, loserElo int

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		elo, err := s.rating.GetRating(gCtx, winnerID)
		if err != nil {
			return fmt.Errorf("failed to fetch rating for player %d: %w", winnerID, err)
		}
		winnerElo = elo
		return nil
	})
	g.Go(func() error {
		elo, err := s.rating.GetRating(gCtx, loserID)
		if err != nil {
			return fmt.Errorf("failed to fetch rating for player %d: %w", loserID, err)
		}
		loserElo = elo
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	newWinnerElo, newLoserElo := ratings.CalculateEloChange(winnerElo, loserElo)

	err := s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		entries := []*models.EloHistory{
			{PlayerID: winnerID, OldElo: winnerElo, NewElo: newWinnerElo, ChangeReason: models.EloChangeWin},
			{PlayerID: loserID, OldElo: loserElo, NewElo: newLoserElo, ChangeReason: models.EloChangeLoss},
		}
		for _, entry := range entries {
			if err := s.historyRepo.Create(ctx, exec, entry); err != nil {
				return err
			}
			payload, err := json.Marshal(models.RatingPushPayload{PlayerID: entry.PlayerID, NewElo: entry.NewElo})
			if err != nil {
				return fmt.Errorf("failed to marshal rating push payload: %w", err)
			}
			for _, kind := range []models.OutboxEventKind{models.OutboxRatingPush, models.OutboxLeaderboardPush} {
				event := &models.OutboxEvent{
					ID:      uuid.NewString(),
					Kind:    kind,
					Payload: payload,
					Status:  models.OutboxStatusPending,
				}
				if err := s.outboxRepo.Enqueue(ctx, exec, event); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("elo ratings updated",
		slog.Int("winner_id", winnerID),
		slog.Int("winner_elo", newWinnerElo),
		slog.Int("loser_id", loserID),
		slog.Int("loser_elo", newLoserElo))
	return nil
}

func (s *ratingService) GetPlayerHistory(ctx context.Context, playerID int) ([]*models.EloHistory, error) {
	var history []*models.EloHistory
	err := s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		var txErr error
		history, txErr = s.historyRepo.ListByPlayer(ctx, exec, playerID)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return history, nil
}
