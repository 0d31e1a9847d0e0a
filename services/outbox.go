package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/openbracket/progression-engine/clients"
	"github.com/openbracket/progression-engine/models"
	"github.com/openbracket/progression-engine/repositories"
)

const (
	defaultOutboxBatchSize   = 50
	defaultOutboxMaxAttempts = 5
)

// OutboxDispatcher drains pending outbox events and delivers them to the
// external services. Events stay pending on failure and are retried on the
// next tick, so collaborators see at-least-once delivery.
type OutboxDispatcher struct {
	txRunner    repositories.TxRunner
	outboxRepo  repositories.OutboxRepository
	rating      clients.RatingClient
	leaderboard clients.LeaderboardClient
	tournament  clients.TournamentClient
	interval    time.Duration
	maxAttempts int
	logger      *slog.Logger
	kick        chan struct{}
}

func NewOutboxDispatcher(
	txRunner repositories.TxRunner,
	outboxRepo repositories.OutboxRepository,
	rating clients.RatingClient,
	leaderboard clients.LeaderboardClient,
	tournament clients.TournamentClient,
	interval time.Duration,
	logger *slog.Logger,
) *OutboxDispatcher {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &OutboxDispatcher{
		txRunner:    txRunner,
		outboxRepo:  outboxRepo,
		rating:      rating,
		leaderboard: leaderboard,
		tournament:  tournament,
		interval:    interval,
		maxAttempts: defaultOutboxMaxAttempts,
		logger:      logger,
		kick:        make(chan struct{}, 1),
	}
}

// Kick schedules an immediate flush. Non-blocking; a flush is already pending
// when the channel is full.
func (d *OutboxDispatcher) Kick() {
	select {
	case d.kick <- struct{}{}:
	default:
	}
}

// Run delivers until ctx is cancelled. Call it on its own goroutine.
func (d *OutboxDispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-d.kick:
		}
		if err := d.Flush(ctx); err != nil {
			d.logger.Error("outbox flush failed", slog.Any("error", err))
		}
	}
}

// Flush claims a batch of pending events and attempts delivery for each.
func (d *OutboxDispatcher) Flush(ctx context.Context) error {
	return d.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		events, err := d.outboxRepo.ListPending(ctx, exec, defaultOutboxBatchSize)
		if err != nil {
			return err
		}
		for _, event := range events {
			if err := d.deliver(ctx, event); err != nil {
				attempts := event.Attempts + 1
				terminal := attempts >= d.maxAttempts
				if markErr := d.outboxRepo.MarkFailed(ctx, exec, event.ID, attempts, err.Error(), terminal); markErr != nil {
					return markErr
				}
				d.logger.Warn("outbox delivery failed",
					slog.String("event_id", event.ID),
					slog.String("kind", string(event.Kind)),
					slog.Int("attempts", attempts),
					slog.Bool("terminal", terminal),
					slog.Any("error", err))
				continue
			}
			if err := d.outboxRepo.MarkDelivered(ctx, exec, event.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (d *OutboxDispatcher) deliver(ctx context.Context, event *models.OutboxEvent) error {
	switch event.Kind {
	case models.OutboxRatingPush:
		var p models.RatingPushPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			return fmt.Errorf("bad rating push payload: %w", err)
		}
		return d.rating.PushRating(ctx, p.PlayerID, p.NewElo)
	case models.OutboxLeaderboardPush:
		var p models.RatingPushPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			return fmt.Errorf("bad leaderboard push payload: %w", err)
		}
		return d.leaderboard.PushEntry(ctx, p.PlayerID, p.NewElo)
	case models.OutboxRoundAdvanced:
		var p models.RoundAdvancedPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			return fmt.Errorf("bad round advanced payload: %w", err)
		}
		return d.tournament.NotifyRoundAdvanced(ctx, p.TournamentID, p.RoundTypeID)
	case models.OutboxTournamentCompleted:
		var p models.TournamentCompletedPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			return fmt.Errorf("bad tournament completed payload: %w", err)
		}
		return d.tournament.NotifyCompleted(ctx, p.TournamentID, p.WinnerID)
	default:
		return fmt.Errorf("unknown outbox event kind %q", event.Kind)
	}
}
