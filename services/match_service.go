package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/openbracket/progression-engine/brackets"
	"github.com/openbracket/progression-engine/models"
	"github.com/openbracket/progression-engine/repositories"
	"github.com/openbracket/progression-engine/standings"
)

const (
	msgSwissStandingsUpdated = "Swiss standings updated"
	msgSwissToKnockout       = "Swiss rounds completed, moving to knockout phase."
	msgSwissRoundAdvanced    = "Advanced to Swiss Round %d"
	msgTournamentCompleted   = "Tournament completed"
	msgRoundAdvanced         = "Tournament has advanced to the next round"
	msgWinnerAdvanced        = "Winner advanced to the next round"
)

// EventSink receives progression events for live subscribers. *brackets.Hub
// satisfies it.
type EventSink interface {
	BroadcastEvent(event brackets.ProgressionEvent)
}

// DeliveryKicker wakes the outbox dispatcher so freshly enqueued events go out
// without waiting for the next tick.
type DeliveryKicker interface {
	Kick()
}

type MatchService interface {
	// AdvanceWinner records the result of a match and drives every transition
	// that follows from it: winner propagation in a knockout tree, Swiss
	// standings and round/phase transitions, and tournament completion. The
	// returned message describes what happened.
	AdvanceWinner(ctx context.Context, matchID, winnerID int) (string, error)
	GetMatch(ctx context.Context, matchID int) (*models.Match, error)
}

type matchService struct {
	txRunner         repositories.TxRunner
	matchRepo        repositories.MatchRepository
	swissBracketRepo repositories.SwissBracketRepository
	standingRepo     repositories.SwissStandingRepository
	outboxRepo       repositories.OutboxRepository
	bracketService   BracketService
	ratingService    RatingService
	hub              EventSink
	dispatcher       DeliveryKicker
	logger           *slog.Logger
}

func NewMatchService(
	txRunner repositories.TxRunner,
	matchRepo repositories.MatchRepository,
	swissBracketRepo repositories.SwissBracketRepository,
	standingRepo repositories.SwissStandingRepository,
	outboxRepo repositories.OutboxRepository,
	bracketService BracketService,
	ratingService RatingService,
	hub EventSink,
	dispatcher DeliveryKicker,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		txRunner:         txRunner,
		matchRepo:        matchRepo,
		swissBracketRepo: swissBracketRepo,
		standingRepo:     standingRepo,
		outboxRepo:       outboxRepo,
		bracketService:   bracketService,
		ratingService:    ratingService,
		hub:              hub,
		dispatcher:       dispatcher,
		logger:           logger,
	}
}

func (s *matchService) GetMatch(ctx context.Context, matchID int) (*models.Match, error) {
	var match *models.Match
	err := s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		var txErr error
		match, txErr = s.matchRepo.GetByID(ctx, exec, matchID)
		if errors.Is(txErr, repositories.ErrMatchNotFound) {
			return ErrMatchNotFound
		}
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return match, nil
}

func (s *matchService) AdvanceWinner(ctx context.Context, matchID, winnerID int) (string, error) {
	var (
		message string
		loserID int
		events  []brackets.ProgressionEvent
		pushed  bool
	)

	err := s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		match, err := s.matchRepo.GetByIDForUpdate(ctx, exec, matchID)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return ErrMatchNotFound
			}
			return err
		}
		if match.Status == models.MatchStatusCompleted {
			return ErrMatchAlreadyCompleted
		}
		if !match.HasPlayer(winnerID) {
			return ErrPlayerNotInMatch
		}
		loser := match.OtherPlayer(winnerID)
		if loser == nil {
			return ErrMatchNotReady
		}
		loserID = *loser

		now := time.Now().UTC()
		if err := s.matchRepo.UpdateResult(ctx, exec, match.ID, winnerID, loserID, now); err != nil {
			return err
		}
		pushed = true

		events = append(events, brackets.ProgressionEvent{
			Type:         brackets.EventMatchCompleted,
			TournamentID: match.TournamentID,
			Payload: map[string]int{
				"match_id":  match.ID,
				"winner_id": winnerID,
				"loser_id":  loserID,
			},
		})

		if match.IsKnockout() {
			message, err = s.advanceKnockout(ctx, exec, match, winnerID, &events)
		} else {
			message, err = s.advanceSwiss(ctx, exec, match, winnerID, loserID, &events)
		}
		return err
	})
	if err != nil {
		return "", err
	}

	// Rating adjustment runs after the match result is committed; a failure
	// here must not undo the result, it only gets logged and can be replayed
	// from elo history.
	if pushed {
		if err := s.ratingService.UpdateMatchElo(ctx, winnerID, loserID); err != nil {
			s.logger.Error("elo update failed after match completion",
				slog.Int("match_id", matchID),
				slog.Int("winner_id", winnerID),
				slog.Any("error", err))
		}
	}

	if s.hub != nil {
		for _, ev := range events {
			s.hub.BroadcastEvent(ev)
		}
	}
	if s.dispatcher != nil {
		s.dispatcher.Kick()
	}
	return message, nil
}

// advanceKnockout propagates the winner to the downstream match, or completes
// the tournament when the final was just decided.
func (s *matchService) advanceKnockout(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, winnerID int, events *[]brackets.ProgressionEvent) (string, error) {
	if match.NextMatchID == nil {
		if err := s.enqueue(ctx, exec, models.OutboxTournamentCompleted, models.TournamentCompletedPayload{
			TournamentID: match.TournamentID,
			WinnerID:     winnerID,
		}); err != nil {
			return "", err
		}
		*events = append(*events, brackets.ProgressionEvent{
			Type:         brackets.EventTournamentCompleted,
			TournamentID: match.TournamentID,
			Payload:      map[string]int{"winner_id": winnerID},
		})
		s.logger.Info("tournament completed",
			slog.Int("tournament_id", match.TournamentID),
			slog.Int("winner_id", winnerID))
		return msgTournamentCompleted, nil
	}

	// The downstream match row is locked so that the sibling match completing
	// at the same moment cannot claim the same slot.
	next, err := s.matchRepo.GetByIDForUpdate(ctx, exec, *match.NextMatchID)
	if err != nil {
		return "", err
	}

	switch {
	case next.Player1ID == nil:
		next.Player1ID = &winnerID
	case next.Player2ID == nil:
		next.Player2ID = &winnerID
	default:
		return "", fmt.Errorf("next match %d already has both players", next.ID)
	}
	if err := s.matchRepo.UpdatePlayers(ctx, exec, next.ID, next.Player1ID, next.Player2ID); err != nil {
		return "", err
	}

	if next.Player1ID != nil && next.Player2ID != nil {
		*events = append(*events, brackets.ProgressionEvent{
			Type:         brackets.EventRoundAdvanced,
			TournamentID: match.TournamentID,
			Payload:      map[string]int{"next_match_id": next.ID},
		})
		return msgWinnerAdvanced, nil
	}
	return msgRoundAdvanced, nil
}

// advanceSwiss updates the standings and, when this result closed the current
// round, moves to the next round or hands the top half over to the knockout
// phase.
func (s *matchService) advanceSwiss(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, winnerID, loserID int, events *[]brackets.ProgressionEvent) (string, error) {
	// Locking the bracket row serializes the last two matches of a round
	// finishing concurrently; only one of them observes the round complete.
	bracket, err := s.swissBracketRepo.GetByTournamentForUpdate(ctx, exec, match.TournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrSwissBracketNotFound) {
			return "", ErrSwissBracketNotFound
		}
		return "", err
	}

	if err := s.recordStanding(ctx, exec, bracket.ID, winnerID, true); err != nil {
		return "", err
	}
	if err := s.recordStanding(ctx, exec, bracket.ID, loserID, false); err != nil {
		return "", err
	}

	roundMatches, err := s.matchRepo.ListBySwissRound(ctx, exec, match.TournamentID, bracket.CurrentRound)
	if err != nil {
		return "", err
	}
	for _, m := range roundMatches {
		if m.Status != models.MatchStatusCompleted {
			return msgSwissStandingsUpdated, nil
		}
	}

	ranked, err := s.standingRepo.ListByBracket(ctx, exec, bracket.ID)
	if err != nil {
		return "", err
	}
	ranked = standings.RankedOrder(ranked)

	if bracket.CurrentRound >= bracket.NumberOfRounds {
		return s.moveToKnockout(ctx, exec, match, bracket, ranked, events)
	}

	nextRound := bracket.CurrentRound + 1
	if err := s.swissBracketRepo.IncrementCurrentRound(ctx, exec, bracket.ID); err != nil {
		return "", err
	}
	if err := s.createSwissRound(ctx, exec, match, nextRound, standings.PlayerIDs(ranked)); err != nil {
		return "", err
	}

	*events = append(*events, brackets.ProgressionEvent{
		Type:         brackets.EventRoundAdvanced,
		TournamentID: match.TournamentID,
		Payload:      map[string]int{"swiss_round": nextRound},
	})
	s.logger.Info("swiss round advanced",
		slog.Int("tournament_id", match.TournamentID),
		slog.Int("round", nextRound))
	return fmt.Sprintf(msgSwissRoundAdvanced, nextRound), nil
}

func (s *matchService) recordStanding(ctx context.Context, exec repositories.SQLExecutor, bracketID, playerID int, won bool) error {
	standing, err := s.standingRepo.GetByBracketAndPlayer(ctx, exec, bracketID, playerID)
	if err != nil {
		return err
	}
	standings.RecordResult(standing, won)
	return s.standingRepo.Update(ctx, exec, standing)
}

// createSwissRound pairs the ranked players for the next round, skipping
// rematches where the field allows it.
func (s *matchService) createSwissRound(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, round int, ordered []int) error {
	all, err := s.matchRepo.ListByTournament(ctx, exec, match.TournamentID)
	if err != nil {
		return err
	}
	met := make(map[[2]int]bool)
	for _, m := range all {
		if m.IsKnockout() || m.Player1ID == nil || m.Player2ID == nil {
			continue
		}
		met[brackets.MeetingKey(*m.Player1ID, *m.Player2ID)] = true
	}

	for _, pair := range brackets.PlanSwissRound(ordered, met) {
		p1, p2 := pair.Player1ID, pair.Player2ID
		roundNumber := round
		next := &models.Match{
			TournamentID:     match.TournamentID,
			Player1ID:        &p1,
			Player2ID:        &p2,
			RoundTypeID:      match.RoundTypeID,
			GameTypeID:       match.GameTypeID,
			SwissRoundNumber: &roundNumber,
			Status:           models.MatchStatusPending,
		}
		if err := s.matchRepo.Create(ctx, exec, next); err != nil {
			return fmt.Errorf("failed to persist swiss round %d match: %w", round, err)
		}
	}
	return nil
}

// moveToKnockout promotes the top half of the final standings into an
// elimination stage, inside the same transaction that closed the last Swiss
// round.
func (s *matchService) moveToKnockout(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, bracket *models.SwissBracket, ranked []*models.SwissStanding, events *[]brackets.ProgressionEvent) (string, error) {
	advanceCount := len(ranked) / 2
	if advanceCount < 2 {
		advanceCount = 2
	}
	if advanceCount > len(ranked) {
		advanceCount = len(ranked)
	}
	advanced := standings.PlayerIDs(ranked[:advanceCount])

	entryRoundTypeID, err := s.bracketService.CreateKnockoutMatchesTx(ctx, exec, match.TournamentID, match.GameTypeID, advanced)
	if err != nil {
		return "", err
	}

	if err := s.enqueue(ctx, exec, models.OutboxRoundAdvanced, models.RoundAdvancedPayload{
		TournamentID: match.TournamentID,
		RoundTypeID:  entryRoundTypeID,
	}); err != nil {
		return "", err
	}

	*events = append(*events, brackets.ProgressionEvent{
		Type:         brackets.EventPhaseChanged,
		TournamentID: match.TournamentID,
		Payload: map[string]interface{}{
			"phase":               "knockout",
			"round_type_id":       entryRoundTypeID,
			"advanced_player_ids": advanced,
		},
	})
	s.logger.Info("swiss phase completed",
		slog.Int("tournament_id", match.TournamentID),
		slog.Int("bracket_id", bracket.ID),
		slog.Int("advanced", len(advanced)))
	return msgSwissToKnockout, nil
}

func (s *matchService) enqueue(ctx context.Context, exec repositories.SQLExecutor, kind models.OutboxEventKind, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}
	return s.outboxRepo.Enqueue(ctx, exec, &models.OutboxEvent{
		ID:      uuid.NewString(),
		Kind:    kind,
		Payload: body,
		Status:  models.OutboxStatusPending,
	})
}
