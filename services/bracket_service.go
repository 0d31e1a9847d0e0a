package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/openbracket/progression-engine/brackets"
	"github.com/openbracket/progression-engine/clients"
	"github.com/openbracket/progression-engine/models"
	"github.com/openbracket/progression-engine/repositories"
)

// BracketView is the read model for a tournament's full bracket state.
type BracketView struct {
	TournamentID int                     `json:"tournament_id"`
	Matches      []*models.Match         `json:"matches"`
	SwissBracket *models.SwissBracket    `json:"swiss_bracket,omitempty"`
	Standings    []*models.SwissStanding `json:"standings,omitempty"`
}

type BracketService interface {
	// CreateKnockoutMatches builds the elimination stage for a tournament.
	// With advancedPlayerIDs nil the full roster is seeded; otherwise only
	// the named players (players promoted out of a prior stage). Returns the
	// RoundType id of the entry stage.
	CreateKnockoutMatches(ctx context.Context, tournamentID, gameTypeID int, advancedPlayerIDs []int) (int, error)
	// CreateKnockoutMatchesTx is CreateKnockoutMatches inside a transaction
	// owned by the caller; the Swiss-to-knockout transition uses it so the
	// phase change commits atomically with the round-completion check.
	CreateKnockoutMatchesTx(ctx context.Context, exec repositories.SQLExecutor, tournamentID, gameTypeID int, advancedPlayerIDs []int) (int, error)
	// CreateSwissMatches builds a Swiss bracket with its standings and the
	// first round of pairings. Returns the bracket id.
	CreateSwissMatches(ctx context.Context, tournamentID, gameTypeID int) (int, error)
	GetBracketView(ctx context.Context, tournamentID int) (*BracketView, error)
}

type bracketService struct {
	txRunner         repositories.TxRunner
	roster           clients.RosterClient
	matchRepo        repositories.MatchRepository
	roundTypeRepo    repositories.RoundTypeRepository
	gameTypeRepo     repositories.GameTypeRepository
	swissBracketRepo repositories.SwissBracketRepository
	standingRepo     repositories.SwissStandingRepository
	logger           *slog.Logger
}

func NewBracketService(
	txRunner repositories.TxRunner,
	roster clients.RosterClient,
	matchRepo repositories.MatchRepository,
	roundTypeRepo repositories.RoundTypeRepository,
	gameTypeRepo repositories.GameTypeRepository,
	swissBracketRepo repositories.SwissBracketRepository,
	standingRepo repositories.SwissStandingRepository,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		txRunner:         txRunner,
		roster:           roster,
		matchRepo:        matchRepo,
		roundTypeRepo:    roundTypeRepo,
		gameTypeRepo:     gameTypeRepo,
		swissBracketRepo: swissBracketRepo,
		standingRepo:     standingRepo,
		logger:           logger,
	}
}

// loadField resolves the players taking part in the stage being built. With
// advancedPlayerIDs set, ratings still come from the roster source.
func (s *bracketService) loadField(ctx context.Context, tournamentID int, advancedPlayerIDs []int) ([]models.PlayerRating, error) {
	roster, err := s.roster.ListRatings(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roster for tournament %d: %w", tournamentID, err)
	}

	if advancedPlayerIDs == nil {
		field := make([]models.PlayerRating, len(roster))
		for i, p := range roster {
			field[i] = models.PlayerRating{PlayerID: p.PlayerID, Elo: p.EloRating}
		}
		return field, nil
	}

	byID := make(map[int]int, len(roster))
	for _, p := range roster {
		byID[p.PlayerID] = p.EloRating
	}
	field := make([]models.PlayerRating, 0, len(advancedPlayerIDs))
	for _, id := range advancedPlayerIDs {
		elo, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: player %d", ErrPlayerNotInRoster, id)
		}
		field = append(field, models.PlayerRating{PlayerID: id, Elo: elo})
	}
	return field, nil
}

func (s *bracketService) CreateKnockoutMatches(ctx context.Context, tournamentID, gameTypeID int, advancedPlayerIDs []int) (int, error) {
	var roundTypeID int
	err := s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		var txErr error
		roundTypeID, txErr = s.CreateKnockoutMatchesTx(ctx, exec, tournamentID, gameTypeID, advancedPlayerIDs)
		return txErr
	})
	return roundTypeID, err
}

func (s *bracketService) CreateKnockoutMatchesTx(ctx context.Context, exec repositories.SQLExecutor, tournamentID, gameTypeID int, advancedPlayerIDs []int) (int, error) {
	if _, err := s.gameTypeRepo.GetByID(ctx, exec, gameTypeID); err != nil {
		if errors.Is(err, repositories.ErrGameTypeNotFound) {
			return 0, fmt.Errorf("%w: id %d", ErrGameTypeNotFound, gameTypeID)
		}
		return 0, err
	}

	field, err := s.loadField(ctx, tournamentID, advancedPlayerIDs)
	if err != nil {
		return 0, err
	}

	plan, err := brackets.PlanKnockout(field)
	if err != nil {
		if errors.Is(err, brackets.ErrNotEnoughPlayers) {
			return 0, ErrNotEnoughPlayers
		}
		return 0, err
	}

	stages, err := s.resolveStages(ctx, exec, plan)
	if err != nil {
		return 0, err
	}

	// Parents are created before their children so the next_match_id link can
	// be written at insert time; plan matches are ordered round ascending.
	matchIDs := make([]int, len(plan.Matches))
	for i := len(plan.Matches) - 1; i >= 0; i-- {
		pm := plan.Matches[i]

		var nextMatchID *int
		if pm.NextIndex != nil {
			id := matchIDs[*pm.NextIndex]
			nextMatchID = &id
		}

		status := models.MatchStatusPending
		if pm.Completed {
			status = models.MatchStatusCompleted
		}

		match := &models.Match{
			TournamentID: tournamentID,
			Player1ID:    pm.Player1ID,
			Player2ID:    pm.Player2ID,
			WinnerID:     pm.WinnerID,
			RoundTypeID:  stages[pm.Capacity].ID,
			GameTypeID:   gameTypeID,
			NextMatchID:  nextMatchID,
			Status:       status,
		}
		if err := s.matchRepo.Create(ctx, exec, match); err != nil {
			return 0, fmt.Errorf("failed to persist knockout match: %w", err)
		}
		matchIDs[i] = match.ID
	}

	entry := stages[plan.Capacity]
	s.logger.Info("knockout stage created",
		slog.Int("tournament_id", tournamentID),
		slog.Int("players", len(field)),
		slog.Int("byes", plan.Byes),
		slog.String("round_type", entry.Name))
	return entry.ID, nil
}

// resolveStages maps every stage capacity in the plan to its RoundType.
func (s *bracketService) resolveStages(ctx context.Context, exec repositories.SQLExecutor, plan *brackets.KnockoutPlan) (map[int]*models.RoundType, error) {
	stages := make(map[int]*models.RoundType)
	for _, pm := range plan.Matches {
		if _, ok := stages[pm.Capacity]; ok {
			continue
		}
		rt, err := s.roundTypeRepo.GetByCapacity(ctx, exec, pm.Capacity)
		if err != nil {
			if errors.Is(err, repositories.ErrRoundTypeNotFound) {
				return nil, fmt.Errorf("%w: no stage for %d players", ErrRoundTypeNotFound, pm.Capacity)
			}
			return nil, err
		}
		stages[pm.Capacity] = rt
	}
	return stages, nil
}

func (s *bracketService) CreateSwissMatches(ctx context.Context, tournamentID, gameTypeID int) (int, error) {
	field, err := s.loadField(ctx, tournamentID, nil)
	if err != nil {
		return 0, err
	}
	if len(field) < 2 {
		return 0, ErrNotEnoughPlayers
	}

	numberOfRounds := brackets.SwissRounds(len(field))

	var bracketID int
	err = s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if _, err := s.gameTypeRepo.GetByID(ctx, exec, gameTypeID); err != nil {
			if errors.Is(err, repositories.ErrGameTypeNotFound) {
				return fmt.Errorf("%w: id %d", ErrGameTypeNotFound, gameTypeID)
			}
			return err
		}

		swissStage, err := s.roundTypeRepo.GetByName(ctx, exec, models.SwissRoundTypeName)
		if err != nil {
			if errors.Is(err, repositories.ErrRoundTypeNotFound) {
				return fmt.Errorf("%w: %q stage missing", ErrRoundTypeNotFound, models.SwissRoundTypeName)
			}
			return err
		}

		bracket := &models.SwissBracket{
			TournamentID:   tournamentID,
			NumberOfRounds: numberOfRounds,
			CurrentRound:   1,
		}
		if err := s.swissBracketRepo.Create(ctx, exec, bracket); err != nil {
			return err
		}
		bracketID = bracket.ID

		zeroed := make([]*models.SwissStanding, len(field))
		for i, p := range field {
			zeroed[i] = &models.SwissStanding{BracketID: bracket.ID, PlayerID: p.PlayerID}
		}
		if err := s.standingRepo.BatchCreate(ctx, exec, zeroed); err != nil {
			return err
		}

		// Round 1 uses the same pairing policy as a knockout entry round:
		// rating ascending, consecutive pairs.
		seeded := make([]models.PlayerRating, len(field))
		copy(seeded, field)
		sort.SliceStable(seeded, func(i, j int) bool { return seeded[i].Elo < seeded[j].Elo })
		ordered := make([]int, len(seeded))
		for i, p := range seeded {
			ordered[i] = p.PlayerID
		}

		firstRound := 1
		for _, pair := range brackets.PlanSwissRound(ordered, nil) {
			p1, p2 := pair.Player1ID, pair.Player2ID
			match := &models.Match{
				TournamentID:     tournamentID,
				Player1ID:        &p1,
				Player2ID:        &p2,
				RoundTypeID:      swissStage.ID,
				GameTypeID:       gameTypeID,
				SwissRoundNumber: &firstRound,
				Status:           models.MatchStatusPending,
			}
			if err := s.matchRepo.Create(ctx, exec, match); err != nil {
				return fmt.Errorf("failed to persist swiss match: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("swiss bracket created",
		slog.Int("tournament_id", tournamentID),
		slog.Int("players", len(field)),
		slog.Int("rounds", numberOfRounds))
	return bracketID, nil
}

func (s *bracketService) GetBracketView(ctx context.Context, tournamentID int) (*BracketView, error) {
	view := &BracketView{TournamentID: tournamentID}

	// A single transaction gives the caller a consistent snapshot of matches
	// and standings.
	err := s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		matches, err := s.matchRepo.ListByTournament(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		view.Matches = matches

		bracket, err := s.swissBracketRepo.GetByTournament(ctx, exec, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrSwissBracketNotFound) {
				return nil // pure knockout tournament
			}
			return err
		}
		view.SwissBracket = bracket

		standings, err := s.standingRepo.ListByBracket(ctx, exec, bracket.ID)
		if err != nil {
			return err
		}
		view.Standings = standings
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}
