package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbracket/progression-engine/brackets"
	"github.com/openbracket/progression-engine/clients"
	"github.com/openbracket/progression-engine/models"
)

type engineFixture struct {
	matchRepo    *fakeMatchRepo
	bracketRepo  *fakeSwissBracketRepo
	standingRepo *fakeSwissStandingRepo
	historyRepo  *fakeEloHistoryRepo
	outboxRepo   *fakeOutboxRepo
	roster       *fakeRosterClient
	rating       *fakeRatingClient
	leaderboard  *fakeLeaderboardClient
	tournament   *fakeTournamentClient
	sink         *fakeEventSink
	kicker       *fakeKicker

	brackets BracketService
	matches  MatchService
	ratings  RatingService
}

// newEngineFixture wires the services over in-memory fakes. Roster order is
// registration order; ratings holds the external elo per player.
func newEngineFixture(roster []clients.PlayerRatingDTO, ratingStore map[int]int) *engineFixture {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &engineFixture{
		matchRepo:    newFakeMatchRepo(),
		bracketRepo:  newFakeSwissBracketRepo(),
		standingRepo: newFakeSwissStandingRepo(),
		historyRepo:  &fakeEloHistoryRepo{},
		outboxRepo:   &fakeOutboxRepo{},
		roster:       &fakeRosterClient{players: roster},
		rating:       newFakeRatingClient(ratingStore),
		leaderboard:  newFakeLeaderboardClient(),
		tournament:   &fakeTournamentClient{},
		sink:         &fakeEventSink{},
		kicker:       &fakeKicker{},
	}

	runner := noopTxRunner{}
	f.brackets = NewBracketService(runner, f.roster, f.matchRepo, newFakeRoundTypeRepo(), fakeGameTypeRepo{}, f.bracketRepo, f.standingRepo, logger)
	f.ratings = NewRatingService(runner, f.historyRepo, f.outboxRepo, f.rating, logger)
	f.matches = NewMatchService(runner, f.matchRepo, f.bracketRepo, f.standingRepo, f.outboxRepo, f.brackets, f.ratings, f.sink, f.kicker, logger)
	return f
}

func fourPlayerRoster() ([]clients.PlayerRatingDTO, map[int]int) {
	roster := []clients.PlayerRatingDTO{
		{PlayerID: 1, EloRating: 2000},
		{PlayerID: 2, EloRating: 1800},
		{PlayerID: 3, EloRating: 1900},
		{PlayerID: 4, EloRating: 1700},
	}
	store := map[int]int{1: 2000, 2: 1800, 3: 1900, 4: 1700}
	return roster, store
}

func TestAdvanceWinner_KnockoutFullRun(t *testing.T) {
	ctx := context.Background()
	roster, store := fourPlayerRoster()
	f := newEngineFixture(roster, store)

	roundTypeID, err := f.brackets.CreateKnockoutMatches(ctx, 10, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, roundTypeID, "four players enter at the semifinal stage")

	all, err := f.matchRepo.ListByTournament(ctx, nil, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)

	// Persisted final-first: id 1 is the final, ids 2 and 3 the semifinals.
	final, semiA, semiB := all[0], all[1], all[2]
	assert.Nil(t, final.NextMatchID)
	require.NotNil(t, semiA.NextMatchID)
	require.NotNil(t, semiB.NextMatchID)
	assert.Equal(t, final.ID, *semiA.NextMatchID)
	assert.Equal(t, final.ID, *semiB.NextMatchID)

	// Seeding pairs nearest ratings: (1700 vs 1800) and (1900 vs 2000).
	assert.Equal(t, 3, *semiA.Player1ID)
	assert.Equal(t, 1, *semiA.Player2ID)
	assert.Equal(t, 4, *semiB.Player1ID)
	assert.Equal(t, 2, *semiB.Player2ID)

	msg, err := f.matches.AdvanceWinner(ctx, semiB.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, "Tournament has advanced to the next round", msg)

	msg, err = f.matches.AdvanceWinner(ctx, semiA.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, "Winner advanced to the next round", msg)

	final, err = f.matchRepo.GetByID(ctx, nil, final.ID)
	require.NoError(t, err)
	require.NotNil(t, final.Player1ID)
	require.NotNil(t, final.Player2ID)
	assert.Equal(t, 2, *final.Player1ID)
	assert.Equal(t, 3, *final.Player2ID)

	msg, err = f.matches.AdvanceWinner(ctx, final.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, "Tournament completed", msg)

	completions := f.outboxRepo.byKind(models.OutboxTournamentCompleted)
	require.Len(t, completions, 1, "exactly one completion notification")

	// Every completed match produced two elo history rows.
	assert.Len(t, f.historyRepo.entries, 6)
	assert.Contains(t, f.sink.types(), brackets.EventTournamentCompleted)
	assert.Equal(t, 3, f.kicker.kicks)
}

func TestAdvanceWinner_DoubleCompletionRejected(t *testing.T) {
	ctx := context.Background()
	roster, store := fourPlayerRoster()
	f := newEngineFixture(roster, store)

	_, err := f.brackets.CreateKnockoutMatches(ctx, 10, 1, nil)
	require.NoError(t, err)

	_, err = f.matches.AdvanceWinner(ctx, 2, 3)
	require.NoError(t, err)
	historyBefore := len(f.historyRepo.entries)

	_, err = f.matches.AdvanceWinner(ctx, 2, 1)
	assert.ErrorIs(t, err, ErrMatchAlreadyCompleted)
	assert.Len(t, f.historyRepo.entries, historyBefore, "losing a race must not re-rate the match")
}

func TestAdvanceWinner_Validation(t *testing.T) {
	ctx := context.Background()
	roster, store := fourPlayerRoster()
	f := newEngineFixture(roster, store)

	_, err := f.brackets.CreateKnockoutMatches(ctx, 10, 1, nil)
	require.NoError(t, err)

	t.Run("unknown match", func(t *testing.T) {
		_, err := f.matches.AdvanceWinner(ctx, 999, 1)
		assert.ErrorIs(t, err, ErrMatchNotFound)
	})

	t.Run("player not in match", func(t *testing.T) {
		_, err := f.matches.AdvanceWinner(ctx, 2, 4)
		assert.ErrorIs(t, err, ErrPlayerNotInMatch)
	})

	t.Run("match without players", func(t *testing.T) {
		// The final has no players until a semifinal resolves.
		_, err := f.matches.AdvanceWinner(ctx, 1, 1)
		assert.ErrorIs(t, err, ErrPlayerNotInMatch)
	})
}

func TestAdvanceWinner_SwissFlow(t *testing.T) {
	ctx := context.Background()
	roster, store := fourPlayerRoster()
	f := newEngineFixture(roster, store)

	bracketID, err := f.brackets.CreateSwissMatches(ctx, 20, 1)
	require.NoError(t, err)

	bracket, err := f.bracketRepo.GetByTournament(ctx, nil, 20)
	require.NoError(t, err)
	assert.Equal(t, bracketID, bracket.ID)
	assert.Equal(t, 2, bracket.NumberOfRounds)
	assert.Equal(t, 1, bracket.CurrentRound)

	round1, err := f.matchRepo.ListBySwissRound(ctx, nil, 20, 1)
	require.NoError(t, err)
	require.Len(t, round1, 2)

	// First result leaves the round open.
	msg, err := f.matches.AdvanceWinner(ctx, round1[0].ID, *round1[0].Player1ID)
	require.NoError(t, err)
	assert.Equal(t, "Swiss standings updated", msg)

	// Second result closes round 1.
	msg, err = f.matches.AdvanceWinner(ctx, round1[1].ID, *round1[1].Player1ID)
	require.NoError(t, err)
	assert.Equal(t, "Advanced to Swiss Round 2", msg)

	bracket, err = f.bracketRepo.GetByTournament(ctx, nil, 20)
	require.NoError(t, err)
	assert.Equal(t, 2, bracket.CurrentRound)

	round2, err := f.matchRepo.ListBySwissRound(ctx, nil, 20, 2)
	require.NoError(t, err)
	require.Len(t, round2, 2)
	for _, m := range round2 {
		require.NotNil(t, m.Player1ID)
		require.NotNil(t, m.Player2ID)
		key := brackets.MeetingKey(*m.Player1ID, *m.Player2ID)
		for _, prev := range round1 {
			assert.NotEqual(t, brackets.MeetingKey(*prev.Player1ID, *prev.Player2ID), key, "round 2 must avoid rematches")
		}
	}

	// Close round 2: the final Swiss round hands over to knockout.
	msg, err = f.matches.AdvanceWinner(ctx, round2[0].ID, *round2[0].Player1ID)
	require.NoError(t, err)
	assert.Equal(t, "Swiss standings updated", msg)

	msg, err = f.matches.AdvanceWinner(ctx, round2[1].ID, *round2[1].Player1ID)
	require.NoError(t, err)
	assert.Equal(t, "Swiss rounds completed, moving to knockout phase.", msg)

	all, err := f.matchRepo.ListByTournament(ctx, nil, 20)
	require.NoError(t, err)
	var knockout []*models.Match
	for _, m := range all {
		if m.IsKnockout() {
			knockout = append(knockout, m)
		}
	}
	require.Len(t, knockout, 1, "top half of four players meet in a final")
	assert.Equal(t, 1, knockout[0].RoundTypeID)

	advances := f.outboxRepo.byKind(models.OutboxRoundAdvanced)
	require.Len(t, advances, 1)
	assert.Contains(t, f.sink.types(), brackets.EventPhaseChanged)
}

func TestAdvanceWinner_RatingFailureDoesNotUndoResult(t *testing.T) {
	ctx := context.Background()
	roster, store := fourPlayerRoster()
	f := newEngineFixture(roster, store)
	f.rating.getErr = assert.AnError

	_, err := f.brackets.CreateKnockoutMatches(ctx, 10, 1, nil)
	require.NoError(t, err)

	msg, err := f.matches.AdvanceWinner(ctx, 2, 3)
	require.NoError(t, err, "rating outage must not fail the match result")
	assert.Equal(t, "Tournament has advanced to the next round", msg)

	m, err := f.matchRepo.GetByID(ctx, nil, 2)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusCompleted, m.Status)
	assert.Empty(t, f.historyRepo.entries)
}
