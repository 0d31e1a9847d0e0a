package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/openbracket/progression-engine/brackets"
	"github.com/openbracket/progression-engine/clients"
	"github.com/openbracket/progression-engine/models"
	"github.com/openbracket/progression-engine/repositories"
)

// noopTxRunner runs the callback directly; the in-memory fakes below ignore
// the executor entirely.
type noopTxRunner struct{}

func (noopTxRunner) RunInTx(_ context.Context, fn func(exec repositories.SQLExecutor) error) error {
	return fn(nil)
}

type fakeMatchRepo struct {
	mu      sync.Mutex
	nextID  int
	matches map[int]*models.Match
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{matches: make(map[int]*models.Match)}
}

func copyMatch(m *models.Match) *models.Match {
	c := *m
	return &c
}

func (r *fakeMatchRepo) Create(_ context.Context, _ repositories.SQLExecutor, match *models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	match.ID = r.nextID
	match.CreatedAt = time.Now()
	r.matches[match.ID] = copyMatch(match)
	return nil
}

func (r *fakeMatchRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return copyMatch(m), nil
}

func (r *fakeMatchRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *fakeMatchRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) ([]*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Match
	for _, m := range r.matches {
		if m.TournamentID == tournamentID {
			out = append(out, copyMatch(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeMatchRepo) ListBySwissRound(_ context.Context, _ repositories.SQLExecutor, tournamentID, swissRound int) ([]*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Match
	for _, m := range r.matches {
		if m.TournamentID == tournamentID && m.SwissRoundNumber != nil && *m.SwissRoundNumber == swissRound {
			out = append(out, copyMatch(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeMatchRepo) UpdateResult(_ context.Context, _ repositories.SQLExecutor, id int, winnerID, loserID int, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	w, l := winnerID, loserID
	m.WinnerID = &w
	m.LoserID = &l
	m.Status = models.MatchStatusCompleted
	m.UpdatedAt = updatedAt
	return nil
}

func (r *fakeMatchRepo) UpdatePlayers(_ context.Context, _ repositories.SQLExecutor, id int, player1ID, player2ID *int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.Player1ID = player1ID
	m.Player2ID = player2ID
	return nil
}

func (r *fakeMatchRepo) UpdateNextMatchID(_ context.Context, _ repositories.SQLExecutor, id int, nextMatchID *int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.NextMatchID = nextMatchID
	return nil
}

type fakeRoundTypeRepo struct {
	types []*models.RoundType
}

func newFakeRoundTypeRepo() *fakeRoundTypeRepo {
	return &fakeRoundTypeRepo{types: []*models.RoundType{
		{ID: 1, Name: "Final", NumberOfPlayers: 2},
		{ID: 2, Name: "Semifinal", NumberOfPlayers: 4},
		{ID: 3, Name: "Quarterfinal", NumberOfPlayers: 8},
		{ID: 4, Name: "Round of 16", NumberOfPlayers: 16},
		{ID: 5, Name: models.SwissRoundTypeName, NumberOfPlayers: 0},
	}}
}

func (r *fakeRoundTypeRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.RoundType, error) {
	for _, rt := range r.types {
		if rt.ID == id {
			return rt, nil
		}
	}
	return nil, repositories.ErrRoundTypeNotFound
}

func (r *fakeRoundTypeRepo) GetByCapacity(_ context.Context, _ repositories.SQLExecutor, n int) (*models.RoundType, error) {
	for _, rt := range r.types {
		if rt.NumberOfPlayers == n && !rt.IsSwiss() {
			return rt, nil
		}
	}
	return nil, repositories.ErrRoundTypeNotFound
}

func (r *fakeRoundTypeRepo) GetByName(_ context.Context, _ repositories.SQLExecutor, name string) (*models.RoundType, error) {
	for _, rt := range r.types {
		if rt.Name == name {
			return rt, nil
		}
	}
	return nil, repositories.ErrRoundTypeNotFound
}

type fakeGameTypeRepo struct{}

func (fakeGameTypeRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.GameType, error) {
	if id != 1 {
		return nil, repositories.ErrGameTypeNotFound
	}
	return &models.GameType{ID: 1, Name: "chess"}, nil
}

type fakeSwissBracketRepo struct {
	mu      sync.Mutex
	nextID  int
	bracket map[int]*models.SwissBracket // keyed by tournament id
}

func newFakeSwissBracketRepo() *fakeSwissBracketRepo {
	return &fakeSwissBracketRepo{bracket: make(map[int]*models.SwissBracket)}
}

func (r *fakeSwissBracketRepo) Create(_ context.Context, _ repositories.SQLExecutor, bracket *models.SwissBracket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	bracket.ID = r.nextID
	c := *bracket
	r.bracket[bracket.TournamentID] = &c
	return nil
}

func (r *fakeSwissBracketRepo) GetByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) (*models.SwissBracket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bracket[tournamentID]
	if !ok {
		return nil, repositories.ErrSwissBracketNotFound
	}
	c := *b
	return &c, nil
}

func (r *fakeSwissBracketRepo) GetByTournamentForUpdate(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (*models.SwissBracket, error) {
	return r.GetByTournament(ctx, exec, tournamentID)
}

func (r *fakeSwissBracketRepo) IncrementCurrentRound(_ context.Context, _ repositories.SQLExecutor, bracketID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bracket {
		if b.ID == bracketID {
			b.CurrentRound++
			return nil
		}
	}
	return repositories.ErrSwissBracketNotFound
}

type fakeSwissStandingRepo struct {
	mu        sync.Mutex
	nextID    int
	standings []*models.SwissStanding
}

func newFakeSwissStandingRepo() *fakeSwissStandingRepo {
	return &fakeSwissStandingRepo{}
}

func (r *fakeSwissStandingRepo) BatchCreate(_ context.Context, _ repositories.SQLExecutor, list []*models.SwissStanding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range list {
		r.nextID++
		s.ID = r.nextID
		c := *s
		r.standings = append(r.standings, &c)
	}
	return nil
}

func (r *fakeSwissStandingRepo) GetByBracketAndPlayer(_ context.Context, _ repositories.SQLExecutor, bracketID, playerID int) (*models.SwissStanding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.standings {
		if s.BracketID == bracketID && s.PlayerID == playerID {
			c := *s
			return &c, nil
		}
	}
	return nil, repositories.ErrSwissStandingNotFound
}

func (r *fakeSwissStandingRepo) Update(_ context.Context, _ repositories.SQLExecutor, standing *models.SwissStanding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.standings {
		if s.ID == standing.ID {
			c := *standing
			r.standings[i] = &c
			return nil
		}
	}
	return repositories.ErrSwissStandingNotFound
}

func (r *fakeSwissStandingRepo) ListByBracket(_ context.Context, _ repositories.SQLExecutor, bracketID int) ([]*models.SwissStanding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.SwissStanding
	for _, s := range r.standings {
		if s.BracketID == bracketID {
			c := *s
			out = append(out, &c)
		}
	}
	return out, nil
}

type fakeEloHistoryRepo struct {
	mu      sync.Mutex
	nextID  int
	entries []*models.EloHistory
}

func (r *fakeEloHistoryRepo) Create(_ context.Context, _ repositories.SQLExecutor, entry *models.EloHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	entry.ID = r.nextID
	c := *entry
	r.entries = append(r.entries, &c)
	return nil
}

func (r *fakeEloHistoryRepo) ListByPlayer(_ context.Context, _ repositories.SQLExecutor, playerID int) ([]*models.EloHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.EloHistory
	for _, e := range r.entries {
		if e.PlayerID == playerID {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

type fakeOutboxRepo struct {
	mu     sync.Mutex
	events []*models.OutboxEvent
}

func (r *fakeOutboxRepo) Enqueue(_ context.Context, _ repositories.SQLExecutor, event *models.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *event
	c.Status = models.OutboxStatusPending
	r.events = append(r.events, &c)
	return nil
}

func (r *fakeOutboxRepo) ListPending(_ context.Context, _ repositories.SQLExecutor, limit int) ([]*models.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.OutboxEvent
	for _, e := range r.events {
		if e.Status != models.OutboxStatusPending {
			continue
		}
		c := *e
		out = append(out, &c)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeOutboxRepo) MarkDelivered(_ context.Context, _ repositories.SQLExecutor, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.ID == id {
			e.Status = models.OutboxStatusDelivered
			return nil
		}
	}
	return repositories.ErrOutboxEventNotFound
}

func (r *fakeOutboxRepo) MarkFailed(_ context.Context, _ repositories.SQLExecutor, id string, attempts int, lastError string, terminal bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.ID == id {
			e.Attempts = attempts
			e.LastError = &lastError
			if terminal {
				e.Status = models.OutboxStatusFailed
			}
			return nil
		}
	}
	return repositories.ErrOutboxEventNotFound
}

func (r *fakeOutboxRepo) byKind(kind models.OutboxEventKind) []*models.OutboxEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.OutboxEvent
	for _, e := range r.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

type fakeRosterClient struct {
	players []clients.PlayerRatingDTO
	err     error
}

func (c *fakeRosterClient) ListRatings(_ context.Context, _ int) ([]clients.PlayerRatingDTO, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.players, nil
}

type fakeRatingClient struct {
	mu      sync.Mutex
	ratings map[int]int
	pushed  map[int]int
	getErr  error
	pushErr error
}

func newFakeRatingClient(ratings map[int]int) *fakeRatingClient {
	return &fakeRatingClient{ratings: ratings, pushed: make(map[int]int)}
}

func (c *fakeRatingClient) GetRating(_ context.Context, playerID int) (int, error) {
	if c.getErr != nil {
		return 0, c.getErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	elo, ok := c.ratings[playerID]
	if !ok {
		return 0, errors.New("unknown player")
	}
	return elo, nil
}

func (c *fakeRatingClient) PushRating(_ context.Context, playerID, newElo int) error {
	if c.pushErr != nil {
		return c.pushErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pushed[playerID] = newElo
	return nil
}

type fakeLeaderboardClient struct {
	mu      sync.Mutex
	entries map[int]int
	err     error
}

func newFakeLeaderboardClient() *fakeLeaderboardClient {
	return &fakeLeaderboardClient{entries: make(map[int]int)}
}

func (c *fakeLeaderboardClient) PushEntry(_ context.Context, playerID, newElo int) error {
	if c.err != nil {
		return c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[playerID] = newElo
	return nil
}

type fakeTournamentClient struct {
	mu            sync.Mutex
	roundAdvances []int // round type ids, in order
	completedWith []int // winner ids, in order
	err           error
}

func (c *fakeTournamentClient) NotifyRoundAdvanced(_ context.Context, _, roundTypeID int) error {
	if c.err != nil {
		return c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roundAdvances = append(c.roundAdvances, roundTypeID)
	return nil
}

func (c *fakeTournamentClient) NotifyCompleted(_ context.Context, _, winnerID int) error {
	if c.err != nil {
		return c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completedWith = append(c.completedWith, winnerID)
	return nil
}

type fakeEventSink struct {
	mu     sync.Mutex
	events []brackets.ProgressionEvent
}

func (s *fakeEventSink) BroadcastEvent(event brackets.ProgressionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *fakeEventSink) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.Type
	}
	return out
}

type fakeKicker struct {
	mu    sync.Mutex
	kicks int
}

func (k *fakeKicker) Kick() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.kicks++
}
