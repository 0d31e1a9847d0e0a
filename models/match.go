package models

import "time"

type MatchStatus string

const (
	MatchStatusPending   MatchStatus = "pending"
	MatchStatusCompleted MatchStatus = "completed"
)

// Match is a single game inside a tournament. Player slots stay null until a
// prior match resolves them; winner/loser stay null until completion.
type Match struct {
	ID               int         `json:"id"`
	TournamentID     int         `json:"tournament_id"`
	Player1ID        *int        `json:"player1_id,omitempty"`
	Player2ID        *int        `json:"player2_id,omitempty"`
	WinnerID         *int        `json:"winner_id,omitempty"`
	LoserID          *int        `json:"loser_id,omitempty"`
	RoundTypeID      int         `json:"round_type_id"`
	GameTypeID       int         `json:"game_type_id"`
	SwissRoundNumber *int        `json:"swiss_round_number,omitempty"`
	NextMatchID      *int        `json:"next_match_id,omitempty"`
	Status           MatchStatus `json:"status"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`

	// Populated by the repository join, not stored on the matches table.
	RoundType *RoundType `json:"round_type,omitempty"`
}

// IsKnockout reports whether the match belongs to an elimination stage.
func (m *Match) IsKnockout() bool {
	return m.SwissRoundNumber == nil
}

// HasPlayer reports whether playerID occupies one of the two slots.
func (m *Match) HasPlayer(playerID int) bool {
	if m.Player1ID != nil && *m.Player1ID == playerID {
		return true
	}
	if m.Player2ID != nil && *m.Player2ID == playerID {
		return true
	}
	return false
}

// OtherPlayer returns the occupant of the slot opposite to playerID, or nil.
func (m *Match) OtherPlayer(playerID int) *int {
	if m.Player1ID != nil && *m.Player1ID == playerID {
		return m.Player2ID
	}
	if m.Player2ID != nil && *m.Player2ID == playerID {
		return m.Player1ID
	}
	return nil
}
