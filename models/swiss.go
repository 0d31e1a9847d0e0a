package models

import "time"

// SwissBracket is created once per tournament run as Swiss. NumberOfRounds is
// fixed at creation; CurrentRound starts at 1 and only ever increments.
type SwissBracket struct {
	ID             int       `json:"id"`
	TournamentID   int       `json:"tournament_id"`
	NumberOfRounds int       `json:"number_of_rounds"`
	CurrentRound   int       `json:"current_round"`
	CreatedAt      time.Time `json:"created_at"`
}

// SwissStanding accumulates one player's record within one Swiss bracket.
// Created at zero when the bracket is built, mutated exactly once per match
// the player finishes.
type SwissStanding struct {
	ID        int       `json:"id"`
	BracketID int       `json:"bracket_id"`
	PlayerID  int       `json:"player_id"`
	Wins      int       `json:"wins"`
	Losses    int       `json:"losses"`
	UpdatedAt time.Time `json:"updated_at"`
}
