package models

// PlayerRating is the roster wire type: a registered player and their current
// Elo, as reported by the external roster source.
type PlayerRating struct {
	PlayerID int `json:"player_id"`
	Elo      int `json:"elo_rating"`
}
