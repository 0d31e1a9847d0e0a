package models

// SwissRoundTypeName marks the single stage used for all Swiss rounds.
const SwissRoundTypeName = "Swiss"

// RoundType is a named bracket stage ("Quarterfinal", "Swiss", ...) keyed by
// the number of players the stage holds.
type RoundType struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	NumberOfPlayers int    `json:"number_of_players"`
}

// IsSwiss reports whether matches of this stage follow the Swiss flow.
func (rt *RoundType) IsSwiss() bool {
	return rt.Name == SwissRoundTypeName
}

type GameType struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
