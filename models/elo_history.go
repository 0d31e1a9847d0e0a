package models

import "time"

type EloChangeReason string

const (
	EloChangeWin  EloChangeReason = "WIN"
	EloChangeLoss EloChangeReason = "LOSS"
	EloChangeDraw EloChangeReason = "DRAW"
)

// EloHistory is an append-only ledger row. One row per player per completed
// match; never mutated after insertion.
type EloHistory struct {
	ID           int             `json:"id"`
	PlayerID     int             `json:"player_id"`
	OldElo       int             `json:"old_elo"`
	NewElo       int             `json:"new_elo"`
	ChangeReason EloChangeReason `json:"change_reason"`
	CreatedAt    time.Time       `json:"created_at"`
}
