package models

import "time"

type OutboxEventKind string

const (
	OutboxRatingPush          OutboxEventKind = "rating_push"
	OutboxLeaderboardPush     OutboxEventKind = "leaderboard_push"
	OutboxRoundAdvanced       OutboxEventKind = "round_advanced"
	OutboxTournamentCompleted OutboxEventKind = "tournament_completed"
)

type OutboxEventStatus string

const (
	OutboxStatusPending   OutboxEventStatus = "pending"
	OutboxStatusDelivered OutboxEventStatus = "delivered"
	OutboxStatusFailed    OutboxEventStatus = "failed"
)

// OutboxEvent records an outbound side effect (rating push, leaderboard push,
// tournament notification) committed together with the state change that
// caused it, so delivery can be retried without re-running the state machine.
type OutboxEvent struct {
	ID        string            `json:"id"`
	Kind      OutboxEventKind   `json:"kind"`
	Payload   []byte            `json:"payload"`
	Status    OutboxEventStatus `json:"status"`
	Attempts  int               `json:"attempts"`
	LastError *string           `json:"last_error,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Payload shapes for the event kinds above.

type RatingPushPayload struct {
	PlayerID int `json:"player_id"`
	NewElo   int `json:"new_elo"`
}

type RoundAdvancedPayload struct {
	TournamentID int `json:"tournament_id"`
	RoundTypeID  int `json:"round_type_id"`
}

type TournamentCompletedPayload struct {
	TournamentID int `json:"tournament_id"`
	WinnerID     int `json:"winner_id"`
}
