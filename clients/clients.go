// Package clients holds the HTTP integrations with the surrounding CRUD
// services. The engine only sees the narrow interfaces; everything else
// (auth, framing, persistence of those services) stays on their side.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RosterClient is the tournament roster source: registered players and their
// current ratings, in registration order.
type RosterClient interface {
	ListRatings(ctx context.Context, tournamentID int) ([]PlayerRatingDTO, error)
}

// RatingClient is the external rating store.
type RatingClient interface {
	GetRating(ctx context.Context, playerID int) (int, error)
	PushRating(ctx context.Context, playerID, newElo int) error
}

// LeaderboardClient receives {player, newElo} after each completed match.
type LeaderboardClient interface {
	PushEntry(ctx context.Context, playerID, newElo int) error
}

// TournamentClient is the tournament record sink.
type TournamentClient interface {
	NotifyRoundAdvanced(ctx context.Context, tournamentID, roundTypeID int) error
	NotifyCompleted(ctx context.Context, tournamentID, winnerID int) error
}

type PlayerRatingDTO struct {
	PlayerID  int `json:"player_id"`
	EloRating int `json:"elo_rating"`
}

// newHTTPClient bounds every collaborator call with an explicit timeout; the
// engine must never hang a request on a slow downstream.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func doJSON(ctx context.Context, client *http.Client, method, url string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d from %s: %s", resp.StatusCode, url, snippet)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response from %s: %w", url, err)
		}
	}
	return nil
}
