package clients

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

type httpLeaderboardClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPLeaderboardClient(baseURL string, timeout time.Duration) LeaderboardClient {
	return &httpLeaderboardClient{baseURL: baseURL, client: newHTTPClient(timeout)}
}

func (c *httpLeaderboardClient) PushEntry(ctx context.Context, playerID, newElo int) error {
	url := fmt.Sprintf("%s/leaderboard/entries", c.baseURL)

	body := struct {
		PlayerID int `json:"player_id"`
		NewElo   int `json:"new_elo"`
	}{PlayerID: playerID, NewElo: newElo}
	if err := doJSON(ctx, c.client, http.MethodPost, url, body, nil); err != nil {
		return fmt.Errorf("leaderboard push for player %d: %w", playerID, err)
	}
	return nil
}
