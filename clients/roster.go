package clients

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

type httpRosterClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPRosterClient(baseURL string, timeout time.Duration) RosterClient {
	return &httpRosterClient{baseURL: baseURL, client: newHTTPClient(timeout)}
}

func (c *httpRosterClient) ListRatings(ctx context.Context, tournamentID int) ([]PlayerRatingDTO, error) {
	url := fmt.Sprintf("%s/tournaments/%d/players", c.baseURL, tournamentID)

	var out struct {
		Players []PlayerRatingDTO `json:"players"`
	}
	if err := doJSON(ctx, c.client, http.MethodGet, url, nil, &out); err != nil {
		return nil, fmt.Errorf("roster fetch for tournament %d: %w", tournamentID, err)
	}
	return out.Players, nil
}
