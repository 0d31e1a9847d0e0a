package clients

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

type httpRatingClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPRatingClient(baseURL string, timeout time.Duration) RatingClient {
	return &httpRatingClient{baseURL: baseURL, client: newHTTPClient(timeout)}
}

func (c *httpRatingClient) GetRating(ctx context.Context, playerID int) (int, error) {
	url := fmt.Sprintf("%s/players/%d/rating", c.baseURL, playerID)

	var out struct {
		EloRating int `json:"elo_rating"`
	}
	if err := doJSON(ctx, c.client, http.MethodGet, url, nil, &out); err != nil {
		return 0, fmt.Errorf("rating fetch for player %d: %w", playerID, err)
	}
	return out.EloRating, nil
}

func (c *httpRatingClient) PushRating(ctx context.Context, playerID, newElo int) error {
	url := fmt.Sprintf("%s/players/%d/rating", c.baseURL, playerID)

	body := struct {
		EloRating int `json:"elo_rating"`
	}{EloRating: newElo}
	if err := doJSON(ctx, c.client, http.MethodPut, url, body, nil); err != nil {
		return fmt.Errorf("rating push for player %d: %w", playerID, err)
	}
	return nil
}
