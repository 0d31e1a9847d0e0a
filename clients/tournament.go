package clients

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

type httpTournamentClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPTournamentClient(baseURL string, timeout time.Duration) TournamentClient {
	return &httpTournamentClient{baseURL: baseURL, client: newHTTPClient(timeout)}
}

func (c *httpTournamentClient) NotifyRoundAdvanced(ctx context.Context, tournamentID, roundTypeID int) error {
	url := fmt.Sprintf("%s/tournaments/%d/current-round", c.baseURL, tournamentID)

	body := struct {
		RoundTypeID int `json:"round_type_id"`
	}{RoundTypeID: roundTypeID}
	if err := doJSON(ctx, c.client, http.MethodPut, url, body, nil); err != nil {
		return fmt.Errorf("round advance notification for tournament %d: %w", tournamentID, err)
	}
	return nil
}

func (c *httpTournamentClient) NotifyCompleted(ctx context.Context, tournamentID, winnerID int) error {
	url := fmt.Sprintf("%s/tournaments/%d/completion", c.baseURL, tournamentID)

	body := struct {
		WinnerID int `json:"winner_id"`
	}{WinnerID: winnerID}
	if err := doJSON(ctx, c.client, http.MethodPost, url, body, nil); err != nil {
		return fmt.Errorf("completion notification for tournament %d: %w", tournamentID, err)
	}
	return nil
}
