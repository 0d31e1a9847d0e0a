package handlers

import (
	"net/http"

	"github.com/openbracket/progression-engine/services"
)

type MatchHandler struct {
	matchService  services.MatchService
	ratingService services.RatingService
}

func NewMatchHandler(matchService services.MatchService, ratingService services.RatingService) *MatchHandler {
	return &MatchHandler{matchService: matchService, ratingService: ratingService}
}

type submitResultRequest struct {
	WinnerID int `json:"winner_id"`
}

// SubmitResult records a match winner and returns the progression message
// describing what the result triggered.
func (h *MatchHandler) SubmitResult(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input submitResultRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.WinnerID < 1 {
		errorResponse(w, r, http.StatusBadRequest, "winner_id must be a positive integer")
		return
	}

	message, err := h.matchService.AdvanceWinner(r.Context(), matchID, input.WinnerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": message}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.GetMatch(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) GetPlayerEloHistory(w http.ResponseWriter, r *http.Request) {
	playerID, err := getIDFromURL(r, "playerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	history, err := h.ratingService.GetPlayerHistory(r.Context(), playerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"history": history}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
