package handlers

import (
	"net/http"

	"github.com/openbracket/progression-engine/services"
)

type BracketHandler struct {
	bracketService services.BracketService
}

func NewBracketHandler(bracketService services.BracketService) *BracketHandler {
	return &BracketHandler{bracketService: bracketService}
}

type createKnockoutRequest struct {
	GameTypeID        int   `json:"game_type_id"`
	AdvancedPlayerIDs []int `json:"advanced_player_ids,omitempty"`
}

// CreateKnockout builds the elimination stage for a tournament. Without
// advanced_player_ids the full roster is seeded.
func (h *BracketHandler) CreateKnockout(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input createKnockoutRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.GameTypeID < 1 {
		errorResponse(w, r, http.StatusBadRequest, "game_type_id must be a positive integer")
		return
	}

	roundTypeID, err := h.bracketService.CreateKnockoutMatches(r.Context(), tournamentID, input.GameTypeID, input.AdvancedPlayerIDs)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"round_type_id": roundTypeID}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type createSwissRequest struct {
	GameTypeID int `json:"game_type_id"`
}

func (h *BracketHandler) CreateSwiss(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input createSwissRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.GameTypeID < 1 {
		errorResponse(w, r, http.StatusBadRequest, "game_type_id must be a positive integer")
		return
	}

	bracketID, err := h.bracketService.CreateSwissMatches(r.Context(), tournamentID, input.GameTypeID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"bracket_id": bracketID}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *BracketHandler) GetBracket(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	view, err := h.bracketService.GetBracketView(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, view, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
