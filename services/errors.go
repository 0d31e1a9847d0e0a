package services

import "errors"

// Domain errors surfaced by the engine. They represent caller mistakes (bad
// id, stale state) and are never retried internally; the handler layer maps
// them to HTTP status codes.
var (
	ErrMatchNotFound         = errors.New("match does not exist")
	ErrMatchAlreadyCompleted = errors.New("match has already been completed")
	ErrPlayerNotInMatch      = errors.New("player does not exist in this match")
	ErrMatchNotReady         = errors.New("match is not ready: opponent not yet determined")
	ErrRoundTypeNotFound     = errors.New("round type not found")
	ErrGameTypeNotFound      = errors.New("game type not found")
	ErrSwissBracketNotFound  = errors.New("swiss bracket not found")
	ErrNotEnoughPlayers      = errors.New("not enough players registered (minimum 2)")
	ErrPlayerNotInRoster     = errors.New("player is not in the tournament roster")
)
