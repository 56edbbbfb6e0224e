/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"errors"
	"fmt"
)

// Error kinds. Every rejection returned by this package unwraps to exactly one of these.
var (
	ErrValidation    = errors.New("validation error")
	ErrNotAuthorized = errors.New("not authorized")
	ErrNotFound      = errors.New("not found")
	ErrWrongPhase    = errors.New("wrong phase")
	ErrWrongMode     = errors.New("wrong mode")
	ErrConflict      = errors.New("state conflict")
)

// Error is a rejection whose message is safe to show to the requesting player.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrRoomNotFound      = newError(ErrNotFound, "Room not found")
	ErrPlayerNotFound    = newError(ErrNotFound, "You are not in this room")
	ErrTargetNotFound    = newError(ErrValidation, "No player with that id")
	ErrHostOnly          = newError(ErrNotAuthorized, "Only the host can do that")
	ErrGameInProgress    = newError(ErrWrongPhase, "Game already in progress")
	ErrRoundNotStarted   = newError(ErrWrongPhase, "The round has not started yet")
	ErrVotingUnavailable = newError(ErrWrongPhase, "Voting not available")
	ErrRoundNotOver      = newError(ErrWrongPhase, "The round is not over yet")
	ErrQuestionModeOnly  = newError(ErrWrongMode, "Question revelation only available for question games")
	ErrAlreadyVoted      = newError(ErrConflict, "You have already voted")
	ErrVotingComplete    = newError(ErrConflict, "All votes have been cast")
	ErrNoVotesForTarget  = newError(ErrConflict, "That player has no votes to remove")
	ErrAlreadyInRoom     = newError(ErrConflict, "You are already in a room")
	ErrCodesExhausted    = newError(ErrConflict, "Could not allocate a room code, please try again")
	ErrInvalidMode       = newError(ErrValidation, "Unknown game mode")
	ErrInvalidContent    = newError(ErrValidation, "Round content does not match the game mode")
)

// NotEnoughPlayersError reports a start attempt below the configured threshold.
func NotEnoughPlayersError(min int) *Error {
	return newError(ErrConflict, "Need at least %d players to start", min)
}

// ValidationError wraps a user-facing input problem.
func ValidationError(format string, args ...any) *Error {
	return newError(ErrValidation, format, args...)
}

// Message returns the text to show a player for err, hiding internal failures.
func Message(err error) string {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Message
	}
	return "Something went wrong, please try again"
}
