/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"reflect"
	"strings"

	"github.com/Seednode/imposter/game"
	"github.com/go-playground/validator/v10"
)

// Messages coming from clients. Every command shares one flat shape.
type clientMessage struct {
	Type         string        `json:"type"`
	Mode         string        `json:"mode,omitempty"`         // create-room
	PlayerName   string        `json:"playerName,omitempty"`   // create-room / join-room
	RoomCode     string        `json:"roomCode,omitempty"`     // everything after create-room
	TargetID     *int          `json:"targetId,omitempty"`     // cast-vote / subtract-vote
	RoundContent *game.Content `json:"roundContent,omitempty"` // start-game / play-again
}

type createRoomRequest struct {
	Mode       string `json:"mode" validate:"required"`
	PlayerName string `json:"playerName" validate:"required,max=256"`
}

type joinRoomRequest struct {
	RoomCode   string `json:"roomCode" validate:"required,roomcode"`
	PlayerName string `json:"playerName" validate:"required,max=256"`
}

type roomRequest struct {
	RoomCode string `json:"roomCode" validate:"required,roomcode"`
}

type roundRequest struct {
	RoomCode     string        `json:"roomCode" validate:"required,roomcode"`
	RoundContent *game.Content `json:"roundContent"`
}

type voteRequest struct {
	RoomCode string `json:"roomCode" validate:"required,roomcode"`
	TargetID *int   `json:"targetId" validate:"required,min=0"`
}

// Messages sent to clients
type simpleMessage struct {
	Type    string `json:"type"`              // "all-players-ready", "host-disconnected", "error", ...
	Message string `json:"message,omitempty"` // human-readable summary
}

type roomJoinedMessage struct {
	Type     string            `json:"type"` // "room-created" / "room-joined"
	RoomCode string            `json:"roomCode"`
	PlayerID int               `json:"playerId"`
	IsHost   bool              `json:"isHost"`
	Mode     game.Mode         `json:"gameType"`
	Players  []game.PlayerView `json:"players"`
}

type playerJoinedMessage struct {
	Type      string            `json:"type"` // "player-joined"
	Players   []game.PlayerView `json:"players"`
	NewPlayer game.PlayerView   `json:"newPlayer"`
}

type playerLeftMessage struct {
	Type       string            `json:"type"` // "player-left"
	Players    []game.PlayerView `json:"players"`
	LeftPlayer game.PlayerView   `json:"leftPlayer"`
}

type roundMessage struct {
	Type string `json:"type"` // "game-started" / "game-restarted"
	game.RoundView
}

type roleMessage struct {
	Type string `json:"type"` // "role-revealed"
	game.RoleView
}

type questionsMessage struct {
	Type         string       `json:"type"` // "questions-revealed"
	RoundContent game.Content `json:"roundContent"`
}

type votingMessage struct {
	Type string `json:"type"` // "voting-started"
	game.VotingView
}

type tallyMessage struct {
	Type string `json:"type"` // "vote-cast" / "vote-subtracted"
	game.TallyView
}

type lobbyMessage struct {
	Type    string `json:"type"` // "returned-to-lobby"
	Message string `json:"message"`
	game.View
}

type resultsMessage struct {
	Type string `json:"type"` // "game-ended"
	game.Results
}

const (
	msgAllReady     = "All players ready! Host can start voting phase."
	msgEndedByHost  = "The host has ended the game"
	msgHostLeft     = "The host has left the game"
	msgRoomExpired  = "This room was closed after a period of inactivity"
	msgBadMessage   = "Invalid message"
	msgUnknownType  = "Unknown message type"
	msgMissingField = "Missing or invalid field: "
)

// newValidator builds the request validator. The roomcode tag accepts codes
// the registry could have issued, in any case.
func newValidator(codeLength int) *validator.Validate {
	if codeLength <= 0 {
		codeLength = game.DefaultCodeLength
	}

	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("roomcode", func(fl validator.FieldLevel) bool {
		return game.ValidCode(game.NormalizeCode(fl.Field().String()), codeLength)
	})

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

// checkRequest validates req and turns the first failure into a message the client can show.
func checkRequest(v *validator.Validate, req any) error {
	err := v.Struct(req)
	if err == nil {
		return nil
	}

	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		return game.ValidationError("%s%s", msgMissingField, fields[0].Field())
	}

	return game.ValidationError(msgBadMessage)
}
