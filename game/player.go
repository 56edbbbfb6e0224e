/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const DefaultMaxNameLength = 20

// Player is one member of a room. Its fields are only touched with the room lock held.
type Player struct {
	ID     int
	ConnID string
	Name   string

	stage Stage
	voted bool
}

func (p *Player) resetRound() {
	p.stage = StageJoined
	p.voted = false
}

// PlayerView is the public, per-broadcast copy of a player.
type PlayerView struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	IsHost      bool   `json:"isHost"`
	IsImposter  bool   `json:"isImposter,omitempty"`
	HasRevealed bool   `json:"hasRevealed"`
	IsReady     bool   `json:"isReady"`
	HasVoted    bool   `json:"hasVoted"`
}

// NormalizeName trims and NFC-normalizes a display name and enforces its length.
func NormalizeName(name string, max int) (string, error) {
	if max <= 0 {
		max = DefaultMaxNameLength
	}

	name = norm.NFC.String(strings.TrimSpace(name))
	if name == "" {
		return "", ValidationError("Please enter a name")
	}
	if utf8.RuneCountInString(name) > max {
		return "", ValidationError("Names must be %d characters or fewer", max)
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return "", ValidationError("Names cannot contain control characters")
		}
	}

	return name, nil
}
