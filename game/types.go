/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import "strings"

// Mode decides what kind of content a room deals out each round.
type Mode string

const (
	ModeCategory Mode = "category"
	ModeQuestion Mode = "question"
)

// ParseMode accepts the wire names, case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeCategory:
		return ModeCategory, nil
	case ModeQuestion:
		return ModeQuestion, nil
	default:
		return "", ErrInvalidMode
	}
}

type Phase string

const (
	PhaseWaiting   Phase = "waiting"
	PhaseRevealing Phase = "revealing"
	PhaseVoting    Phase = "voting"
	PhaseEnded     Phase = "ended"
)

// Stage tracks how far a player has progressed through the reveal of a round.
type Stage int

const (
	StageJoined Stage = iota
	StageRoleSeen
	StageReady
)

// Content is the payload for one round. Category rounds fill Category and
// Item, question rounds fill QuestionA and QuestionB.
type Content struct {
	Category  string `json:"category,omitempty" yaml:"category,omitempty"`
	Item      string `json:"item,omitempty" yaml:"item,omitempty"`
	QuestionA string `json:"questionA,omitempty" yaml:"questionA,omitempty"`
	QuestionB string `json:"questionB,omitempty" yaml:"questionB,omitempty"`
}

// Validate reports whether c is usable for a round in mode m.
func (c Content) Validate(m Mode) error {
	switch m {
	case ModeCategory:
		if strings.TrimSpace(c.Category) == "" || strings.TrimSpace(c.Item) == "" ||
			c.QuestionA != "" || c.QuestionB != "" {
			return ErrInvalidContent
		}
	case ModeQuestion:
		if strings.TrimSpace(c.QuestionA) == "" || strings.TrimSpace(c.QuestionB) == "" ||
			c.Category != "" || c.Item != "" {
			return ErrInvalidContent
		}
	default:
		return ErrInvalidMode
	}
	return nil
}

// primary is what everyone except the imposter sees.
func (c Content) primary(m Mode) string {
	if m == ModeQuestion {
		return c.QuestionA
	}
	return c.Item
}

// alternate is what the imposter sees.
func (c Content) alternate(m Mode) string {
	if m == ModeQuestion {
		return c.QuestionB
	}
	return c.Category
}
