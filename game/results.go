/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import "slices"

// NoOneVotedOut is the VotedOutID reported for a tie.
const NoOneVotedOut = -1

// Outcome is the verdict of a vote.
type Outcome struct {
	VotedOutID   int  `json:"votedOutId"`
	ImposterWins bool `json:"imposterWins"`
	Tie          bool `json:"tie"`
}

// TallyVotes scans votes in ascending player id order. The first id to reach
// the highest count is voted out, unless another id with at least one vote
// shares that count, in which case it is a tie and the imposter wins.
func TallyVotes(votes map[int]int, imposterID int) Outcome {
	ids := make([]int, 0, len(votes))
	for id := range votes {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	maxVotes := -1
	votedOut := NoOneVotedOut
	for _, id := range ids {
		if votes[id] > maxVotes {
			maxVotes = votes[id]
			votedOut = id
		}
	}

	leaders := 0
	for _, id := range ids {
		if votes[id] == maxVotes && votes[id] > 0 {
			leaders++
		}
	}

	o := Outcome{VotedOutID: votedOut}
	if leaders > 1 {
		o.VotedOutID = NoOneVotedOut
		o.Tie = true
	}
	o.ImposterWins = o.VotedOutID != imposterID

	return o
}

// Results is everything revealed once a round ends.
type Results struct {
	Outcome
	ImposterID   int          `json:"imposterId"`
	ImposterName string       `json:"imposterName"`
	Content      Content      `json:"roundContent"`
	Votes        map[int]int  `json:"votes"`
	Players      []PlayerView `json:"players"`
}
