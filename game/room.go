/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"math/rand/v2"
	"sync"
	"time"
)

const DefaultMinPlayers = 4

type ballot struct {
	voter  string
	target int
}

// Room is one game session. All exported methods are safe for concurrent use
// and either fully apply or leave the room untouched.
type Room struct {
	code       string
	host       string
	mode       Mode
	minPlayers int
	intn       func(n int) int
	now        func() time.Time

	mu         sync.Mutex
	phase      Phase
	players    []*Player
	byConn     map[string]*Player
	nextID     int
	content    *Content
	imposter   *Player
	ballots    []ballot
	readySent  bool
	createdAt  time.Time
	lastActive time.Time
}

// RoundView describes a freshly started round.
type RoundView struct {
	Mode         Mode `json:"gameType"`
	TotalPlayers int  `json:"totalPlayers"`
}

// RoleView is the private payload a player sees when they look at their role.
type RoleView struct {
	IsImposter bool   `json:"isImposter"`
	Data       string `json:"data"`
}

type VotingView struct {
	Players    []PlayerView `json:"players"`
	TotalVotes int          `json:"totalVotes"`
}

// TallyView is the state of one target's count after a vote changes.
type TallyView struct {
	TargetID       int `json:"targetId"`
	Votes          int `json:"votes"`
	TotalVotesCast int `json:"totalVotesCast"`
	VotesRemaining int `json:"votesRemaining"`
}

// VoteOutcome is returned by CastVote. Results is set only by the vote that completed the round.
type VoteOutcome struct {
	Tally   TallyView
	Results *Results
}

// Removal is what the rest of the room needs to know after a player leaves.
type Removal struct {
	Player   PlayerView
	Roster   []PlayerView
	Results  *Results
	AllReady bool
}

// Replay is returned by PlayAgain. Lobby is set instead of Round when the
// room went back to waiting for players.
type Replay struct {
	Round  RoundView
	Lobby  *View
	Reason string
}

// View is a read-only snapshot of a room.
type View struct {
	Code      string       `json:"roomCode"`
	Mode      Mode         `json:"gameType"`
	Phase     Phase        `json:"phase"`
	Players   []PlayerView `json:"players"`
	VotesCast int          `json:"totalVotesCast"`
}

func newRoom(code, host string, mode Mode, minPlayers int, intn func(int) int, now func() time.Time) *Room {
	if minPlayers <= 0 {
		minPlayers = DefaultMinPlayers
	}
	if intn == nil {
		intn = rand.IntN
	}
	if now == nil {
		now = time.Now
	}

	t := now()
	return &Room{
		code:       code,
		host:       host,
		mode:       mode,
		minPlayers: minPlayers,
		intn:       intn,
		now:        now,
		phase:      PhaseWaiting,
		byConn:     make(map[string]*Player),
		createdAt:  t,
		lastActive: t,
	}
}

func (r *Room) Code() string { return r.code }

func (r *Room) Mode() Mode { return r.mode }

// IsHost reports whether conn created this room.
func (r *Room) IsHost(conn string) bool { return r.host == conn }

func (r *Room) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.phase
}

func (r *Room) LastActive() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.lastActive
}

// Player returns the public view of the player behind conn.
func (r *Room) Player(conn string) (PlayerView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byConn[conn]
	if !ok {
		return PlayerView{}, false
	}
	return r.viewLocked(p), true
}

func (r *Room) Snapshot() View {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.snapshotLocked()
}

func (r *Room) snapshotLocked() View {
	return View{
		Code:      r.code,
		Mode:      r.mode,
		Phase:     r.phase,
		Players:   r.rosterLocked(),
		VotesCast: len(r.ballots),
	}
}

// Tally returns the vote count of every current player.
func (r *Room) Tally() map[int]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.tallyLocked()
}

// AddPlayer seats conn as the next player. name must already be normalized.
func (r *Room) AddPlayer(conn, name string) (PlayerView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != PhaseWaiting {
		return PlayerView{}, ErrGameInProgress
	}
	if _, ok := r.byConn[conn]; ok {
		return PlayerView{}, ErrAlreadyInRoom
	}

	p := &Player{ID: r.nextID, ConnID: conn, Name: name}
	r.nextID++
	r.players = append(r.players, p)
	r.byConn[conn] = p
	r.touchLocked()

	return r.viewLocked(p), nil
}

// RemovePlayer drops a non-host player. Ballots cast by the leaver are
// retracted, and ballots cast for the leaver are handed back to their voters.
func (r *Room) RemovePlayer(conn string) (Removal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byConn[conn]
	if !ok {
		return Removal{}, ErrPlayerNotFound
	}
	if conn == r.host {
		return Removal{}, ErrHostOnly
	}

	left := r.viewLocked(p)

	delete(r.byConn, conn)
	for i, q := range r.players {
		if q == p {
			r.players = append(r.players[:i], r.players[i+1:]...)
			break
		}
	}

	kept := r.ballots[:0]
	for _, b := range r.ballots {
		switch {
		case b.voter == conn:
		case b.target == p.ID:
			if voter, ok := r.byConn[b.voter]; ok {
				voter.voted = false
			}
		default:
			kept = append(kept, b)
		}
	}
	r.ballots = kept
	r.touchLocked()

	rem := Removal{Player: left}
	if r.phase == PhaseVoting && len(r.ballots) == len(r.players) {
		res := r.finishLocked()
		rem.Results = &res
	}
	if r.phase == PhaseRevealing && !r.readySent && r.allReadyLocked() {
		r.readySent = true
		rem.AllReady = true
	}
	rem.Roster = r.rosterLocked()

	return rem, nil
}

// StartRound deals roles for a new round.
func (r *Room) StartRound(conn string, content Content) (RoundView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.authorizeHostLocked(conn); err != nil {
		return RoundView{}, err
	}
	if r.phase != PhaseWaiting {
		return RoundView{}, ErrGameInProgress
	}

	return r.beginRoundLocked(content)
}

// Role returns the caller's role for the current round.
func (r *Room) Role(conn string) (RoleView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byConn[conn]
	if !ok {
		return RoleView{}, ErrPlayerNotFound
	}
	if r.content == nil {
		return RoleView{}, ErrRoundNotStarted
	}

	if p.stage < StageRoleSeen {
		p.stage = StageRoleSeen
	}
	r.touchLocked()

	if p == r.imposter {
		return RoleView{IsImposter: true, Data: r.content.alternate(r.mode)}, nil
	}
	return RoleView{Data: r.content.primary(r.mode)}, nil
}

// MarkReady records that the caller has seen their role. It returns true
// exactly once per round, when the last player becomes ready.
func (r *Room) MarkReady(conn string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byConn[conn]
	if !ok {
		return false, ErrPlayerNotFound
	}
	if r.content == nil {
		return false, ErrRoundNotStarted
	}

	p.stage = StageReady
	r.touchLocked()

	if r.phase != PhaseRevealing || r.readySent || !r.allReadyLocked() {
		return false, nil
	}
	r.readySent = true
	return true, nil
}

// RevealQuestions returns both prompts of a question round.
func (r *Room) RevealQuestions(conn string) (Content, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.authorizeHostLocked(conn); err != nil {
		return Content{}, err
	}
	if r.mode != ModeQuestion {
		return Content{}, ErrQuestionModeOnly
	}
	if r.content == nil {
		return Content{}, ErrRoundNotStarted
	}
	r.touchLocked()

	return *r.content, nil
}

// StartVoting opens, or reopens, the vote for the current round.
func (r *Room) StartVoting(conn string) (VotingView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.authorizeHostLocked(conn); err != nil {
		return VotingView{}, err
	}
	if r.content == nil {
		return VotingView{}, ErrRoundNotStarted
	}
	if r.phase != PhaseRevealing && r.phase != PhaseVoting {
		return VotingView{}, ErrRoundNotStarted
	}

	r.ballots = nil
	for _, p := range r.players {
		p.voted = false
	}
	r.phase = PhaseVoting
	r.touchLocked()

	return VotingView{Players: r.rosterLocked(), TotalVotes: len(r.players)}, nil
}

// CastVote records the caller's vote against targetID. The vote that brings
// the ballot count up to the player count ends the round.
func (r *Room) CastVote(conn string, targetID int) (VoteOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != PhaseVoting {
		return VoteOutcome{}, ErrVotingUnavailable
	}
	voter, ok := r.byConn[conn]
	if !ok {
		return VoteOutcome{}, ErrPlayerNotFound
	}
	if voter.voted {
		return VoteOutcome{}, ErrAlreadyVoted
	}
	if len(r.ballots) >= len(r.players) {
		return VoteOutcome{}, ErrVotingComplete
	}
	if r.playerByIDLocked(targetID) == nil {
		return VoteOutcome{}, ErrTargetNotFound
	}

	voter.voted = true
	r.ballots = append(r.ballots, ballot{voter: conn, target: targetID})
	r.touchLocked()

	out := VoteOutcome{Tally: r.tallyViewLocked(targetID)}
	if len(r.ballots) == len(r.players) {
		res := r.finishLocked()
		out.Results = &res
	}

	return out, nil
}

// SubtractVote takes one vote away from targetID. The most recent ballot for
// the target is discarded; its voter is not allowed to vote again.
func (r *Room) SubtractVote(conn string, targetID int) (TallyView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != PhaseVoting {
		return TallyView{}, ErrVotingUnavailable
	}
	if _, ok := r.byConn[conn]; !ok {
		return TallyView{}, ErrPlayerNotFound
	}

	for i := len(r.ballots) - 1; i >= 0; i-- {
		if r.ballots[i].target == targetID {
			r.ballots = append(r.ballots[:i], r.ballots[i+1:]...)
			r.touchLocked()
			return r.tallyViewLocked(targetID), nil
		}
	}

	return TallyView{}, ErrNoVotesForTarget
}

// RevealResults ends the vote early.
func (r *Room) RevealResults(conn string) (Results, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.authorizeHostLocked(conn); err != nil {
		return Results{}, err
	}
	if r.phase != PhaseVoting {
		return Results{}, ErrVotingUnavailable
	}

	return r.finishLocked(), nil
}

// PlayAgain clears the finished round and deals a new one to the same
// players. If too few players remain the room goes back to waiting so that
// new players can join, and Replay.Lobby describes it.
func (r *Room) PlayAgain(conn string, content Content) (Replay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.authorizeHostLocked(conn); err != nil {
		return Replay{}, err
	}
	if r.phase != PhaseEnded {
		return Replay{}, ErrRoundNotOver
	}
	if err := content.Validate(r.mode); err != nil {
		return Replay{}, err
	}

	r.resetRoundLocked()
	r.phase = PhaseWaiting
	r.touchLocked()

	if len(r.players) < r.minPlayers {
		lobby := r.snapshotLocked()
		return Replay{Lobby: &lobby, Reason: NotEnoughPlayersError(r.minPlayers).Message}, nil
	}

	round, err := r.beginRoundLocked(content)
	if err != nil {
		return Replay{}, err
	}
	return Replay{Round: round}, nil
}

// End checks that conn may end the game. Removing the room is up to the registry.
func (r *Room) End(conn string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.authorizeHostLocked(conn)
}

func (r *Room) beginRoundLocked(content Content) (RoundView, error) {
	if len(r.players) < r.minPlayers {
		return RoundView{}, NotEnoughPlayersError(r.minPlayers)
	}
	if err := content.Validate(r.mode); err != nil {
		return RoundView{}, err
	}

	r.resetRoundLocked()
	r.content = &content
	r.imposter = r.players[r.intn(len(r.players))]
	r.phase = PhaseRevealing
	r.touchLocked()

	return RoundView{Mode: r.mode, TotalPlayers: len(r.players)}, nil
}

func (r *Room) resetRoundLocked() {
	r.content = nil
	r.imposter = nil
	r.ballots = nil
	r.readySent = false
	for _, p := range r.players {
		p.resetRound()
	}
}

func (r *Room) finishLocked() Results {
	r.phase = PhaseEnded
	r.touchLocked()

	votes := r.tallyLocked()
	res := Results{
		Outcome: TallyVotes(votes, r.imposter.ID),
		Votes:   votes,
		Players: r.rosterLocked(),
	}
	res.ImposterID = r.imposter.ID
	res.ImposterName = r.imposter.Name
	if r.content != nil {
		res.Content = *r.content
	}

	return res
}

func (r *Room) authorizeHostLocked(conn string) error {
	if _, ok := r.byConn[conn]; !ok {
		return ErrPlayerNotFound
	}
	if conn != r.host {
		return ErrHostOnly
	}
	return nil
}

func (r *Room) allReadyLocked() bool {
	for _, p := range r.players {
		if p.stage != StageReady {
			return false
		}
	}
	return len(r.players) > 0
}

func (r *Room) playerByIDLocked(id int) *Player {
	for _, p := range r.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r *Room) tallyLocked() map[int]int {
	votes := make(map[int]int, len(r.players))
	for _, p := range r.players {
		votes[p.ID] = 0
	}
	for _, b := range r.ballots {
		votes[b.target]++
	}
	return votes
}

func (r *Room) tallyViewLocked(target int) TallyView {
	count := 0
	for _, b := range r.ballots {
		if b.target == target {
			count++
		}
	}

	return TallyView{
		TargetID:       target,
		Votes:          count,
		TotalVotesCast: len(r.ballots),
		VotesRemaining: len(r.players) - len(r.ballots),
	}
}

func (r *Room) viewLocked(p *Player) PlayerView {
	v := PlayerView{
		ID:          p.ID,
		Name:        p.Name,
		IsHost:      p.ConnID == r.host,
		HasRevealed: p.stage >= StageRoleSeen,
		IsReady:     p.stage == StageReady,
		HasVoted:    p.voted,
	}
	// Only reveal the imposter once the round is over.
	if r.phase == PhaseEnded && p == r.imposter {
		v.IsImposter = true
	}
	return v
}

func (r *Room) rosterLocked() []PlayerView {
	roster := make([]PlayerView, 0, len(r.players))
	for _, p := range r.players {
		roster = append(roster, r.viewLocked(p))
	}
	return roster
}

func (r *Room) touchLocked() {
	r.lastActive = r.now()
}
