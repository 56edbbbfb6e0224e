/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/Seednode/imposter/game"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// Conn is one client connection as the gateway sees it. Send must never block;
// it returns false when the message could not be queued.
type Conn interface {
	ID() string
	Send(msg any) bool
	Close() error
}

// session is the per-connection state. room and player are written by other
// goroutines when a room goes away, so they sit behind a mutex.
type session struct {
	conn Conn

	mu     sync.Mutex
	room   string
	player int
}

func (s *session) id() string { return s.conn.ID() }

func (s *session) join(code string, player int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.room = code
	s.player = player
}

func (s *session) leave() {
	s.join("", 0)
}

func (s *session) current() (string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.room, s.player
}

// channel is the set of connections subscribed to one room. Its lock is held
// from the moment a command touches the room until its events are queued, so
// members see events in the order the room changed.
type channel struct {
	mu      sync.Mutex
	code    string
	members map[string]Conn
	closed  bool
}

func (ch *channel) broadcastLocked(msg any) {
	for id, c := range ch.members {
		if !c.Send(msg) {
			delete(ch.members, id)
			_ = c.Close()
		}
	}
}

type handler func(g *Gateway, s *session, msg clientMessage) error

// Gateway routes client commands to rooms and fans the resulting events out
// to every member of the room.
type Gateway struct {
	cfg      *Config
	rooms    *game.Registry
	content  game.ContentProvider
	validate *validator.Validate
	handlers map[string]handler

	mu       sync.Mutex
	sessions map[string]*session
	channels map[string]*channel
}

func NewGateway(cfg *Config, rooms *game.Registry, content game.ContentProvider) *Gateway {
	return &Gateway{
		cfg:      cfg,
		rooms:    rooms,
		content:  content,
		validate: newValidator(cfg.codeLength),
		handlers: map[string]handler{
			"create-room":      handleCreateRoom,
			"join-room":        handleJoinRoom,
			"start-game":       handleStartGame,
			"get-role":         handleGetRole,
			"player-ready":     handlePlayerReady,
			"reveal-questions": handleRevealQuestions,
			"start-voting":     handleStartVoting,
			"cast-vote":        handleCastVote,
			"subtract-vote":    handleSubtractVote,
			"reveal-results":   handleRevealResults,
			"play-again":       handlePlayAgain,
			"end-game":         handleEndGame,
		},
		sessions: make(map[string]*session),
		channels: make(map[string]*channel),
	}
}

func newConnID() string {
	return uuid.NewString()
}

// Connect registers a freshly upgraded connection.
func (g *Gateway) Connect(c Conn) *session {
	s := &session{conn: c}

	g.mu.Lock()
	g.sessions[c.ID()] = s
	g.mu.Unlock()

	return s
}

// Handle decodes one inbound frame and runs its command. Rejections go back
// to the sender only.
func (g *Gateway) Handle(s *session, data []byte) {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		g.reject(s, "", game.ValidationError(msgBadMessage))
		return
	}

	h, ok := g.handlers[msg.Type]
	if !ok {
		g.reject(s, msg.Type, game.ValidationError(msgUnknownType))
		return
	}

	if err := h(g, s, msg); err != nil {
		g.reject(s, msg.Type, err)
	}
}

func (g *Gateway) reject(s *session, command string, err error) {
	code, player := s.current()
	logf(g.cfg, "GAMES: Rejected %q from %s (room %q, player %d): %v", command, s.id(), code, player, err)

	s.conn.Send(simpleMessage{Type: "error", Message: game.Message(err)})
}

func (g *Gateway) lookupSession(id string) (*session, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.sessions[id]
	return s, ok
}

func (g *Gateway) openChannel(code string, c Conn) *channel {
	ch := &channel{
		code:    code,
		members: map[string]Conn{c.ID(): c},
	}

	g.mu.Lock()
	g.channels[code] = ch
	g.mu.Unlock()

	return ch
}

// lockChannel returns the locked channel for code, or ErrRoomNotFound.
func (g *Gateway) lockChannel(code string) (*channel, error) {
	g.mu.Lock()
	ch, ok := g.channels[game.NormalizeCode(code)]
	g.mu.Unlock()

	if !ok {
		return nil, game.ErrRoomNotFound
	}

	ch.mu.Lock()
	if ch.closed {
		ch.mu.Unlock()
		return nil, game.ErrRoomNotFound
	}

	return ch, nil
}

// closeChannelLocked tears down a channel whose room is gone. The caller holds ch.mu.
func (g *Gateway) closeChannelLocked(ch *channel) {
	ch.closed = true

	g.mu.Lock()
	if g.channels[ch.code] == ch {
		delete(g.channels, ch.code)
	}
	for id := range ch.members {
		if s, ok := g.sessions[id]; ok {
			s.leave()
		}
	}
	g.mu.Unlock()

	ch.members = nil
}

// withRoom runs fn with the room's channel locked.
func (g *Gateway) withRoom(code string, fn func(room *game.Room, ch *channel) error) error {
	ch, err := g.lockChannel(code)
	if err != nil {
		return err
	}
	defer ch.mu.Unlock()

	room, err := g.rooms.Find(ch.code)
	if err != nil {
		return err
	}

	return fn(room, ch)
}

// roundContent resolves the content for a new round, generating it when the
// host did not send any.
func (g *Gateway) roundContent(mode game.Mode, supplied *game.Content) (game.Content, error) {
	if supplied != nil {
		return *supplied, nil
	}
	return g.content.Generate(mode)
}

// Disconnect removes a closed connection from its room, deleting the room
// when the host leaves.
func (g *Gateway) Disconnect(s *session) {
	g.mu.Lock()
	delete(g.sessions, s.id())
	g.mu.Unlock()

	room, ok := g.rooms.RoomOf(s.id())
	if !ok {
		return
	}

	ch, err := g.lockChannel(room.Code())
	if err != nil {
		// No channel means nobody to notify; still drop the registry entry.
		g.rooms.Leave(s.id())
		return
	}
	defer ch.mu.Unlock()

	d, ok := g.rooms.Leave(s.id())
	if !ok {
		return
	}

	delete(ch.members, s.id())
	s.leave()

	if d.WasHost {
		logf(g.cfg, "GAMES: Room %s closed, host %s disconnected", ch.code, s.id())

		ch.broadcastLocked(simpleMessage{Type: "host-disconnected", Message: msgHostLeft})
		g.closeChannelLocked(ch)

		return
	}

	logf(g.cfg, "GAMES: %s left room %s", d.Player.Name, ch.code)

	ch.broadcastLocked(playerLeftMessage{
		Type:       "player-left",
		Players:    d.Removal.Roster,
		LeftPlayer: d.Removal.Player,
	})
	if d.Removal.Results != nil {
		ch.broadcastLocked(resultsMessage{Type: "game-ended", Results: *d.Removal.Results})
	}
	if d.Removal.AllReady {
		ch.broadcastLocked(simpleMessage{Type: "all-players-ready", Message: msgAllReady})
	}
}

// Reap expires idle rooms and tells their members.
func (g *Gateway) Reap(idle time.Duration) int {
	reaped := g.rooms.Reap(idle)

	for _, room := range reaped {
		g.mu.Lock()
		ch, ok := g.channels[room.Code()]
		g.mu.Unlock()

		if !ok {
			continue
		}

		ch.mu.Lock()
		if !ch.closed {
			ch.broadcastLocked(simpleMessage{Type: "room-expired", Message: msgRoomExpired})
			g.closeChannelLocked(ch)
		}
		ch.mu.Unlock()

		logf(g.cfg, "GAMES: Room %s expired after %s idle, %d rooms open", room.Code(), idle, g.rooms.Len())
	}

	return len(reaped)
}

// reapLoop periodically removes rooms that have been idle longer than idle.
func (g *Gateway) reapLoop(ctx context.Context, idle time.Duration) {
	ticker := time.NewTicker(max(idle/2, minSessionTimeout/2))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.Reap(idle)

			if g.cfg.verbose {
				for _, sum := range g.rooms.Summaries() {
					logf(g.cfg, "GAMES: Room %s (%s, %s) has %d players", sum.Code, sum.Mode, sum.Phase, sum.Players)
				}
			}
		}
	}
}

// Close disconnects every client.
func (g *Gateway) Close() error {
	g.mu.Lock()
	conns := make([]Conn, 0, len(g.sessions))
	for _, s := range g.sessions {
		conns = append(conns, s.conn)
	}
	g.mu.Unlock()

	var err error
	for _, c := range conns {
		err = multierr.Append(err, c.Close())
	}

	return err
}

func handleCreateRoom(g *Gateway, s *session, msg clientMessage) error {
	req := createRoomRequest{Mode: msg.Mode, PlayerName: msg.PlayerName}
	if err := checkRequest(g.validate, req); err != nil {
		return err
	}

	mode, err := game.ParseMode(req.Mode)
	if err != nil {
		return err
	}

	room, host, err := g.rooms.Create(s.id(), req.PlayerName, mode)
	if err != nil {
		return err
	}

	ch := g.openChannel(room.Code(), s.conn)
	ch.mu.Lock()
	defer ch.mu.Unlock()

	s.join(room.Code(), host.ID)

	logf(g.cfg, "GAMES: Room %s (%s) created by %s", room.Code(), mode, host.Name)

	s.conn.Send(roomJoinedMessage{
		Type:     "room-created",
		RoomCode: room.Code(),
		PlayerID: host.ID,
		IsHost:   true,
		Mode:     mode,
		Players:  room.Snapshot().Players,
	})

	return nil
}

func handleJoinRoom(g *Gateway, s *session, msg clientMessage) error {
	req := joinRoomRequest{RoomCode: msg.RoomCode, PlayerName: msg.PlayerName}
	if err := checkRequest(g.validate, req); err != nil {
		return err
	}

	ch, err := g.lockChannel(req.RoomCode)
	if err != nil {
		return err
	}
	defer ch.mu.Unlock()

	room, p, err := g.rooms.Join(s.id(), ch.code, req.PlayerName)
	if err != nil {
		return err
	}

	ch.members[s.id()] = s.conn
	s.join(room.Code(), p.ID)

	logf(g.cfg, "GAMES: %s joined room %s", p.Name, room.Code())

	view := room.Snapshot()

	s.conn.Send(roomJoinedMessage{
		Type:     "room-joined",
		RoomCode: room.Code(),
		PlayerID: p.ID,
		Mode:     room.Mode(),
		Players:  view.Players,
	})

	ch.broadcastLocked(playerJoinedMessage{
		Type:      "player-joined",
		Players:   view.Players,
		NewPlayer: p,
	})

	return nil
}

func handleStartGame(g *Gateway, s *session, msg clientMessage) error {
	req := roundRequest{RoomCode: msg.RoomCode, RoundContent: msg.RoundContent}
	if err := checkRequest(g.validate, req); err != nil {
		return err
	}

	return g.withRoom(req.RoomCode, func(room *game.Room, ch *channel) error {
		content, err := g.roundContent(room.Mode(), req.RoundContent)
		if err != nil {
			return err
		}

		round, err := room.StartRound(s.id(), content)
		if err != nil {
			return err
		}

		logf(g.cfg, "GAMES: Round started in room %s with %d players", room.Code(), round.TotalPlayers)

		ch.broadcastLocked(roundMessage{Type: "game-started", RoundView: round})

		return nil
	})
}

func handleGetRole(g *Gateway, s *session, msg clientMessage) error {
	req := roomRequest{RoomCode: msg.RoomCode}
	if err := checkRequest(g.validate, req); err != nil {
		return err
	}

	return g.withRoom(req.RoomCode, func(room *game.Room, ch *channel) error {
		role, err := room.Role(s.id())
		if err != nil {
			return err
		}

		s.conn.Send(roleMessage{Type: "role-revealed", RoleView: role})

		return nil
	})
}

func handlePlayerReady(g *Gateway, s *session, msg clientMessage) error {
	req := roomRequest{RoomCode: msg.RoomCode}
	if err := checkRequest(g.validate, req); err != nil {
		return err
	}

	return g.withRoom(req.RoomCode, func(room *game.Room, ch *channel) error {
		allReady, err := room.MarkReady(s.id())
		if err != nil {
			return err
		}

		if allReady {
			ch.broadcastLocked(simpleMessage{Type: "all-players-ready", Message: msgAllReady})
		}

		return nil
	})
}

func handleRevealQuestions(g *Gateway, s *session, msg clientMessage) error {
	req := roomRequest{RoomCode: msg.RoomCode}
	if err := checkRequest(g.validate, req); err != nil {
		return err
	}

	return g.withRoom(req.RoomCode, func(room *game.Room, ch *channel) error {
		content, err := room.RevealQuestions(s.id())
		if err != nil {
			return err
		}

		ch.broadcastLocked(questionsMessage{Type: "questions-revealed", RoundContent: content})

		return nil
	})
}

func handleStartVoting(g *Gateway, s *session, msg clientMessage) error {
	req := roomRequest{RoomCode: msg.RoomCode}
	if err := checkRequest(g.validate, req); err != nil {
		return err
	}

	return g.withRoom(req.RoomCode, func(room *game.Room, ch *channel) error {
		voting, err := room.StartVoting(s.id())
		if err != nil {
			return err
		}

		ch.broadcastLocked(votingMessage{Type: "voting-started", VotingView: voting})

		return nil
	})
}

func handleCastVote(g *Gateway, s *session, msg clientMessage) error {
	req := voteRequest{RoomCode: msg.RoomCode, TargetID: msg.TargetID}
	if err := checkRequest(g.validate, req); err != nil {
		return err
	}

	return g.withRoom(req.RoomCode, func(room *game.Room, ch *channel) error {
		out, err := room.CastVote(s.id(), *req.TargetID)
		if err != nil {
			return err
		}

		ch.broadcastLocked(tallyMessage{Type: "vote-cast", TallyView: out.Tally})

		if out.Results != nil {
			logf(g.cfg, "GAMES: Voting complete in room %s", room.Code())

			ch.broadcastLocked(resultsMessage{Type: "game-ended", Results: *out.Results})
		}

		return nil
	})
}

func handleSubtractVote(g *Gateway, s *session, msg clientMessage) error {
	req := voteRequest{RoomCode: msg.RoomCode, TargetID: msg.TargetID}
	if err := checkRequest(g.validate, req); err != nil {
		return err
	}

	return g.withRoom(req.RoomCode, func(room *game.Room, ch *channel) error {
		tally, err := room.SubtractVote(s.id(), *req.TargetID)
		if err != nil {
			return err
		}

		ch.broadcastLocked(tallyMessage{Type: "vote-subtracted", TallyView: tally})

		return nil
	})
}

func handleRevealResults(g *Gateway, s *session, msg clientMessage) error {
	req := roomRequest{RoomCode: msg.RoomCode}
	if err := checkRequest(g.validate, req); err != nil {
		return err
	}

	return g.withRoom(req.RoomCode, func(room *game.Room, ch *channel) error {
		res, err := room.RevealResults(s.id())
		if err != nil {
			return err
		}

		ch.broadcastLocked(resultsMessage{Type: "game-ended", Results: res})

		return nil
	})
}

func handlePlayAgain(g *Gateway, s *session, msg clientMessage) error {
	req := roundRequest{RoomCode: msg.RoomCode, RoundContent: msg.RoundContent}
	if err := checkRequest(g.validate, req); err != nil {
		return err
	}

	return g.withRoom(req.RoomCode, func(room *game.Room, ch *channel) error {
		content, err := g.roundContent(room.Mode(), req.RoundContent)
		if err != nil {
			return err
		}

		replay, err := room.PlayAgain(s.id(), content)
		if err != nil {
			return err
		}

		if replay.Lobby != nil {
			logf(g.cfg, "GAMES: Room %s back in the lobby with %d players", room.Code(), len(replay.Lobby.Players))

			ch.broadcastLocked(lobbyMessage{Type: "returned-to-lobby", Message: replay.Reason, View: *replay.Lobby})

			return nil
		}

		logf(g.cfg, "GAMES: Room %s restarted with %d players", room.Code(), replay.Round.TotalPlayers)

		ch.broadcastLocked(roundMessage{Type: "game-restarted", RoundView: replay.Round})

		return nil
	})
}

func handleEndGame(g *Gateway, s *session, msg clientMessage) error {
	req := roomRequest{RoomCode: msg.RoomCode}
	if err := checkRequest(g.validate, req); err != nil {
		return err
	}

	ch, err := g.lockChannel(req.RoomCode)
	if err != nil {
		return err
	}
	defer ch.mu.Unlock()

	if _, err := g.rooms.End(s.id(), ch.code); err != nil {
		return err
	}

	logf(g.cfg, "GAMES: Room %s ended by host", ch.code)

	ch.broadcastLocked(simpleMessage{Type: "game-ended-by-host", Message: msgEndedByHost})
	g.closeChannelLocked(ch)

	return nil
}
