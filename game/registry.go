/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"math/rand/v2"
	"sort"
	"sync"
	"time"
)

const defaultCodeAttempts = 32

type RegistryOptions struct {
	Codes         CodeGenerator
	MinPlayers    int
	MaxNameLength int
	// MaxAttempts bounds how many codes Create tries before giving up.
	MaxAttempts int

	// Intn picks the imposter. Defaults to math/rand/v2.
	Intn func(n int) int
	Now  func() time.Time
}

// Registry holds every live room, keyed by code, and remembers which room
// each connection belongs to. A connection is in at most one room.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room
	conns map[string]string

	codes         CodeGenerator
	minPlayers    int
	maxNameLength int
	maxAttempts   int
	intn          func(n int) int
	now           func() time.Time
}

// Departure describes a connection leaving its room.
type Departure struct {
	Room    *Room
	Player  PlayerView
	WasHost bool
	// Removal is only meaningful when WasHost is false.
	Removal Removal
}

// Summary is a one-line view of a room for logging and health checks.
type Summary struct {
	Code    string `json:"code"`
	Mode    Mode   `json:"mode"`
	Phase   Phase  `json:"phase"`
	Players int    `json:"players"`
}

func NewRegistry(opts RegistryOptions) *Registry {
	r := &Registry{
		rooms:         make(map[string]*Room),
		conns:         make(map[string]string),
		codes:         opts.Codes,
		minPlayers:    opts.MinPlayers,
		maxNameLength: opts.MaxNameLength,
		maxAttempts:   opts.MaxAttempts,
		intn:          opts.Intn,
		now:           opts.Now,
	}

	if r.codes == nil {
		r.codes = NewCodeGenerator(DefaultCodeLength)
	}
	if r.minPlayers <= 0 {
		r.minPlayers = DefaultMinPlayers
	}
	if r.maxNameLength <= 0 {
		r.maxNameLength = DefaultMaxNameLength
	}
	if r.maxAttempts <= 0 {
		r.maxAttempts = defaultCodeAttempts
	}
	if r.intn == nil {
		r.intn = rand.IntN
	}
	if r.now == nil {
		r.now = time.Now
	}

	return r
}

// Create opens a new room with conn as its host and first player.
func (r *Registry) Create(conn, name string, mode Mode) (*Room, PlayerView, error) {
	name, err := NormalizeName(name, r.maxNameLength)
	if err != nil {
		return nil, PlayerView{}, err
	}
	if mode != ModeCategory && mode != ModeQuestion {
		return nil, PlayerView{}, ErrInvalidMode
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[conn]; ok {
		return nil, PlayerView{}, ErrAlreadyInRoom
	}

	code, err := r.uniqueCodeLocked()
	if err != nil {
		return nil, PlayerView{}, err
	}

	room := newRoom(code, conn, mode, r.minPlayers, r.intn, r.now)
	host, err := room.AddPlayer(conn, name)
	if err != nil {
		return nil, PlayerView{}, err
	}

	r.rooms[code] = room
	r.conns[conn] = code

	return room, host, nil
}

func (r *Registry) uniqueCodeLocked() (string, error) {
	for range r.maxAttempts {
		code, err := r.codes.NewCode()
		if err != nil {
			return "", err
		}
		if _, exists := r.rooms[code]; !exists {
			return code, nil
		}
	}

	return "", ErrCodesExhausted
}

// Join seats conn in the room with the given code.
func (r *Registry) Join(conn, code, name string) (*Room, PlayerView, error) {
	name, err := NormalizeName(name, r.maxNameLength)
	if err != nil {
		return nil, PlayerView{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[conn]; ok {
		return nil, PlayerView{}, ErrAlreadyInRoom
	}

	room, ok := r.rooms[NormalizeCode(code)]
	if !ok {
		return nil, PlayerView{}, ErrRoomNotFound
	}

	p, err := room.AddPlayer(conn, name)
	if err != nil {
		return nil, PlayerView{}, err
	}
	r.conns[conn] = room.code

	return room, p, nil
}

func (r *Registry) Find(code string) (*Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[NormalizeCode(code)]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// RoomOf returns the room conn is currently in.
func (r *Registry) RoomOf(conn string) (*Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code, ok := r.conns[conn]
	if !ok {
		return nil, false
	}
	room, ok := r.rooms[code]
	return room, ok
}

// Delete removes the room and forgets all of its connections. It returns nil
// if no such room exists.
func (r *Registry) Delete(code string) *Room {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.deleteLocked(NormalizeCode(code))
}

func (r *Registry) deleteLocked(code string) *Room {
	room, ok := r.rooms[code]
	if !ok {
		return nil
	}

	delete(r.rooms, code)
	for conn, c := range r.conns {
		if c == code {
			delete(r.conns, conn)
		}
	}

	return room
}

// End deletes the room on behalf of its host.
func (r *Registry) End(conn, code string) (*Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code = NormalizeCode(code)
	room, ok := r.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if err := room.End(conn); err != nil {
		return nil, err
	}

	return r.deleteLocked(code), nil
}

// Leave takes conn out of its room. When conn was the host the whole room is
// deleted. The boolean is false if conn was not in a room.
func (r *Registry) Leave(conn string) (Departure, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code, ok := r.conns[conn]
	if !ok {
		return Departure{}, false
	}
	room, ok := r.rooms[code]
	if !ok {
		delete(r.conns, conn)
		return Departure{}, false
	}

	p, _ := room.Player(conn)
	d := Departure{Room: room, Player: p}

	if room.IsHost(conn) {
		d.WasHost = true
		r.deleteLocked(code)
		return d, true
	}

	rem, err := room.RemovePlayer(conn)
	delete(r.conns, conn)
	if err != nil {
		return d, true
	}
	d.Removal = rem

	return d, true
}

// Reap removes every room that has been idle for longer than idle.
func (r *Registry) Reap(idle time.Duration) []*Room {
	if idle <= 0 {
		return nil
	}

	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	defer r.mu.Unlock()

	var reaped []*Room
	for code, room := range r.rooms {
		if room.LastActive().Before(cutoff) {
			reaped = append(reaped, r.deleteLocked(code))
		}
	}

	return reaped
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.rooms)
}

// Summaries lists every live room, sorted by code.
func (r *Registry) Summaries() []Summary {
	r.mu.Lock()
	rooms := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	r.mu.Unlock()

	out := make([]Summary, 0, len(rooms))
	for _, room := range rooms {
		v := room.Snapshot()
		out = append(out, Summary{
			Code:    v.Code,
			Mode:    v.Mode,
			Phase:   v.Phase,
			Players: len(v.Players),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })

	return out
}
