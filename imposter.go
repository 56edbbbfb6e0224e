// Imposter
//
// One player hosts a room and shares its code. Everyone else joins from their
// own device. Each round the server deals the same secret to every player
// except one, the imposter, who only gets a hint. Players discuss, vote on who
// they think the imposter is, and the results are revealed to the room.
//
// Features:
// - One websocket per client at /imposter/ws, commands tagged by "type"
// - Category rounds (everyone gets an item, the imposter gets its category)
// - Question rounds (the imposter answers a similar but different question)
// - Round content drawn from an embedded catalog, or supplied by the host
// - Rooms are deleted when the host leaves or ends the game
// - Rooms auto-reaped after configurable idle timeout
// - QR code for the join link, backed by go-qrcode

package main

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/Seednode/imposter/game"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const (
	sendBuffer     = 32
	maxMessageSize = 4096
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	qrSize         = 320
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// client is a websocket-backed Conn.
type client struct {
	id   string
	conn *websocket.Conn
	send chan any

	once sync.Once
	done chan struct{}
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		id:   newConnID(),
		conn: conn,
		send: make(chan any, sendBuffer),
		done: make(chan struct{}),
	}
}

func (c *client) ID() string { return c.id }

func (c *client) Send(msg any) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *client) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

func (c *client) readPump(g *Gateway, s *session) {
	defer func() {
		g.Disconnect(s)
		_ = c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		g.Handle(s, data)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func serveWS(cfg *Config, g *Gateway) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "GAMES: Upgrade from %s failed: %v", realIP(r), err)
			return
		}

		c := newClient(conn)
		s := g.Connect(c)

		logf(cfg, "GAMES: Connection %s opened from %s", c.id, realIP(r))

		go c.writePump()
		c.readPump(g, s)

		logf(cfg, "GAMES: Connection %s closed", c.id)
	}
}

// joinURL is the address a player scans to land on the join screen for code.
func joinURL(cfg *Config, r *http.Request, code string) string {
	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	u := url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     cfg.prefix + "/imposter",
		RawQuery: url.Values{"room": []string{code}}.Encode(),
	}

	return u.String()
}

// qrHandler generates a PNG QR code pointing at the join link for a live room.
func qrHandler(cfg *Config, g *Gateway, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code := game.NormalizeCode(ps.ByName("code"))
		if !game.ValidCode(code, cfg.codeLength) {
			http.Error(w, "invalid room code", http.StatusBadRequest)
			return
		}

		if _, err := g.rooms.Find(code); err != nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		png, err := qrcode.Encode(joinURL(cfg, r, code), qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		if _, err := w.Write(png); err != nil {
			errs <- err
		}
	}
}

// registerImposterGame sets up routes so that:
//   - $prefix/imposter          → HTML client
//   - $prefix/imposter/ws       → WebSocket gateway
//   - $prefix/qr/:code          → PNG QR code for that room's join link
//   - $prefix/assets/imposter/* → client scripts and styles
func registerImposterGame(cfg *Config, g *Gateway, mux *httprouter.Router, errs chan<- error) {
	mux.GET(cfg.prefix+"/imposter", serveHomePage(cfg, errs))
	mux.GET(cfg.prefix+"/imposter/ws", serveWS(cfg, g))
	mux.GET(cfg.prefix+"/qr/:code", qrHandler(cfg, g, errs))
	mux.GET(cfg.prefix+"/assets/*asset", serveAssets(cfg, errs))
}
