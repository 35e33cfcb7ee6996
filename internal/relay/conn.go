package relay

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 1 << 20
)

// JoinParams is what a player asks for when connecting.
type JoinParams struct {
	Name  string
	Bot   bool
	Token string // seat token from an earlier init, to take the seat back
}

// Conn is one player's websocket. Writes from the match loop and pings are
// serialised by writeMu.
type Conn struct {
	ws      *websocket.Conn
	params  JoinParams
	limiter *rate.Limiter
	writeMu sync.Mutex

	seat int
}

func newConn(ws *websocket.Conn, p JoinParams, s Settings) *Conn {
	return &Conn{
		ws:      ws,
		params:  p,
		limiter: rate.NewLimiter(rate.Limit(s.MsgRate), s.MsgBurst),
		seat:    -1,
	}
}

func (c *Conn) write(msg []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, msg)
}

func (c *Conn) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (c *Conn) closeWith(code int, reason string) {
	c.writeMu.Lock()
	c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
	c.writeMu.Unlock()
	c.ws.Close()
}
