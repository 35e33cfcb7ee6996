package netclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/Scrimzay/ballwars/internal/session"
	"github.com/Scrimzay/ballwars/internal/terrain"
	"github.com/charmbracelet/log"
	"github.com/coder/websocket"
	"golang.org/x/sync/errgroup"
)

// ErrBackpressure is returned by Send when the write queue is full.
var ErrBackpressure = errors.New("write queue full")

const writeQueue = 256

type Options struct {
	Logger *log.Logger
	Header http.Header
}

// Client is a session.Transport over a websocket to the relay. Reads land
// in an inbox the tick drains; writes are queued so Send never blocks.
type Client struct {
	conn    *websocket.Conn
	inbox   session.Inbox
	writeCh chan []byte
	logger  *log.Logger

	mu     sync.Mutex
	closed bool
}

var _ session.Transport = (*Client)(nil)

// Dial connects to a relay websocket URL. Call Run to start pumping.
func Dial(ctx context.Context, wsURL string, opts Options) (*Client, error) {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPHeader: opts.Header})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}
	conn.SetReadLimit(4 << 20)
	return &Client{
		conn:    conn,
		writeCh: make(chan []byte, writeQueue),
		logger:  opts.Logger,
	}, nil
}

// Run pumps both directions until ctx ends or the connection fails.
func (c *Client) Run(ctx context.Context) error {
	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return c.readLoop(gctx)
	})
	eg.Go(func() error {
		return c.writeLoop(gctx)
	})
	err := eg.Wait()
	c.markClosed()
	if ctx.Err() != nil {
		c.conn.Close(websocket.StatusNormalClosure, "shutdown")
		return nil
	}
	c.conn.CloseNow()
	return err
}

func (c *Client) readLoop(ctx context.Context) error {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read: %w", err)
		}
		c.inbox.Push(data)
	}
}

func (c *Client) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg := <-c.writeCh:
			if err := c.conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return fmt.Errorf("write: %w", err)
			}
		}
	}
}

func (c *Client) Send(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return session.ErrClosed
	}
	select {
	case c.writeCh <- msg:
		return nil

	default:
		c.logger.Warn("dropping outbound message", "queued", len(c.writeCh))
		return ErrBackpressure
	}
}

func (c *Client) Poll() [][]byte {
	return c.inbox.Drain()
}

func (c *Client) markClosed() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// Close ends the connection. Run returns shortly after.
func (c *Client) Close() error {
	c.markClosed()
	return c.conn.Close(websocket.StatusNormalClosure, "bye")
}

// MatchURL builds the websocket URL for joining match id on the relay at
// base, e.g. http://localhost:8000.
func MatchURL(base, id, name string, bot bool) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", fmt.Errorf("parse relay url: %w", err)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"

	default:
		u.Scheme = "ws"
	}
	u.Path += "/matches/" + id + "/ws"
	q := url.Values{}
	if name != "" {
		q.Set("name", name)
	}
	if bot {
		q.Set("bot", "1")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Terrain is the relay's view of a match's terrain.
type Terrain struct {
	Grid     *terrain.Grid
	Checksum string
}

// FetchTerrain downloads the relay's terrain snapshot for match id.
func FetchTerrain(ctx context.Context, client *http.Client, base, id string) (Terrain, error) {
	if client == nil {
		client = http.DefaultClient
	}
	endpoint := strings.TrimRight(base, "/") + "/matches/" + url.PathEscape(id) + "/terrain"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Terrain{}, fmt.Errorf("build terrain request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return Terrain{}, fmt.Errorf("fetch terrain: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Terrain{}, fmt.Errorf("fetch terrain: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Terrain{}, fmt.Errorf("read terrain: %w", err)
	}
	g, err := terrain.DecodeSnapshot(body)
	if err != nil {
		return Terrain{}, err
	}
	sum := resp.Header.Get("X-Terrain-Checksum")
	if sum == "" {
		sum = g.Checksum()
	}
	return Terrain{Grid: g, Checksum: sum}, nil
}

// NewMatch is the body of POST /matches. Zero fields take the relay's
// defaults.
type NewMatch struct {
	Teams int      `json:"teams,omitempty"`
	Seed  *uint32  `json:"seed,omitempty"`
	Names []string `json:"names,omitempty"`
	Bots  []bool   `json:"bots,omitempty"`
}

type MatchInfo struct {
	ID    string `json:"id"`
	Seed  uint32 `json:"seed"`
	Teams int    `json:"teams"`
}

// CreateMatch asks the relay at base for a new match.
func CreateMatch(ctx context.Context, client *http.Client, base string, m NewMatch) (MatchInfo, error) {
	if client == nil {
		client = http.DefaultClient
	}
	body, err := json.Marshal(m)
	if err != nil {
		return MatchInfo{}, fmt.Errorf("encode match request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(base, "/")+"/matches", bytes.NewReader(body))
	if err != nil {
		return MatchInfo{}, fmt.Errorf("build match request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return MatchInfo{}, fmt.Errorf("create match: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return MatchInfo{}, fmt.Errorf("create match: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	var info MatchInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return MatchInfo{}, fmt.Errorf("decode match: %w", err)
	}
	return info, nil
}
