package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Scrimzay/ballwars/internal/session"
	"github.com/Scrimzay/ballwars/internal/terrain"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const watchdogTick = 100 * time.Millisecond

type seat struct {
	name  string
	bot   bool
	token string
	conn  *Conn
}

type joinReq struct {
	conn  *Conn
	reply chan error
}

type inbound struct {
	conn *Conn
	msg  []byte
}

// Match relays one game between its seats. It is the turn authority: it
// decides whose turn it is, tells everyone, and cuts turns that stall.
// All mutation happens on the Run goroutine; mu lets HTTP handlers read.
type Match struct {
	ID      string
	Created time.Time

	settings Settings
	logger   *log.Logger

	register   chan joinReq
	unregister chan *Conn
	inbound    chan inbound
	done       chan struct{}

	mu       sync.RWMutex
	seed     uint32
	seats    []seat
	turn     int
	started  bool
	deadline time.Time
	ops      []terrain.Op
	balls    []session.WireBall
}

func newMatch(id string, seed uint32, opts MatchOptions, s Settings, logger *log.Logger) *Match {
	m := &Match{
		ID:         id,
		Created:    time.Now(),
		settings:   s,
		logger:     logger.With("match", id[:8]),
		register:   make(chan joinReq),
		unregister: make(chan *Conn),
		inbound:    make(chan inbound, 64),
		done:       make(chan struct{}),
		seed:       seed,
		seats:      make([]seat, opts.Teams),
	}
	for i := range m.seats {
		m.seats[i] = seat{
			name:  fmt.Sprintf("Player %d", i+1),
			token: uuid.NewString(),
		}
		if i < len(opts.Names) && opts.Names[i] != "" {
			m.seats[i].name = opts.Names[i]
		}
		if i < len(opts.Bots) {
			m.seats[i].bot = opts.Bots[i]
		}
	}
	return m
}

func (m *Match) Run(ctx context.Context) {
	stateTicker := time.NewTicker(m.settings.StateInterval)
	watchdog := time.NewTicker(min(watchdogTick, m.settings.StateInterval))
	pinger := time.NewTicker(pingPeriod)
	defer func() {
		stateTicker.Stop()
		watchdog.Stop()
		pinger.Stop()
		close(m.done)
		m.closeAll()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case req := <-m.register:
			req.reply <- m.handleJoin(req.conn, time.Now())

		case c := <-m.unregister:
			m.handleLeave(c, time.Now())

		case in := <-m.inbound:
			m.handle(in, time.Now())

		case now := <-stateTicker.C:
			m.mu.RLock()
			started := m.started
			state := m.stateLocked(now)
			m.mu.RUnlock()
			if started {
				m.broadcast(state, nil)
			}

		case now := <-watchdog.C:
			m.checkDeadline(now)

		case <-pinger.C:
			for _, c := range m.conns(nil) {
				if err := c.ping(); err != nil {
					m.logger.Debug("ping failed", "seat", c.seat, "err", err)
				}
			}
		}
	}
}

// Serve seats the player on ws and reads until the connection drops.
func (m *Match) Serve(ws *websocket.Conn, p JoinParams) error {
	c := newConn(ws, p, m.settings)
	if err := m.join(c); err != nil {
		c.closeWith(websocket.CloseTryAgainLater, err.Error())
		return err
	}
	defer m.leave(c)

	ws.SetReadLimit(maxMessageSize)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		msgType, msg, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				m.logger.Debug("read error", "seat", c.seat, "err", err)
			}
			return nil
		}
		if msgType != websocket.TextMessage {
			continue
		}
		m.deliver(c, msg)
	}
}

func (m *Match) join(c *Conn) error {
	req := joinReq{conn: c, reply: make(chan error, 1)}
	select {
	case m.register <- req:

	case <-m.done:
		return ErrHubClosed
	}
	return <-req.reply
}

func (m *Match) leave(c *Conn) {
	select {
	case m.unregister <- c:

	case <-m.done:
	}
}

func (m *Match) deliver(c *Conn, msg []byte) {
	if !c.limiter.Allow() {
		m.logger.Debug("rate limited", "seat", c.seat)
		return
	}
	select {
	case m.inbound <- inbound{conn: c, msg: msg}:

	case <-m.done:
	}
}

// pickSeat returns the seat for p, or -1. A valid token takes back its own
// seat; otherwise the first free seat of the right kind is used. Humans and
// bots never take each other's seats.
func (m *Match) pickSeat(p JoinParams) int {
	if p.Token != "" {
		for i, s := range m.seats {
			if s.token == p.Token && s.conn == nil {
				return i
			}
		}
	}
	for i, s := range m.seats {
		if s.conn == nil && s.bot == p.Bot {
			return i
		}
	}
	return -1
}

// Vacancy reports whether a player of this kind could join right now.
func (m *Match) Vacancy(bot bool) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pickSeat(JoinParams{Bot: bot}) >= 0
}

func (m *Match) handleJoin(c *Conn, now time.Time) error {
	m.mu.Lock()
	idx := m.pickSeat(c.params)
	if idx < 0 {
		m.mu.Unlock()
		return ErrMatchFull
	}
	wasEmpty := m.connectedLocked() == 0
	s := &m.seats[idx]
	s.conn = c
	if c.params.Name != "" {
		s.name = c.params.Name
	}
	c.seat = idx
	if !m.started || wasEmpty {
		m.started = true
		m.startTurnLocked(now)
	}
	welcome := m.welcomeLocked(idx, now)
	name := s.name
	m.mu.Unlock()

	m.logger.Info("player joined", "seat", idx, "name", name, "bot", c.params.Bot)
	for _, msg := range welcome {
		if err := c.write(msg); err != nil {
			m.logger.Warn("welcome failed", "seat", idx, "err", err)
			break
		}
	}
	return nil
}

// welcomeLocked is what a joining player is sent: identity, the terrain
// log, the last ball snapshot and the current turn.
func (m *Match) welcomeLocked(idx int, now time.Time) [][]byte {
	names := make([]string, len(m.seats))
	bots := make([]bool, len(m.seats))
	for i, s := range m.seats {
		names[i] = s.name
		bots[i] = s.bot
	}
	out := [][]byte{mustJSON(session.InitWire{
		Type:          session.TypeInit,
		MyPlayerIndex: &idx,
		PlayerNames:   session.JoinNames(names),
		PlayerBots:    session.JoinBots(bots),
		RNGSeed:       m.seed,
		Token:         m.seats[idx].token,
	})}
	if len(m.ops) > 0 {
		out = append(out, mustJSON(session.TerrainWire{Type: session.TypeTerrainSync, Log: terrain.EncodeOps(m.ops)}))
	}
	if len(m.balls) > 0 {
		out = append(out, mustJSON(session.ResyncWire{
			Type:                session.TypeGameResync,
			Balls:               m.balls,
			CurrentTurnIndex:    m.turn,
			Phase:               "aiming",
			TurnTimeRemainingMs: session.Millis(m.remainingLocked(now).Seconds()),
		}))
	}
	return append(out, m.stateLocked(now))
}

func (m *Match) handleLeave(c *Conn, now time.Time) {
	m.mu.Lock()
	idx := c.seat
	left := idx >= 0 && idx < len(m.seats) && m.seats[idx].conn == c
	if left {
		m.seats[idx].conn = nil
		if idx == m.turn {
			if vacant := now.Add(m.settings.VacantTurn); vacant.Before(m.deadline) {
				m.deadline = vacant
			}
		}
	}
	m.mu.Unlock()

	c.ws.Close()
	if left {
		m.logger.Info("player left", "seat", idx)
	}
}

func (m *Match) handle(in inbound, now time.Time) {
	msg, err := session.Decode(in.msg)
	if err != nil {
		m.logger.Debug("dropped message", "seat", in.conn.seat, "err", err)
		return
	}
	seat := in.conn.seat

	m.mu.RLock()
	owner := seat == m.turn
	teams := len(m.seats)
	m.mu.RUnlock()

	switch msg := msg.(type) {
	case session.InputEvent, session.Aim:
		if !owner {
			m.logger.Debug("ignoring action out of turn", "seat", seat, "type", msg.Type())
			return
		}
		out, err := withTurnIndex(in.msg, seat)
		if err != nil {
			m.logger.Debug("dropped message", "seat", seat, "err", err)
			return
		}
		m.broadcast(out, in.conn)

	case session.PosUpdate:
		if teams == 0 || msg.Ball < 0 || msg.Ball%teams != seat {
			return
		}
		m.broadcast(in.msg, in.conn)

	case session.BallState:
		if !owner {
			return
		}
		m.mu.Lock()
		m.balls = mergeBalls(m.balls, msg.Balls)
		m.mu.Unlock()
		m.broadcast(in.msg, in.conn)

	case session.TerrainOps:
		if msg.Sync {
			return
		}
		m.mu.Lock()
		m.ops = mergeOps(m.ops, msg.Ops, owner)
		m.mu.Unlock()
		if owner {
			m.broadcast(in.msg, in.conn)
		}

	case session.EndTurn:
		if owner {
			m.advance(now)
		}

	case session.Restart:
		m.restart(msg.Seed, now)

	default:
		m.logger.Debug("ignoring relay-bound message", "seat", seat, "type", msg.Type())
	}
}

// withTurnIndex stamps the sender's seat onto a relayed message.
func withTurnIndex(raw []byte, seat int) ([]byte, error) {
	var f map[string]any
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("restamp: %w", err)
	}
	f["turnIndex"] = seat
	return json.Marshal(f)
}

func (m *Match) startTurnLocked(now time.Time) {
	d := m.settings.TurnTime
	if m.seats[m.turn].conn == nil {
		d = m.settings.VacantTurn
	}
	m.deadline = now.Add(d)
}

// advance hands the turn to the next seat with a living ball.
func (m *Match) advance(now time.Time) {
	m.mu.Lock()
	prev := m.turn
	m.turn = nextTurn(m.turn, len(m.seats), m.balls)
	m.startTurnLocked(now)
	turn := m.turn
	state := m.stateLocked(now)
	m.mu.Unlock()

	m.logger.Info("turn advanced", "from", prev, "to", turn)
	m.broadcast(mustJSON(session.TurnAdvancedWire{Type: session.TypeTurnAdvanced, TurnIndex: turn}), nil)
	m.broadcast(state, nil)
}

// checkDeadline is the watchdog. A turn whose seat is empty just moves on;
// a connected player who overstays the grace period is forced off first.
func (m *Match) checkDeadline(now time.Time) {
	m.mu.RLock()
	started := m.started
	deadline := m.deadline
	turn := m.turn
	vacant := m.seats[turn].conn == nil
	anyone := m.connectedLocked() > 0
	m.mu.RUnlock()
	if !started || !anyone {
		return
	}

	switch {
	case vacant && now.After(deadline):
		m.advance(now)

	case !vacant && now.After(deadline.Add(m.settings.WatchdogGrace)):
		m.logger.Warn("turn overran, forcing advance", "seat", turn)
		m.broadcast(mustJSON(session.SignalWire{Type: session.TypeForceAdvance}), nil)
		m.advance(now)
	}
}

// restart re-seeds the match. Every peer asks at game over, so a restart
// with the current seed is a repeat and ignored.
func (m *Match) restart(seed uint32, now time.Time) {
	m.mu.Lock()
	if seed == m.seed {
		m.mu.Unlock()
		return
	}
	m.seed = seed
	m.ops = nil
	m.balls = nil
	m.turn = 0
	m.startTurnLocked(now)
	state := m.stateLocked(now)
	m.mu.Unlock()

	m.logger.Info("match restarted", "seed", seed)
	m.broadcast(mustJSON(session.RestartWire{Type: session.TypeRestart, Seed: seed}), nil)
	m.broadcast(state, nil)
}

func (m *Match) stateLocked(now time.Time) []byte {
	return mustJSON(session.StateWire{
		Type:                session.TypeState,
		State:               session.TurnState{CurrentTurnIndex: m.turn},
		TurnTimeRemainingMs: session.Millis(m.remainingLocked(now).Seconds()),
	})
}

func (m *Match) remainingLocked(now time.Time) time.Duration {
	if !m.started {
		return m.settings.TurnTime
	}
	return max(0, m.deadline.Sub(now))
}

func (m *Match) connectedLocked() int {
	n := 0
	for _, s := range m.seats {
		if s.conn != nil {
			n++
		}
	}
	return n
}

func (m *Match) conns(skip *Conn) []*Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Conn, 0, len(m.seats))
	for _, s := range m.seats {
		if s.conn != nil && s.conn != skip {
			out = append(out, s.conn)
		}
	}
	return out
}

// broadcast writes msg to every connected seat but skip. A failed write
// drops the connection through the unregister channel.
func (m *Match) broadcast(msg []byte, skip *Conn) {
	for _, c := range m.conns(skip) {
		if err := c.write(msg); err != nil {
			m.logger.Debug("broadcast error", "seat", c.seat, "err", err)
			go m.leave(c)
		}
	}
}

func (m *Match) closeAll() {
	for _, c := range m.conns(nil) {
		c.closeWith(websocket.CloseGoingAway, "relay shutting down")
	}
}

// SeatInfo and Info describe a match for the HTTP API.
type SeatInfo struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	Bot       bool   `json:"bot"`
	Connected bool   `json:"connected"`
}

type Info struct {
	ID          string     `json:"id"`
	Seed        uint32     `json:"seed"`
	Teams       int        `json:"teams"`
	Turn        int        `json:"currentTurnIndex"`
	RemainingMs int64      `json:"turnTimeRemainingMs"`
	TerrainOps  int        `json:"terrainOps"`
	Seats       []SeatInfo `json:"seats"`
	Created     time.Time  `json:"created"`
}

func (m *Match) Info() Info {
	now := time.Now()
	m.mu.RLock()
	defer m.mu.RUnlock()
	info := Info{
		ID:          m.ID,
		Seed:        m.seed,
		Teams:       len(m.seats),
		Turn:        m.turn,
		RemainingMs: session.Millis(m.remainingLocked(now).Seconds()),
		TerrainOps:  len(m.ops),
		Created:     m.Created,
	}
	for i, s := range m.seats {
		info.Seats = append(info.Seats, SeatInfo{Index: i, Name: s.name, Bot: s.bot, Connected: s.conn != nil})
	}
	return info
}

// TerrainSnapshot is the relay's rebuilt terrain for a match.
type TerrainSnapshot struct {
	Data     []byte
	Width    int
	Height   int
	Checksum string
}

// Terrain regenerates the map from the seed and replays the stored log.
func (m *Match) Terrain() (TerrainSnapshot, error) {
	m.mu.RLock()
	seed := m.seed
	ops := slices.Clone(m.ops)
	m.mu.RUnlock()

	g := terrain.Generate(seed)
	g.Replay(ops)
	data, err := terrain.EncodeSnapshot(g)
	if err != nil {
		return TerrainSnapshot{}, fmt.Errorf("snapshot match %s: %w", m.ID, err)
	}
	return TerrainSnapshot{Data: data, Width: g.Width, Height: g.Height, Checksum: g.Checksum()}, nil
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("relay: marshal %T: %v", v, err))
	}
	return b
}
