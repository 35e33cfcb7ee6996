package session

import (
	"errors"
	"sync"
)

var ErrClosed = errors.New("transport closed")

// Transport moves raw messages between this peer and the relay. Send must
// not block the tick; Poll returns everything received since the last call.
type Transport interface {
	Send(msg []byte) error
	Poll() [][]byte
}

// Inbox is the queue network goroutines push into and the tick drains.
type Inbox struct {
	mu   sync.Mutex
	msgs [][]byte
}

func (in *Inbox) Push(msg []byte) {
	in.mu.Lock()
	in.msgs = append(in.msgs, msg)
	in.mu.Unlock()
}

func (in *Inbox) Drain() [][]byte {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := in.msgs
	in.msgs = nil
	return out
}

func (in *Inbox) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.msgs)
}

// Pipe is one end of an in-memory transport pair.
type Pipe struct {
	inbox  Inbox
	peer   *Pipe
	mu     sync.Mutex
	closed bool
}

// Loopback returns two connected pipes: what one sends the other polls.
func Loopback() (*Pipe, *Pipe) {
	a, b := &Pipe{}, &Pipe{}
	a.peer, b.peer = b, a
	return a, b
}

func (p *Pipe) Send(msg []byte) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrClosed
	}
	p.peer.inbox.Push(append([]byte(nil), msg...))
	return nil
}

func (p *Pipe) Poll() [][]byte {
	return p.inbox.Drain()
}

func (p *Pipe) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

// Discard drops everything sent and never receives.
type Discard struct{}

func (Discard) Send([]byte) error { return nil }

func (Discard) Poll() [][]byte { return nil }
