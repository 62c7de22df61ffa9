package ncp

import (
	"context"
	"errors"
	"sync"
)

var errQueueFull = errors.New("ncp: indication queue full")

// Loopback is an in-memory Link. Sent requests are recorded; indications are
// injected by the test or by a peer.
type Loopback struct {
	mu        sync.Mutex
	sent      []DataRequest
	endpoints []SimpleDescriptor
	onSend    func(DataRequest)
	ind       chan Indication
	seq       uint8
	closed    bool
}

// NewLoopback returns a loopback link with an indication queue of size buffer.
func NewLoopback(buffer int) *Loopback {
	return &Loopback{ind: make(chan Indication, buffer)}
}

// Send records req. The payload is copied so callers may reuse their buffer.
func (l *Loopback) Send(ctx context.Context, req DataRequest) (uint8, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return 0, ErrClosed
	}
	req.Payload = append([]byte(nil), req.Payload...)
	l.sent = append(l.sent, req)
	l.seq++
	id := l.seq
	fn := l.onSend
	l.mu.Unlock()
	if fn != nil {
		fn(req)
	}
	return id, nil
}

// OnSend installs a callback run after every Send, outside the link lock.
func (l *Loopback) OnSend(fn func(DataRequest)) {
	l.mu.Lock()
	l.onSend = fn
	l.mu.Unlock()
}

// Sent returns a copy of every request sent so far.
func (l *Loopback) Sent() []DataRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]DataRequest(nil), l.sent...)
}

// Drain returns the requests sent so far and forgets them.
func (l *Loopback) Drain() []DataRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.sent
	l.sent = nil
	return out
}

// Inject queues an inbound indication. It fails rather than blocks when the
// queue is full.
func (l *Loopback) Inject(ind Indication) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	select {
	case l.ind <- ind:
		return nil
	default:
		return errQueueFull
	}
}

func (l *Loopback) Indications() <-chan Indication { return l.ind }

func (l *Loopback) RegisterEndpoint(_ context.Context, sd SimpleDescriptor) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	l.endpoints = append(l.endpoints, sd)
	return nil
}

// Endpoints returns the descriptors registered so far.
func (l *Loopback) Endpoints() []SimpleDescriptor {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]SimpleDescriptor(nil), l.endpoints...)
}

func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		close(l.ind)
	}
	return nil
}
