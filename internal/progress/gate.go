package progress

import (
	"context"
	"sync"
)

// Gate is a single-slot, FIFO-fair mutex: only one caller may hold it at a
// time, and callers that arrive while it is held are released in the
// order they asked, not in whatever order the runtime happens to wake
// goroutines. This is the "global single-slot Translation Gate" — only
// one translation job is ever ACTIVE at once, and everything else queues.
type Gate struct {
	mu      sync.Mutex
	held    bool
	waiters []chan struct{}
}

// NewGate returns an unheld Gate.
func NewGate() *Gate {
	return &Gate{}
}

// Acquire blocks until the gate is free and this caller is next in the
// FIFO line, then takes it. It returns a release function that is safe to
// call more than once — only the first call has any effect — so a
// deferred release can never double-release a slot some other acquirer
// has since taken. Acquire returns ctx.Err() if ctx is cancelled before
// the caller's turn comes up, without disturbing the line behind it.
func (g *Gate) Acquire(ctx context.Context) (release func(), err error) {
	g.mu.Lock()
	if !g.held {
		g.held = true
		g.mu.Unlock()
		return g.releaseFunc(), nil
	}

	wait := make(chan struct{})
	g.waiters = append(g.waiters, wait)
	g.mu.Unlock()

	select {
	case <-wait:
		return g.releaseFunc(), nil
	case <-ctx.Done():
		g.cancelWaiter(wait)
		return func() {}, ctx.Err()
	}
}

// TryAcquire attempts to take the gate without blocking. It fails if the
// gate is currently held, even if the waiter queue is empty — a busy gate
// is busy regardless of who else is waiting.
func (g *Gate) TryAcquire() (release func(), ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held {
		return nil, false
	}
	g.held = true
	return g.releaseFunc(), true
}

// Holding reports whether the gate is currently held by anyone.
func (g *Gate) Holding() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held
}

// QueueDepth reports how many callers are currently waiting in line.
func (g *Gate) QueueDepth() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.waiters)
}

func (g *Gate) releaseFunc() func() {
	var once sync.Once
	return func() {
		once.Do(g.release)
	}
}

func (g *Gate) release() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.waiters) == 0 {
		g.held = false
		return
	}
	next := g.waiters[0]
	g.waiters = g.waiters[1:]
	// held stays true: the slot passes directly to next without a gap in
	// which a concurrent Acquire could jump the line.
	close(next)
}

func (g *Gate) cancelWaiter(wait chan struct{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, w := range g.waiters {
		if w == wait {
			g.waiters = append(g.waiters[:i], g.waiters[i+1:]...)
			return
		}
	}
	// Already popped by a concurrent release racing this cancellation;
	// drain the handoff so the slot isn't leaked.
	select {
	case <-wait:
		g.held = false
		if len(g.waiters) > 0 {
			next := g.waiters[0]
			g.waiters = g.waiters[1:]
			g.held = true
			close(next)
		}
	default:
	}
}
