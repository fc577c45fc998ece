package client

import (
	"context"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/strataio/cassgo/schema"
)

// idleConn pairs a ready connection with the moment it went idle, so the
// reaper and acquire path can expire it against the idle timeout.
type idleConn struct {
	conn  *Connection
	since time.Time
}

// pool maintains up to MaxSize handshaken connections across the registry's
// nodes. Checkouts prefer idle connections, then grow the pool, then
// block until a release or destroy frees capacity. Connections that come
// back poisoned are destroyed rather than reused.
type pool struct {
	cfg      ClientConfig
	registry *nodeRegistry
	dialer   Dialer
	dec      schema.Decoder
	logger   log.Logger
	metrics  *metrics

	mu      sync.Mutex
	idle    []idleConn
	leases  map[*Connection]struct{}
	total   int
	waiters []chan *Connection
	closed  bool
	drained *sync.Cond

	stopReaper chan struct{}
	reaperDone chan struct{}
}

func newPool(cfg ClientConfig, registry *nodeRegistry, dialer Dialer, dec schema.Decoder, logger log.Logger, m *metrics) *pool {
	p := &pool{
		cfg:        cfg,
		registry:   registry,
		dialer:     dialer,
		dec:        dec,
		logger:     logger,
		metrics:    m,
		leases:     make(map[*Connection]struct{}),
		stopReaper: make(chan struct{}),
		reaperDone: make(chan struct{}),
	}
	p.drained = sync.NewCond(&p.mu)
	go p.reap()
	return p
}

// acquire returns a ready connection, creating one when the pool has room
// and blocking when it does not. Blocked callers are released in FIFO order
// by release and destroy.
func (p *pool) acquire(ctx context.Context) (*Connection, error) {
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil, ErrPoolClosed
		}

		if conn := p.popIdleLocked(); conn != nil {
			p.leases[conn] = struct{}{}
			p.mu.Unlock()
			p.metrics.acquires.Inc()
			return conn, nil
		}

		if p.total < p.cfg.MaxSize {
			p.total++ // reserve the slot before dialing
			p.mu.Unlock()

			conn, err := p.createWithFailover(ctx)
			if err != nil {
				p.mu.Lock()
				p.total--
				p.wakeOneLocked(nil)
				p.mu.Unlock()
				p.metrics.acquireFailures.Inc()
				return nil, err
			}

			p.mu.Lock()
			p.leases[conn] = struct{}{}
			p.mu.Unlock()
			p.metrics.connsOpen.Inc()
			p.metrics.acquires.Inc()
			return conn, nil
		}

		waiter := make(chan *Connection, 1)
		p.waiters = append(p.waiters, waiter)
		p.mu.Unlock()

		select {
		case conn := <-waiter:
			if conn == nil {
				continue // capacity freed, retry the checkout
			}
			p.mu.Lock()
			p.leases[conn] = struct{}{}
			p.mu.Unlock()
			p.metrics.acquires.Inc()
			return conn, nil
		case <-ctx.Done():
			p.abandonWaiter(waiter)
			p.metrics.acquireFailures.Inc()
			return nil, &TransportError{Message: "timed out waiting for a pooled connection", Cause: ctx.Err()}
		}
	}
}

// release returns a checked-out connection to the pool. Poisoned
// connections are destroyed; healthy ones are handed to a waiter or parked
// idle. A connection the pool no longer tracks is ignored.
func (p *pool) release(conn *Connection) {
	p.mu.Lock()
	if _, leased := p.leases[conn]; !leased {
		// Already destroyed, e.g. by a forced shutdown racing this release.
		p.mu.Unlock()
		return
	}
	delete(p.leases, conn)

	if !conn.Ready() || p.closed {
		p.destroyLocked(conn)
		// The freed slot lets a blocked waiter create a replacement.
		p.wakeOneLocked(nil)
		p.mu.Unlock()
		return
	}

	if len(p.waiters) > 0 {
		p.wakeOneLocked(conn)
		p.mu.Unlock()
		return
	}

	p.idle = append(p.idle, idleConn{conn: conn, since: time.Now()})
	p.mu.Unlock()
}

// shutdown closes idle connections immediately, rejects new checkouts, and
// waits for leased connections to come back. Connections still leased when
// the context expires are force-closed.
func (p *pool) shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true

	for _, ic := range p.idle {
		p.destroyLocked(ic.conn)
	}
	p.idle = nil

	for _, w := range p.waiters {
		w <- nil
	}
	p.waiters = nil
	p.mu.Unlock()

	close(p.stopReaper)
	<-p.reaperDone

	done := make(chan struct{})
	go func() {
		p.mu.Lock()
		for p.total > 0 {
			p.drained.Wait()
		}
		p.mu.Unlock()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		p.mu.Lock()
		for conn := range p.leases {
			delete(p.leases, conn)
			p.destroyLocked(conn)
		}
		p.mu.Unlock()
		p.drained.Broadcast()
		level.Warn(p.logger).Log("msg", "shutdown abandoned leased connections", "err", ctx.Err())
		return ctx.Err()
	}
}

// createWithFailover dials candidate nodes in registry order until one
// completes the handshake. Nodes that fail are held down and skipped on the
// next rotation; the attempt count is bounded by the registry size.
func (p *pool) createWithFailover(ctx context.Context) (*Connection, error) {
	tries := p.registry.size()
	var lastErr error

	for i := 0; i < tries; i++ {
		n := p.nextUsable()
		if n == nil {
			break
		}

		cfg := p.cfg.connConfig(HostPort{Host: n.host, Port: n.port})
		tconn, stub, err := p.dialer(ctx, cfg.Host, cfg.Port, cfg.ConnectTimeout)
		if err == nil {
			conn := NewConnection(cfg, tconn, stub, p.dec, p.logger)
			if err = conn.Open(ctx); err == nil {
				return conn, nil
			}
		}

		lastErr = err
		p.registry.blacklist(n, time.Now(), time.Duration(p.cfg.HoldDuration))
		p.metrics.nodeHolds.Inc()
		level.Warn(p.logger).Log("msg", "node held down after failed connect", "node", n.addr(), "err", err)

		if ctx.Err() != nil {
			break
		}
	}

	if lastErr == nil {
		return nil, &TransportError{Message: "all nodes are held down"}
	}
	return nil, &TransportError{Message: "no node accepted a connection", Cause: lastErr}
}

// nextUsable advances the round-robin cursor until it lands on a node whose
// hold has lapsed, giving up after one full rotation.
func (p *pool) nextUsable() *node {
	now := time.Now()
	for i := 0; i < p.registry.size(); i++ {
		n := p.registry.next()
		if p.registry.isUsable(n, now) {
			return n
		}
	}
	return nil
}

// popIdleLocked takes the most recently parked connection, destroying any
// that idled past the timeout on the way.
func (p *pool) popIdleLocked() *Connection {
	now := time.Now()
	for len(p.idle) > 0 {
		last := len(p.idle) - 1
		ic := p.idle[last]
		p.idle = p.idle[:last]
		if now.Sub(ic.since) >= time.Duration(p.cfg.IdleTimeout) {
			p.destroyLocked(ic.conn)
			continue
		}
		return ic.conn
	}
	return nil
}

// wakeOneLocked hands conn to the oldest waiter. A nil conn tells the
// waiter that capacity freed up and it should retry.
func (p *pool) wakeOneLocked(conn *Connection) {
	if len(p.waiters) == 0 {
		if conn != nil {
			p.idle = append(p.idle, idleConn{conn: conn, since: time.Now()})
		}
		return
	}
	w := p.waiters[0]
	p.waiters = p.waiters[1:]
	w <- conn
}

// abandonWaiter removes a timed-out waiter, re-homing any connection that
// was handed over in the race with the timeout.
func (p *pool) abandonWaiter(waiter chan *Connection) {
	p.mu.Lock()
	for i, w := range p.waiters {
		if w == waiter {
			p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
			p.mu.Unlock()
			return
		}
	}
	p.mu.Unlock()

	select {
	case conn := <-waiter:
		if conn != nil {
			p.release(conn)
		}
	default:
	}
}

// destroyLocked closes a connection and gives up its slot. Callers hold
// p.mu.
func (p *pool) destroyLocked(conn *Connection) {
	_ = conn.Close()
	p.total--
	p.metrics.connsOpen.Dec()
	if p.total == 0 {
		p.drained.Broadcast()
	}
}

// reap periodically expires idle connections so the pool shrinks back down
// after a burst.
func (p *pool) reap() {
	defer close(p.reaperDone)

	interval := time.Duration(p.cfg.IdleTimeout) / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.reapOnce(time.Now())
		case <-p.stopReaper:
			return
		}
	}
}

func (p *pool) reapOnce(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	kept := p.idle[:0]
	for _, ic := range p.idle {
		if now.Sub(ic.since) >= time.Duration(p.cfg.IdleTimeout) {
			p.destroyLocked(ic.conn)
			continue
		}
		kept = append(kept, ic)
	}
	p.idle = kept
}
