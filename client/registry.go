package client

import (
	"fmt"
	"sync"
	"time"
)

// node is one configured server endpoint. holdUntil is set by the pool when
// a connection attempt fails; the registry skips the node until it passes.
// Nodes are never removed, only temporarily disabled.
type node struct {
	host      string
	port      int
	holdUntil time.Time
}

func (n *node) addr() string {
	return fmt.Sprintf("%s:%d", n.host, n.port)
}

// nodeRegistry rotates over the configured nodes. Selection never errors;
// exhaustion is detected by the caller counting attempts, not here.
type nodeRegistry struct {
	mu     sync.Mutex
	nodes  []*node
	cursor int
}

func newNodeRegistry(addrs []HostPort) *nodeRegistry {
	nodes := make([]*node, len(addrs))
	for i, a := range addrs {
		nodes[i] = &node{host: a.Host, port: a.Port}
	}
	return &nodeRegistry{nodes: nodes, cursor: -1}
}

// next advances the cursor and returns the node there, wrapping around.
// Pure rotation: no usability filtering.
func (r *nodeRegistry) next() *node {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cursor = (r.cursor + 1) % len(r.nodes)
	return r.nodes[r.cursor]
}

func (r *nodeRegistry) size() int {
	return len(r.nodes)
}

// isUsable reports whether the node's hold-down, if any, has expired.
func (r *nodeRegistry) isUsable(n *node, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return n.holdUntil.IsZero() || !now.Before(n.holdUntil)
}

// blacklist takes the node out of rotation until now+hold.
func (r *nodeRegistry) blacklist(n *node, now time.Time, hold time.Duration) {
	if hold <= 0 {
		hold = DefaultHoldDuration
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n.holdUntil = now.Add(hold)
}
