// Package mock provides scriptable transport and stub doubles for tests.
package mock

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/strataio/cassgo/transport"
)

// Conn implements transport.Conn with configurable failure behavior and call
// tracking.
type Conn struct {
	addr    string
	openErr error

	mu   sync.Mutex
	open bool

	openCalls  atomic.Int32
	closeCalls atomic.Int32
}

// NewConn creates a mock transport pointing at addr.
func NewConn(addr string) *Conn {
	return &Conn{addr: addr}
}

// WithOpenError configures Open to fail with err.
func (c *Conn) WithOpenError(err error) *Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openErr = err
	return c
}

// Open implements transport.Conn.
func (c *Conn) Open(ctx context.Context) error {
	c.openCalls.Add(1)
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.openErr != nil {
		return c.openErr
	}
	c.open = true
	return nil
}

// Close implements transport.Conn.
func (c *Conn) Close() error {
	c.closeCalls.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	return nil
}

// IsOpen implements transport.Conn.
func (c *Conn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// RemoteAddr implements transport.Conn.
func (c *Conn) RemoteAddr() string { return c.addr }

// OpenCalls returns how many times Open was called.
func (c *Conn) OpenCalls() int { return int(c.openCalls.Load()) }

// CloseCalls returns how many times Close was called.
func (c *Conn) CloseCalls() int { return int(c.closeCalls.Load()) }

// executeOutcome is one scripted ExecuteCQL response.
type executeOutcome struct {
	result *transport.CqlResult
	err    error
}

// Stub implements transport.Cassandra with scriptable responses, optional
// latency, and call/history tracking.
type Stub struct {
	mu sync.Mutex

	loginErr    error
	describeErr error
	setErr      error
	keyspace    *transport.KsDef

	defaultResult *transport.CqlResult
	defaultErr    error
	script        []executeOutcome

	latency time.Duration

	loginCalls    atomic.Int32
	describeCalls atomic.Int32
	setCalls      atomic.Int32
	executeCalls  atomic.Int32

	executed [][]byte
}

// NewStub creates a stub that answers every call successfully; ExecuteCQL
// returns a void result until scripted otherwise.
func NewStub() *Stub {
	return &Stub{
		defaultResult: &transport.CqlResult{Kind: transport.KindVoid},
	}
}

// WithKeyspace configures the definition DescribeKeyspace returns.
func (s *Stub) WithKeyspace(ks *transport.KsDef) *Stub {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keyspace = ks
	return s
}

// WithLoginError configures Login to fail with err.
func (s *Stub) WithLoginError(err error) *Stub {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loginErr = err
	return s
}

// WithDescribeError configures DescribeKeyspace to fail with err.
func (s *Stub) WithDescribeError(err error) *Stub {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.describeErr = err
	return s
}

// WithSetKeyspaceError configures SetKeyspace to fail with err.
func (s *Stub) WithSetKeyspaceError(err error) *Stub {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setErr = err
	return s
}

// WithExecuteResult configures the default ExecuteCQL response.
func (s *Stub) WithExecuteResult(res *transport.CqlResult) *Stub {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultResult = res
	s.defaultErr = nil
	return s
}

// WithExecuteError configures ExecuteCQL to fail with err by default.
func (s *Stub) WithExecuteError(err error) *Stub {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultErr = err
	return s
}

// QueueExecute appends one scripted ExecuteCQL outcome. Scripted outcomes are
// consumed in FIFO order before the default response applies.
func (s *Stub) QueueExecute(res *transport.CqlResult, err error) *Stub {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = append(s.script, executeOutcome{result: res, err: err})
	return s
}

// WithLatency delays every RPC by d, respecting context cancellation.
func (s *Stub) WithLatency(d time.Duration) *Stub {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency = d
	return s
}

func (s *Stub) wait(ctx context.Context) error {
	s.mu.Lock()
	d := s.latency
	s.mu.Unlock()
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Login implements transport.Cassandra.
func (s *Stub) Login(ctx context.Context, user, pass string) error {
	s.loginCalls.Add(1)
	if err := s.wait(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loginErr
}

// DescribeKeyspace implements transport.Cassandra.
func (s *Stub) DescribeKeyspace(ctx context.Context, keyspace string) (*transport.KsDef, error) {
	s.describeCalls.Add(1)
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.describeErr != nil {
		return nil, s.describeErr
	}
	if s.keyspace != nil {
		return s.keyspace, nil
	}
	return &transport.KsDef{Name: keyspace}, nil
}

// SetKeyspace implements transport.Cassandra.
func (s *Stub) SetKeyspace(ctx context.Context, keyspace string) error {
	s.setCalls.Add(1)
	if err := s.wait(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setErr
}

// ExecuteCQL implements transport.Cassandra.
func (s *Stub) ExecuteCQL(ctx context.Context, query []byte) (*transport.CqlResult, error) {
	s.executeCalls.Add(1)
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executed = append(s.executed, query)
	if len(s.script) > 0 {
		next := s.script[0]
		s.script = s.script[1:]
		return next.result, next.err
	}
	if s.defaultErr != nil {
		return nil, s.defaultErr
	}
	return s.defaultResult, nil
}

// LoginCalls returns how many times Login was called.
func (s *Stub) LoginCalls() int { return int(s.loginCalls.Load()) }

// DescribeCalls returns how many times DescribeKeyspace was called.
func (s *Stub) DescribeCalls() int { return int(s.describeCalls.Load()) }

// SetKeyspaceCalls returns how many times SetKeyspace was called.
func (s *Stub) SetKeyspaceCalls() int { return int(s.setCalls.Load()) }

// ExecuteCalls returns how many times ExecuteCQL was called.
func (s *Stub) ExecuteCalls() int { return int(s.executeCalls.Load()) }

// Executed returns a copy of every payload passed to ExecuteCQL.
func (s *Stub) Executed() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.executed))
	copy(out, s.executed)
	return out
}
