package client

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/strataio/cassgo/transport"
)

func newTestClient(t *testing.T, rec *dialRecorder, hosts ...string) *PooledClient {
	t.Helper()
	c, err := NewPooledClient(ClientConfig{Hosts: hosts, Keyspace: "events"}, Options{
		Dialer: rec.dial,
	})
	require.NoError(t, err)
	return c
}

func TestNewPooledClientValidation(t *testing.T) {
	rec := newDialRecorder()

	_, err := NewPooledClient(ClientConfig{Hosts: []string{"a"}, Keyspace: "ks"}, Options{})
	require.Error(t, err)

	_, err = NewPooledClient(ClientConfig{Keyspace: "ks"}, Options{Dialer: rec.dial})
	require.Error(t, err)

	_, err = NewPooledClient(ClientConfig{Hosts: []string{"bad:port:extra"}, Keyspace: "ks"}, Options{Dialer: rec.dial})
	require.Error(t, err)

	_, err = NewPooledClient(ClientConfig{Hosts: []string{"a"}}, Options{Dialer: rec.dial})
	require.Error(t, err)
}

func TestClientExecuteEndToEnd(t *testing.T) {
	rec := newDialRecorder()
	rec.stubFor("a").
		WithKeyspace(usersKeyspace()).
		WithExecuteResult(&transport.CqlResult{
			Kind: transport.KindRows,
			Rows: []transport.CqlRow{{
				Key: []byte("bob"),
				Columns: []transport.Column{
					{Name: []byte("name"), Value: []byte("Bob")},
					{Name: []byte("age"), Value: encodeLong(34)},
				},
			}},
		})
	c := newTestClient(t, rec, "a")

	res, err := c.Execute(context.Background(), "SELECT * FROM users WHERE KEY = ?", "bob")
	require.NoError(t, err)
	require.Equal(t, 1, res.RowCount())

	name, ok := res.Rows()[0].Get("name")
	require.True(t, ok)
	require.Equal(t, "Bob", name)
	require.Equal(t, "SELECT * FROM users WHERE KEY = 'bob'", string(rec.stubFor("a").Executed()[0]))

	require.NoError(t, c.Shutdown(context.Background()))
}

func TestClientRetriesOnceOnTransportFailure(t *testing.T) {
	rec := newDialRecorder()
	rec.stubFor("a").QueueExecute(nil, errors.New("broken pipe"))
	c := newTestClient(t, rec, "a")

	res, err := c.Execute(context.Background(), "UPDATE users SET a = 'b' WHERE KEY = 'k'")
	require.NoError(t, err)
	require.True(t, res.Void())

	// First attempt poisoned its connection, the retry dialed a fresh one.
	require.Equal(t, 2, rec.stubFor("a").ExecuteCalls())
	require.Equal(t, 2, rec.dialsTo("a"))
}

func TestClientGivesUpAfterSecondTransportFailure(t *testing.T) {
	rec := newDialRecorder()
	rec.stubFor("a").WithExecuteError(errors.New("broken pipe"))
	c := newTestClient(t, rec, "a")

	_, err := c.Execute(context.Background(), "SELECT * FROM users")
	var te *TransportError
	require.ErrorAs(t, err, &te)
	require.Equal(t, 2, rec.stubFor("a").ExecuteCalls())
}

func TestClientNeverRetriesApplicationErrors(t *testing.T) {
	rec := newDialRecorder()
	rec.stubFor("a").WithExecuteError(&transport.InvalidRequestError{Why: "bad CQL"})
	c := newTestClient(t, rec, "a")

	_, err := c.Execute(context.Background(), "SELECT oops FROM users")
	var req *RequestError
	require.ErrorAs(t, err, &req)
	require.Equal(t, "InvalidRequestException", req.Kind)
	require.Equal(t, 1, rec.stubFor("a").ExecuteCalls())
}

func TestClientBindFailureMakesNoNetworkCall(t *testing.T) {
	rec := newDialRecorder()
	c := newTestClient(t, rec, "a")

	_, err := c.Execute(context.Background(), "UPDATE users SET a = ?", nil)
	var bindErr *BindError
	require.ErrorAs(t, err, &bindErr)
	require.Zero(t, rec.dialsTo("a"))
}

func TestClientRetryFailsOverToHealthyNode(t *testing.T) {
	rec := newDialRecorder()
	rec.stubFor("a").WithExecuteError(errors.New("broken pipe"))
	c := newTestClient(t, rec, "a", "b")

	// Runs on whichever node the rotation lands on first; node a's stub
	// always fails, so the query only succeeds once b serves the retry.
	res, err := c.Execute(context.Background(), "UPDATE users SET a = 'b' WHERE KEY = 'k'")
	require.NoError(t, err)
	require.True(t, res.Void())
	require.Equal(t, 1, rec.stubFor("b").ExecuteCalls())
}

func TestClientPing(t *testing.T) {
	rec := newDialRecorder()
	c := newTestClient(t, rec, "a")

	require.NoError(t, c.Ping(context.Background()))
}

func TestClientShutdownStopsExecutes(t *testing.T) {
	rec := newDialRecorder()
	c := newTestClient(t, rec, "a")

	require.NoError(t, c.Shutdown(context.Background()))
	_, err := c.Execute(context.Background(), "SELECT * FROM users")
	require.ErrorIs(t, err, ErrPoolClosed)
	// Shutdown is idempotent.
	require.NoError(t, c.Shutdown(context.Background()))
}
