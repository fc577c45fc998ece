// Package cassgo is a pooled CQL client for Cassandra's Thrift interface.
//
// The client package holds the public surface: build a ClientConfig, hand it
// to client.NewPooledClient together with a Dialer from transport/thrift,
// and call Execute with a parameterized statement.
//
//	cfg := client.ClientConfig{
//		Hosts:    []string{"10.0.0.1:9160", "10.0.0.2"},
//		Keyspace: "events",
//	}
//	c, err := client.NewPooledClient(cfg, client.Options{
//		Dialer: thrift.NewDialer(newCassandraStub),
//	})
//	if err != nil {
//		return err
//	}
//	defer c.Shutdown(context.Background())
//
//	res, err := c.Execute(ctx, "SELECT * FROM users WHERE KEY = ?", id)
//
// Column bytes coming back from a SELECT are decoded against the keyspace's
// validator classes, so a LongType column arrives as an int64 and a UUIDType
// column as a uuid.UUID. See the schema package for the full mapping.
package cassgo

// Version is the driver release, compiled into clients for reporting.
const Version = "0.9.0"
