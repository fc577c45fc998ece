package client

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/prometheus/common/model"
	"github.com/stretchr/testify/require"
)

func TestParseHosts(t *testing.T) {
	got := ParseHosts([]string{
		"10.0.0.1:9161",
		"10.0.0.2",
		" 10.0.0.3:9160 ",
		"",
		"bad:port:extra",
		"10.0.0.4:nope",
		"10.0.0.5:-1",
	}, log.NewNopLogger())

	require.Equal(t, []HostPort{
		{Host: "10.0.0.1", Port: 9161},
		{Host: "10.0.0.2", Port: DefaultPort},
		{Host: "10.0.0.3", Port: 9160},
	}, got)
}

func TestWithDefaults(t *testing.T) {
	cfg := ClientConfig{Hosts: []string{"h"}, Keyspace: "ks"}.withDefaults()

	require.Equal(t, DefaultMaxSize, cfg.MaxSize)
	require.Equal(t, model.Duration(DefaultIdleTimeout), cfg.IdleTimeout)
	require.Equal(t, model.Duration(DefaultConnectTimeout), cfg.ConnectTimeout)
	require.Equal(t, model.Duration(DefaultLoginTimeout), cfg.LoginTimeout)
	require.Equal(t, model.Duration(DefaultLearnTimeout), cfg.LearnTimeout)
	require.Equal(t, model.Duration(DefaultUseTimeout), cfg.UseTimeout)
	require.Equal(t, model.Duration(DefaultHoldDuration), cfg.HoldDuration)
}

func TestWithDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := ClientConfig{
		MaxSize:        3,
		IdleTimeout:    model.Duration(time.Minute),
		ConnectTimeout: model.Duration(500 * time.Millisecond),
		HoldDuration:   model.Duration(time.Second),
	}.withDefaults()

	require.Equal(t, 3, cfg.MaxSize)
	require.Equal(t, model.Duration(time.Minute), cfg.IdleTimeout)
	require.Equal(t, model.Duration(500*time.Millisecond), cfg.ConnectTimeout)
	require.Equal(t, model.Duration(time.Second), cfg.HoldDuration)
}

func TestRegisterFlags(t *testing.T) {
	var cfg ClientConfig
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.RegisterFlags(fs)

	err := fs.Parse([]string{
		"-cassgo.hosts=a:9160,b",
		"-cassgo.keyspace=events",
		"-cassgo.max-size=5",
		"-cassgo.hold-duration=30s",
		"-cassgo.learn-timeout=5s",
	})
	require.NoError(t, err)

	require.Equal(t, []string{"a:9160", "b"}, cfg.Hosts)
	require.Equal(t, "events", cfg.Keyspace)
	require.Equal(t, 5, cfg.MaxSize)
	require.Equal(t, model.Duration(30*time.Second), cfg.HoldDuration)
	require.Equal(t, model.Duration(DefaultConnectTimeout), cfg.ConnectTimeout)
	require.Equal(t, model.Duration(5*time.Second), cfg.LearnTimeout)
	require.Equal(t, model.Duration(DefaultLoginTimeout), cfg.LoginTimeout)
	require.Equal(t, model.Duration(DefaultUseTimeout), cfg.UseTimeout)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cassgo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
hosts:
  - 10.0.0.1:9160
  - 10.0.0.2
keyspace: events
user: app
pass: secret
max_size: 10
idle_timeout: 45s
use_extended_integers: true
`), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, []string{"10.0.0.1:9160", "10.0.0.2"}, cfg.Hosts)
	require.Equal(t, "events", cfg.Keyspace)
	require.Equal(t, "app", cfg.User)
	require.Equal(t, 10, cfg.MaxSize)
	require.Equal(t, model.Duration(45*time.Second), cfg.IdleTimeout)
	require.True(t, cfg.UseExtendedIntegers)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestConnConfigInfo(t *testing.T) {
	cfg := ClientConfig{Keyspace: "ks", User: "u", Pass: "p"}.withDefaults()
	cc := cfg.connConfig(HostPort{Host: "node1", Port: 9161})

	require.Equal(t, "node1:9161/ks", cc.Info().String())
	require.Equal(t, "u", cc.User)
	require.Equal(t, DefaultLearnTimeout, cc.LearnTimeout)
}
