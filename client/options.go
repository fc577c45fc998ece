package client

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/common/model"
	"gopkg.in/yaml.v3"
)

// Defaults applied by ClientConfig.withDefaults.
const (
	DefaultPort           = 9160
	DefaultMaxSize        = 25
	DefaultIdleTimeout    = 30 * time.Second
	DefaultConnectTimeout = 4 * time.Second
	DefaultLoginTimeout   = 1 * time.Second
	DefaultLearnTimeout   = 2 * time.Second
	DefaultUseTimeout     = 1 * time.Second
	DefaultHoldDuration   = 10 * time.Second
)

// ClientConfig configures a PooledClient. The zero value plus Hosts and
// Keyspace is usable; withDefaults fills the rest.
type ClientConfig struct {
	// Hosts lists cluster nodes as "host" or "host:port" entries. Entries
	// without a port default to 9160. Malformed entries are logged and
	// skipped, not fatal.
	Hosts []string `yaml:"hosts"`

	// Keyspace selected by every connection during its handshake.
	Keyspace string `yaml:"keyspace"`

	// User and Pass enable the login handshake phase when non-empty.
	User string `yaml:"user"`
	Pass string `yaml:"pass"`

	// MaxSize bounds the number of live connections. Default: 25.
	MaxSize int `yaml:"max_size"`

	// IdleTimeout is how long an unused connection may sit in the pool
	// before it is destroyed. Default: 30s.
	IdleTimeout model.Duration `yaml:"idle_timeout"`

	// ConnectTimeout bounds the entire handshake of one connection attempt.
	// Default: 4s.
	ConnectTimeout model.Duration `yaml:"connect_timeout"`

	// LoginTimeout, LearnTimeout, and UseTimeout bound the individual
	// handshake phases. Defaults: 1s, 2s, 1s.
	LoginTimeout model.Duration `yaml:"login_timeout"`
	LearnTimeout model.Duration `yaml:"learn_timeout"`
	UseTimeout   model.Duration `yaml:"use_timeout"`

	// HoldDuration is how long a node stays out of rotation after a failed
	// connection attempt. Default: 10s.
	HoldDuration model.Duration `yaml:"hold_duration"`

	// UseExtendedIntegers decodes arbitrary-precision integer columns as
	// *big.Int instead of truncating to int64.
	UseExtendedIntegers bool `yaml:"use_extended_integers"`

	// LogTiming logs handshake and per-query durations at info level.
	LogTiming bool `yaml:"log_timing"`
}

// RegisterFlags adds the flags required to configure this to the given
// FlagSet.
func (cfg *ClientConfig) RegisterFlags(f *flag.FlagSet) {
	f.Func("cassgo.hosts", "Comma-separated host:port entries of cluster nodes. Port defaults to 9160.", func(s string) error {
		cfg.Hosts = strings.Split(s, ",")
		return nil
	})
	f.StringVar(&cfg.Keyspace, "cassgo.keyspace", "", "Keyspace to select on every connection.")
	f.StringVar(&cfg.User, "cassgo.user", "", "Username for the login handshake phase.")
	f.StringVar(&cfg.Pass, "cassgo.pass", "", "Password for the login handshake phase.")
	f.IntVar(&cfg.MaxSize, "cassgo.max-size", DefaultMaxSize, "Maximum number of live connections in the pool.")
	cfg.IdleTimeout = model.Duration(DefaultIdleTimeout)
	f.Var(&cfg.IdleTimeout, "cassgo.idle-timeout", "How long an idle connection is retained before destruction.")
	cfg.ConnectTimeout = model.Duration(DefaultConnectTimeout)
	f.Var(&cfg.ConnectTimeout, "cassgo.connect-timeout", "Budget for the entire connection handshake.")
	cfg.LoginTimeout = model.Duration(DefaultLoginTimeout)
	f.Var(&cfg.LoginTimeout, "cassgo.login-timeout", "Budget for the login handshake phase.")
	cfg.LearnTimeout = model.Duration(DefaultLearnTimeout)
	f.Var(&cfg.LearnTimeout, "cassgo.learn-timeout", "Budget for the type-metadata fetch handshake phase.")
	cfg.UseTimeout = model.Duration(DefaultUseTimeout)
	f.Var(&cfg.UseTimeout, "cassgo.use-timeout", "Budget for the keyspace selection handshake phase.")
	cfg.HoldDuration = model.Duration(DefaultHoldDuration)
	f.Var(&cfg.HoldDuration, "cassgo.hold-duration", "Cooldown before a failed node re-enters rotation.")
	f.BoolVar(&cfg.UseExtendedIntegers, "cassgo.extended-integers", false, "Decode arbitrary-precision integers as big integers.")
	f.BoolVar(&cfg.LogTiming, "cassgo.log-timing", false, "Log handshake and query durations.")
}

// LoadFile reads a ClientConfig from a YAML file.
func LoadFile(path string) (*ClientConfig, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}
	cfg := &ClientConfig{}
	if err := yaml.Unmarshal(buf, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", path)
	}
	return cfg, nil
}

// withDefaults returns a copy with unset fields filled in.
func (cfg ClientConfig) withDefaults() ClientConfig {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = model.Duration(DefaultIdleTimeout)
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = model.Duration(DefaultConnectTimeout)
	}
	if cfg.LoginTimeout <= 0 {
		cfg.LoginTimeout = model.Duration(DefaultLoginTimeout)
	}
	if cfg.LearnTimeout <= 0 {
		cfg.LearnTimeout = model.Duration(DefaultLearnTimeout)
	}
	if cfg.UseTimeout <= 0 {
		cfg.UseTimeout = model.Duration(DefaultUseTimeout)
	}
	if cfg.HoldDuration <= 0 {
		cfg.HoldDuration = model.Duration(DefaultHoldDuration)
	}
	return cfg
}

// HostPort is one parsed cluster node address.
type HostPort struct {
	Host string
	Port int
}

func (hp HostPort) String() string {
	return hp.Host + ":" + strconv.Itoa(hp.Port)
}

// ParseHosts resolves configured host entries into node addresses. A bare
// host gets the default port; entries with a bad port or more than one colon
// are logged and skipped.
func ParseHosts(hosts []string, logger log.Logger) []HostPort {
	out := make([]HostPort, 0, len(hosts))
	for _, h := range hosts {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		parts := strings.Split(h, ":")
		switch len(parts) {
		case 1:
			out = append(out, HostPort{Host: parts[0], Port: DefaultPort})
		case 2:
			port, err := strconv.Atoi(parts[1])
			if err != nil || port <= 0 {
				level.Warn(logger).Log("msg", "skipping host entry with bad port", "entry", h)
				continue
			}
			out = append(out, HostPort{Host: parts[0], Port: port})
		default:
			level.Warn(logger).Log("msg", "skipping malformed host entry", "entry", h)
		}
	}
	return out
}

// ConnConfig configures a single Connection. Immutable once the connection
// is constructed.
type ConnConfig struct {
	Host     string
	Port     int
	Keyspace string
	User     string
	Pass     string

	ConnectTimeout time.Duration
	LoginTimeout   time.Duration
	LearnTimeout   time.Duration
	UseTimeout     time.Duration

	UseExtendedIntegers bool
	LogTiming           bool
}

// Info returns the endpoint identity used on surfaced errors.
func (c ConnConfig) Info() ConnectionInfo {
	return ConnectionInfo{Host: c.Host, Port: c.Port, Keyspace: c.Keyspace}
}

// connConfig derives the per-connection config for one node.
func (cfg ClientConfig) connConfig(n HostPort) ConnConfig {
	return ConnConfig{
		Host:                n.Host,
		Port:                n.Port,
		Keyspace:            cfg.Keyspace,
		User:                cfg.User,
		Pass:                cfg.Pass,
		ConnectTimeout:      time.Duration(cfg.ConnectTimeout),
		LoginTimeout:        time.Duration(cfg.LoginTimeout),
		LearnTimeout:        time.Duration(cfg.LearnTimeout),
		UseTimeout:          time.Duration(cfg.UseTimeout),
		UseExtendedIntegers: cfg.UseExtendedIntegers,
		LogTiming:           cfg.LogTiming,
	}
}
