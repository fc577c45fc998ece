// Command cassgo-check probes the configured nodes and reports which of
// them accept a transport connection. It is a deployment smoke test, not a
// query tool: it opens the framed socket and closes it again without
// logging in.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/common/model"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/strataio/cassgo/client"
	"github.com/strataio/cassgo/transport/thrift"
)

func main() {
	var (
		cfg        client.ClientConfig
		configFile string
	)
	fs := flag.NewFlagSet("cassgo-check", flag.ExitOnError)
	fs.StringVar(&configFile, "config.file", "", "YAML configuration file; flags override its values.")
	cfg.RegisterFlags(fs)
	_ = fs.Parse(os.Args[1:])

	logger := level.NewFilter(log.NewLogfmtLogger(os.Stderr), level.AllowInfo())

	if configFile != "" {
		loaded, err := client.LoadFile(configFile)
		if err != nil {
			level.Error(logger).Log("msg", "failed to load configuration", "file", configFile, "err", err)
			os.Exit(1)
		}
		if len(cfg.Hosts) == 0 {
			cfg.Hosts = loaded.Hosts
		}
		if cfg.ConnectTimeout == 0 {
			cfg.ConnectTimeout = loaded.ConnectTimeout
		}
	}

	if len(cfg.Hosts) == 0 {
		fmt.Fprintln(os.Stderr, "no hosts given; use -cassgo.hosts or -config.file")
		os.Exit(1)
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = model.Duration(client.DefaultConnectTimeout)
	}

	failures := 0
	for _, target := range client.ParseHosts(cfg.Hosts, logger) {
		if err := probe(target, cfg); err != nil {
			failures++
			level.Error(logger).Log("msg", "node unreachable", "node", target, "err", err)
			continue
		}
		level.Info(logger).Log("msg", "node reachable", "node", target)
	}

	if failures > 0 {
		os.Exit(1)
	}
}

func probe(target client.HostPort, cfg client.ClientConfig) error {
	timeout := time.Duration(cfg.ConnectTimeout)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	conn, err := thrift.Dial(target.Host, target.Port, timeout)
	if err != nil {
		return err
	}
	defer conn.Close()
	return conn.Open(ctx)
}
