// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package call

import (
	"errors"
	"net/http"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/hessian/cmd/hessian/cli"
	"github.com/bureau-foundation/hessian/lib/config"
	"github.com/bureau-foundation/hessian/lib/service"
)

// ConnectionFlags selects the service a command talks to. It binds
// its own flags (see cli.FlagBinder) so commands embed it in their
// parameter structs.
type ConnectionFlags struct {
	Address    string
	Network    string
	URL        string
	ConfigPath string
}

// AddFlags registers the connection flags on flagSet.
func (f *ConnectionFlags) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVarP(&f.Address, "address", "a", "", "socket path or host:port of the service (default: service.address from config)")
	flagSet.StringVar(&f.Network, "network", "", "network of --address: unix or tcp (default: service.network from config)")
	flagSet.StringVarP(&f.URL, "url", "u", "", "HTTP endpoint to POST the call to instead of a socket")
	flagSet.StringVar(&f.ConfigPath, "config", "", "path to hessian.yaml (default: $"+config.EnvironmentVariable+" when set)")
}

// loadConfig reads the config named by --config or HESSIAN_CONFIG,
// falling back to the defaults when neither is given.
func (f *ConnectionFlags) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case f.ConfigPath != "":
		cfg, err = config.LoadFile(f.ConfigPath)
	case os.Getenv(config.EnvironmentVariable) != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, cli.NotFound("loading config: %w", err)
		}
		return nil, cli.Validation("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, cli.Validation("invalid config: %w", err)
	}
	return cfg, nil
}

// Dial returns a caller for the selected service, a description of
// where it points for messages, and a function releasing it.
func (f *ConnectionFlags) Dial() (caller service.Caller, target string, release func(), err error) {
	if f.URL != "" && f.Address != "" {
		return nil, "", nil, cli.Validation("--address and --url are mutually exclusive")
	}

	cfg, err := f.loadConfig()
	if err != nil {
		return nil, "", nil, err
	}

	if f.URL != "" {
		httpClient := &http.Client{Timeout: cfg.Client.ResponseTimeout.Std()}
		return service.NewHTTPClient(f.URL, httpClient, cfg.ClientOptions()...), f.URL, func() {}, nil
	}

	network := f.Network
	if network == "" {
		network = cfg.Service.Network
	}
	if network != "unix" && network != "tcp" {
		return nil, "", nil, cli.Validation("--network must be unix or tcp, got %q", network)
	}
	address := f.Address
	if address == "" {
		address = cfg.Service.Address
	}
	if address == "" {
		return nil, "", nil, cli.Validation("no service address: pass --address or --url, or set service.address in the config")
	}

	client, err := service.NewClient(network, address, cfg.ClientOptions()...)
	if err != nil {
		return nil, "", nil, cli.Transient("%w", err)
	}
	return client, network + ":" + address, client.Close, nil
}
