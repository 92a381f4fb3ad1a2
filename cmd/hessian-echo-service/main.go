// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Hessian-echo-service is a reference Hessian service. It answers
// calls over a unix or TCP socket, and optionally over HTTP POST and
// gRPC (with the hessian content subtype), exposing four methods:
//
//   - echo: replies with its arguments as a list
//   - status: uptime, start time, version, and binary digest
//   - describe: the sorted list of method names
//   - sleep: waits the given number of milliseconds, then replies null
//
// Settings come from the YAML config named by --config or
// HESSIAN_CONFIG, with command-line overrides for the listen
// addresses. It runs until SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/bureau-foundation/hessian/lib/clock"
	"github.com/bureau-foundation/hessian/lib/config"
	"github.com/bureau-foundation/hessian/lib/grpccodec"
	"github.com/bureau-foundation/hessian/lib/process"
	"github.com/bureau-foundation/hessian/lib/service"
	"github.com/bureau-foundation/hessian/lib/version"
)

// grpcServiceName is the service name methods are registered under on
// the gRPC listener: "/hessian.Echo/echo" and so on.
const grpcServiceName = "hessian.Echo"

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath  string
		network     string
		address     string
		httpAddress string
		grpcAddress string
		showVersion bool
	)

	flagSet := pflag.NewFlagSet("hessian-echo-service", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to hessian.yaml (default: $"+config.EnvironmentVariable+" when set, else built-in defaults)")
	flagSet.StringVar(&network, "network", "", "socket network, unix or tcp (overrides service.network)")
	flagSet.StringVar(&address, "address", "", "socket path or host:port to listen on (overrides service.address)")
	flagSet.StringVar(&httpAddress, "http-address", "", "also accept calls as HTTP POSTs on this host:port (overrides service.http_address)")
	flagSet.StringVar(&grpcAddress, "grpc-address", "", "also accept calls over gRPC on this host:port")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if showVersion {
		fmt.Printf("hessian-echo-service %s\n", version.Info())
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	override(&cfg.Service.Network, network)
	override(&cfg.Service.Address, address)
	override(&cfg.Service.HTTPAddress, httpAddress)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	binaryHash, binaryPath, err := version.ComputeSelfHash()
	if err != nil {
		logger.Warn("cannot compute binary hash", "error", err)
	} else {
		logger.Info("binary identity", "path", binaryPath, "blake3", binaryHash)
	}

	realClock := clock.Real()
	server := service.NewServer(cfg.Service.Network, cfg.Service.Address, logger, cfg.ServerOptions()...)
	echo := &echoService{
		server:     server,
		clock:      realClock,
		startedAt:  realClock.Now(),
		binaryHash: binaryHash,
	}
	echo.register()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return server.Serve(groupCtx)
	})
	if cfg.Service.HTTPAddress != "" {
		httpServer := service.NewHTTPServer(service.HTTPServerConfig{
			Address: cfg.Service.HTTPAddress,
			Handler: server,
			Logger:  logger,
		})
		group.Go(func() error {
			return httpServer.Serve(groupCtx)
		})
	}
	if grpcAddress != "" {
		listener, err := net.Listen("tcp", grpcAddress)
		if err != nil {
			return fmt.Errorf("listening for gRPC on %s: %w", grpcAddress, err)
		}
		group.Go(func() error {
			return serveGRPC(groupCtx, listener, server, logger)
		})
	}

	logger.Info("echo service running",
		"environment", cfg.Environment,
		"network", cfg.Service.Network,
		"address", cfg.Service.Address,
		"http_address", cfg.Service.HTTPAddress,
		"grpc_address", grpcAddress,
		"methods", server.Methods(),
	)

	<-groupCtx.Done()
	logger.Info("shutting down")

	return group.Wait()
}

// loadConfig reads the config named by path or HESSIAN_CONFIG, or
// returns the defaults when neither is set.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	if os.Getenv(config.EnvironmentVariable) != "" {
		return config.Load()
	}
	return config.Default(), nil
}

func override(target *string, value string) {
	if value != "" {
		*target = value
	}
}

// serveGRPC exposes server's methods on listener until ctx is
// cancelled, then stops gracefully.
func serveGRPC(ctx context.Context, listener net.Listener, server *service.Server, logger *slog.Logger) error {
	grpcServer := grpc.NewServer()
	grpccodec.Register(grpcServer, grpcServiceName, server)

	stopWatching := context.AfterFunc(ctx, grpcServer.GracefulStop)
	defer stopWatching()

	logger.Info("grpc server listening", "address", listener.Addr().String(), "service", grpcServiceName)
	if err := grpcServer.Serve(listener); err != nil {
		return fmt.Errorf("serving gRPC: %w", err)
	}
	logger.Info("grpc server stopped")
	return nil
}
