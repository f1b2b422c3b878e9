package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"xdao.co/docreg/config"
	"xdao.co/docreg/registry"
	"xdao.co/docreg/registry/grpcreg"
	"xdao.co/docreg/registry/ledger"
)

const serviceName = "xdao.docreg.registry.v1.Registry"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	os.Exit(run(ctx, os.Args[1:], os.Stderr))
}

func run(ctx context.Context, args []string, errOut io.Writer) int {
	fs := pflag.NewFlagSet("docreg-registryd", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	listen := fs.String("listen", "127.0.0.1:7778", "listen address")
	dir := fs.String("ledger-dir", "", "Badger directory of the ledger (required)")
	logLevel := fs.String("log-level", "info", "Log level")
	logFormat := fs.String("log-format", "console", "Log format: console or json")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *dir == "" {
		fmt.Fprintln(errOut, "missing --ledger-dir")
		return 2
	}
	log, err := config.LogConfig{Level: *logLevel, Format: *logFormat}.NewLogger(errOut)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}

	l, err := ledger.Open(ledger.Options{Dir: *dir, Logger: log})
	if err != nil {
		log.Error().Err(err).Msg("open ledger")
		return 1
	}
	defer l.Close()

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		log.Error().Err(err).Msg("listen")
		return 1
	}
	return serve(ctx, lis, l, log)
}

func serve(ctx context.Context, lis net.Listener, reg registry.Registry, log zerolog.Logger) int {
	s := grpc.NewServer()
	grpcreg.RegisterRegistryServer(s, &grpcreg.Server{Registry: reg, Log: log})
	hs := health.NewServer()
	hs.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)

	go func() {
		<-ctx.Done()
		hs.Shutdown()
		s.GracefulStop()
	}()

	log.Info().Str("addr", lis.Addr().String()).Msg("docreg-registryd listening")
	if err := s.Serve(lis); err != nil {
		log.Error().Err(err).Msg("serve")
		return 1
	}
	log.Info().Msg("docreg-registryd stopped")
	return 0
}
