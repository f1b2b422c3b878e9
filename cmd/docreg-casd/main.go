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
	"xdao.co/docreg/storage"
	"xdao.co/docreg/storage/casconfig"
	"xdao.co/docreg/storage/casregistry"
	"xdao.co/docreg/storage/grpccas"

	_ "xdao.co/docreg/storage/ipfs"
	_ "xdao.co/docreg/storage/localfs"
	_ "xdao.co/docreg/storage/unixfs"
)

const serviceName = grpccas.ServiceName

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("docreg-casd", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	listen := fs.String("listen", "127.0.0.1:7777", "listen address")
	backend := fs.String("backend", "unixfs", "CAS backend name")
	casConfig := fs.String("cas-config", "", "YAML file listing several backends (overrides --backend)")
	listBackends := fs.Bool("list-backends", false, "List supported backends and exit")
	logLevel := fs.String("log-level", "info", "Log level")
	logFormat := fs.String("log-format", "console", "Log format: console or json")

	casregistry.RegisterFlags(fs, casregistry.UsageDaemon)

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *listBackends {
		for _, b := range casregistry.List(casregistry.UsageDaemon) {
			if b.Description == "" {
				_, _ = fmt.Fprintf(out, "%s\n", b.Name)
				continue
			}
			_, _ = fmt.Fprintf(out, "%s\t%s\n", b.Name, b.Description)
		}
		return 0
	}

	log, err := config.LogConfig{Level: *logLevel, Format: *logFormat}.NewLogger(errOut)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}

	var (
		cas     storage.CAS
		closeFn func() error
	)
	if *casConfig != "" {
		cfg, lerr := casconfig.LoadFile(*casConfig)
		if lerr != nil {
			log.Error().Err(lerr).Msg("load cas config")
			return 2
		}
		cas, closeFn, err = cfg.Open(casregistry.UsageDaemon, "")
	} else {
		cas, closeFn, err = casregistry.OpenFromFlags(fs, *backend, casregistry.UsageDaemon)
	}
	if err != nil {
		log.Error().Err(err).Msg("open backend")
		return 2
	}
	if closeFn != nil {
		defer closeFn()
	}

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		log.Error().Err(err).Msg("listen")
		return 1
	}
	return serve(ctx, lis, cas, log)
}

func serve(ctx context.Context, lis net.Listener, cas storage.CAS, log zerolog.Logger) int {
	s := grpc.NewServer()
	grpccas.RegisterCASServer(s, &grpccas.Server{CAS: cas})
	hs := health.NewServer()
	hs.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)

	go func() {
		<-ctx.Done()
		hs.Shutdown()
		s.GracefulStop()
	}()

	log.Info().Str("addr", lis.Addr().String()).Msg("docreg-casd listening")
	if err := s.Serve(lis); err != nil {
		log.Error().Err(err).Msg("serve")
		return 1
	}
	log.Info().Msg("docreg-casd stopped")
	return 0
}
