package grpccas

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"xdao.co/docreg/storage"
	"xdao.co/docreg/storage/casregistry"
)

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "grpc",
		Description: "gRPC CAS client (talks to docreg-casd)",
		Usage:       casregistry.UsageCLI,
		Options: []casregistry.Option{
			{Key: "grpc-target", Usage: "gRPC target host:port"},
			{Key: "grpc-dial-timeout", Default: "5s", Usage: "Dial timeout"},
			{Key: "grpc-timeout", Default: "0s", Usage: "Per-RPC timeout; 0 disables"},
			{Key: "grpc-max-msg-bytes", Default: "0", Usage: "Max gRPC message size in bytes (send+recv); 0 uses grpc defaults"},
		},
		Open: func(cfg casregistry.Config) (storage.CAS, func() error, error) {
			target := strings.TrimSpace(cfg.Get("grpc-target", ""))
			if target == "" {
				return nil, nil, fmt.Errorf("missing --grpc-target")
			}
			dialTimeout, err := time.ParseDuration(cfg.Get("grpc-dial-timeout", "5s"))
			if err != nil {
				return nil, nil, fmt.Errorf("grpc-dial-timeout: %w", err)
			}
			timeout, err := time.ParseDuration(cfg.Get("grpc-timeout", "0s"))
			if err != nil {
				return nil, nil, fmt.Errorf("grpc-timeout: %w", err)
			}
			maxMsg, err := strconv.Atoi(cfg.Get("grpc-max-msg-bytes", "0"))
			if err != nil {
				return nil, nil, fmt.Errorf("grpc-max-msg-bytes: %w", err)
			}
			client, err := Dial(target, DialOptions{Timeout: dialTimeout, MaxMsgBytes: maxMsg})
			if err != nil {
				return nil, nil, err
			}
			client.Timeout = timeout
			return client, client.Close, nil
		},
	})
}
