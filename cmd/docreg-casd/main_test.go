package main

import (
	"bytes"
	"context"
	"net"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"xdao.co/docreg/storage/grpccas"
	"xdao.co/docreg/storage/unixfs"
)

func TestListBackends(t *testing.T) {
	var out, errOut bytes.Buffer
	require.Equal(t, 0, run(context.Background(), []string{"--list-backends"}, &out, &errOut))
	require.Contains(t, out.String(), "unixfs\t")
	require.Contains(t, out.String(), "localfs\t")
}

func TestUnknownBackend(t *testing.T) {
	var out, errOut bytes.Buffer
	require.Equal(t, 2, run(context.Background(), []string{"--backend", "tape", "--log-level", "disabled"}, &out, &errOut))
}

func TestServeRoundTripAndStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan int, 1)
	go func() { done <- serve(ctx, lis, unixfs.NewMemory(), zerolog.Nop()) }()

	c, err := grpccas.Dial(lis.Addr().String(), grpccas.DialOptions{})
	require.NoError(t, err)
	defer c.Close()

	id, err := c.Put(context.Background(), []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, "bafkreibm6jg3ux5qumhcn2b3flc3tyu6dmlb4xa7u5bf44yegnrjhc4yeq", id.String())
	got, err := c.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)

	cc, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer cc.Close()
	resp, err := healthpb.NewHealthClient(cc).Check(context.Background(), &healthpb.HealthCheckRequest{Service: serviceName})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	cancel()
	require.Equal(t, 0, <-done)
}
