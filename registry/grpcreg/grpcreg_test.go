package grpcreg

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"xdao.co/docreg/digest"
	"xdao.co/docreg/registry"
	"xdao.co/docreg/registry/ledger"
	"xdao.co/docreg/registry/registrytest"
)

func serve(t *testing.T, reg registry.Registry) *Client {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterRegistryServer(srv, &Server{Registry: reg, Log: zerolog.Nop()})
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.Dial() }
	c, err := Dial("bufnet", DialOptions{Extra: []grpc.DialOption{grpc.WithContextDialer(dialer)}})
	require.NoError(t, err)
	c.Timeout = 5 * time.Second
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestConformanceOverLedger(t *testing.T) {
	registrytest.RunConformance(t, func(t *testing.T) registry.Registry {
		l, err := ledger.Open(ledger.Options{InMemory: true})
		require.NoError(t, err)
		t.Cleanup(func() { _ = l.Close() })
		return serve(t, l)
	})
}

type downRegistry struct{ registry.Registry }

func (downRegistry) FindByOriginalDigest(context.Context, digest.Digest) (registry.Result, error) {
	return registry.Result{}, registry.ErrUnavailable
}

func TestUnavailableIsNotNotFound(t *testing.T) {
	c := serve(t, downRegistry{})
	res, err := c.FindByOriginalDigest(context.Background(), digest.Sum([]byte("x")))
	require.True(t, registry.IsUnavailable(err), "got %v", err)
	require.False(t, res.Found)
}

func TestStoppedServerIsUnavailable(t *testing.T) {
	lis := bufconn.Listen(1024)
	srv := grpc.NewServer()
	RegisterRegistryServer(srv, &Server{Registry: downRegistry{}})
	go func() { _ = srv.Serve(lis) }()
	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.Dial() }
	c, err := Dial("bufnet", DialOptions{Extra: []grpc.DialOption{grpc.WithContextDialer(dialer)}})
	require.NoError(t, err)
	defer c.Close()
	srv.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = c.Get(ctx, 1)
	require.True(t, registry.IsUnavailable(err), "got %v", err)
}

func TestServerRejectsShortDigest(t *testing.T) {
	s := &Server{Registry: downRegistry{}}
	_, err := s.FindByOriginalDigest(context.Background(), nil)
	require.Error(t, err)
}
