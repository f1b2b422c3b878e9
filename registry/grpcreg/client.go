// Package grpcreg serves a registry.Registry over gRPC and provides the
// matching client, which itself implements registry.Registry.
package grpcreg

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/docreg/digest"
	"xdao.co/docreg/registry"
)

// Client implements registry.Registry over the Registry gRPC service.
type Client struct {
	cc     *grpc.ClientConn
	client RegistryClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

var _ registry.Registry = (*Client)(nil)

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration
	Extra   []grpc.DialOption
}

func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts.Extra...)

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", registry.ErrUnavailable, target, err)
	}
	return &Client{cc: cc, client: NewRegistryClient(cc)}, nil
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) FindByOriginalDigest(ctx context.Context, d digest.Digest) (registry.Result, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.FindByOriginalDigest(ctx, wrapperspb.Bytes(d[:]))
	if err != nil {
		return registry.Result{}, mapRPC(err)
	}
	return decodeResult(reply)
}

func (c *Client) FindByIdentifier(ctx context.Context, identifier string) (registry.Result, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.FindByIdentifier(ctx, wrapperspb.String(identifier))
	if err != nil {
		return registry.Result{}, mapRPC(err)
	}
	return decodeResult(reply)
}

func (c *Client) Submit(ctx context.Context, req registry.SignedRequest) (uint64, error) {
	b, err := registry.Marshal(req)
	if err != nil {
		return 0, err
	}
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.Submit(ctx, wrapperspb.Bytes(b))
	if err != nil {
		return 0, mapRPC(err)
	}
	return reply.GetValue(), nil
}

func (c *Client) ListByUploader(ctx context.Context, uploader registry.Address) ([]uint64, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.ListByUploader(ctx, wrapperspb.Bytes(uploader[:]))
	if err != nil {
		return nil, mapRPC(err)
	}
	var ids []uint64
	if err := registry.Unmarshal(reply.GetValue(), &ids); err != nil {
		return nil, fmt.Errorf("grpcreg: decode ids: %w", err)
	}
	return ids, nil
}

func (c *Client) Get(ctx context.Context, id uint64) (registry.Record, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.Get(ctx, wrapperspb.UInt64(id))
	if err != nil {
		return registry.Record{}, mapRPC(err)
	}
	var rec registry.Record
	if err := registry.Unmarshal(reply.GetValue(), &rec); err != nil {
		return registry.Record{}, fmt.Errorf("grpcreg: decode record: %w", err)
	}
	return rec, nil
}

func decodeResult(reply *wrapperspb.BytesValue) (registry.Result, error) {
	var res registry.Result
	if err := registry.Unmarshal(reply.GetValue(), &res); err != nil {
		return registry.Result{}, fmt.Errorf("grpcreg: decode result: %w", err)
	}
	return res, nil
}

func (c *Client) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, c.Timeout)
}
