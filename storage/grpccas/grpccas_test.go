package grpccas

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/ipfs/go-cid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/docreg/storage"
	"xdao.co/docreg/storage/localfs"
	"xdao.co/docreg/storage/testkit"
	"xdao.co/docreg/storage/unixfs"
)

func serve(t *testing.T, cas storage.CAS) *Client {
	t.Helper()
	return serveWith(t, &Server{CAS: cas})
}

func serveWith(t *testing.T, impl CASServer, opts ...grpc.ServerOption) *Client {
	t.Helper()
	lis := bufconn.Listen(8 * 1024 * 1024)
	srv := grpc.NewServer(opts...)
	RegisterCASServer(srv, impl)
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.Dial() }
	client, err := Dial("bufnet", DialOptions{Extra: []grpc.DialOption{grpc.WithContextDialer(dialer)}})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	client.Timeout = 5 * time.Second
	return client
}

func TestGRPCCAS_LocalFS_RoundTrip(t *testing.T) {
	ctx := context.Background()
	cas, err := localfs.New(t.TempDir())
	if err != nil {
		t.Fatalf("localfs.New: %v", err)
	}
	client := serve(t, cas)

	payload := []byte("hello grpccas")
	id, err := client.Put(ctx, payload)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !id.Defined() {
		t.Fatalf("expected defined CID")
	}
	if !client.Has(ctx, id) {
		t.Fatalf("Has: expected true")
	}
	got, err := client.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("payload mismatch")
	}
}

func TestGRPCCAS_UnixFS_Conformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		return serve(t, unixfs.NewMemory())
	})
}

type downCAS struct{ storage.CAS }

func (downCAS) Get(context.Context, cid.Cid) ([]byte, error) { return nil, storage.ErrUnavailable }

func TestGRPCCAS_UnavailableMapsBack(t *testing.T) {
	client := serve(t, downCAS{CAS: unixfs.NewMemory()})
	id, err := client.Put(context.Background(), []byte("x"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := client.Get(context.Background(), id); !storage.IsUnavailable(err) {
		t.Fatalf("Get: got %v want ErrUnavailable", err)
	}
}

func TestGRPCCAS_MethodNamesAndInterceptors(t *testing.T) {
	var seen []string
	record := func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		seen = append(seen, info.FullMethod)
		return handler(ctx, req)
	}
	client := serveWith(t, UnimplementedCASServer{}, grpc.UnaryInterceptor(record))
	raw := NewCASClient(client.cc)
	ctx := context.Background()

	_, err := raw.Put(ctx, wrapperspb.Bytes([]byte("x")))
	if status.Code(err) != codes.Unimplemented {
		t.Fatalf("Put: got %v want Unimplemented", err)
	}
	_, err = raw.Has(ctx, wrapperspb.String("bafy"))
	if status.Code(err) != codes.Unimplemented {
		t.Fatalf("Has: got %v want Unimplemented", err)
	}

	want := []string{"/" + ServiceName + "/Put", "/" + ServiceName + "/Has"}
	if len(seen) != len(want) || seen[0] != want[0] || seen[1] != want[1] {
		t.Fatalf("intercepted %v, want %v", seen, want)
	}
}
