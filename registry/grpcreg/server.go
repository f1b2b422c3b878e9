package grpcreg

import (
	"context"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/docreg/digest"
	"xdao.co/docreg/registry"
)

// Server exposes a registry.Registry over the Registry gRPC service.
type Server struct {
	UnimplementedRegistryServer
	Registry registry.Registry
	Log      zerolog.Logger
}

func (s *Server) ready() error {
	if s == nil || s.Registry == nil {
		return status.Error(codes.FailedPrecondition, "missing registry")
	}
	return nil
}

func (s *Server) FindByOriginalDigest(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	raw := in.GetValue()
	if len(raw) != digest.Size {
		return nil, status.Errorf(codes.InvalidArgument, "digest must be %d bytes", digest.Size)
	}
	var d digest.Digest
	copy(d[:], raw)
	res, err := s.Registry.FindByOriginalDigest(ctx, d)
	if err != nil {
		return nil, mapErr(err)
	}
	return encode(res)
}

func (s *Server) FindByIdentifier(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	res, err := s.Registry.FindByIdentifier(ctx, in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	return encode(res)
}

func (s *Server) Submit(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.UInt64Value, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var req registry.SignedRequest
	if err := registry.Unmarshal(in.GetValue(), &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decode request: %v", err)
	}
	id, err := s.Registry.Submit(ctx, req)
	if err != nil {
		s.Log.Debug().Err(err).Str("cid", req.Request.Identifier).Msg("submit rejected")
		return nil, mapErr(err)
	}
	s.Log.Info().Uint64("doc_id", id).Str("cid", req.Request.Identifier).Msg("document registered")
	return wrapperspb.UInt64(id), nil
}

func (s *Server) ListByUploader(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	raw := in.GetValue()
	var a registry.Address
	if len(raw) != len(a) {
		return nil, status.Errorf(codes.InvalidArgument, "address must be %d bytes", len(a))
	}
	copy(a[:], raw)
	ids, err := s.Registry.ListByUploader(ctx, a)
	if err != nil {
		return nil, mapErr(err)
	}
	if ids == nil {
		ids = []uint64{}
	}
	return encode(ids)
}

func (s *Server) Get(ctx context.Context, in *wrapperspb.UInt64Value) (*wrapperspb.BytesValue, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rec, err := s.Registry.Get(ctx, in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	return encode(rec)
}

func encode(v any) (*wrapperspb.BytesValue, error) {
	b, err := registry.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode reply: %v", err)
	}
	return wrapperspb.Bytes(b), nil
}
