package grpcreg

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"xdao.co/docreg/registry"
)

// mapRPC translates a client-side RPC error into registry sentinels.
func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%w: %v", registry.ErrUnavailable, err)
	}
	switch st.Code() {
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %s", registry.ErrDuplicate, st.Message())
	case codes.NotFound:
		return fmt.Errorf("%w: %s", registry.ErrUnknownDocument, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", registry.ErrInvalidRequest, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return fmt.Errorf("%w: %s", registry.ErrUnavailable, st.Message())
	case codes.Canceled:
		return context.Canceled
	default:
		return err
	}
}

// mapErr translates a server-side registry error into a gRPC status.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, registry.ErrDuplicate):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, registry.ErrUnknownDocument):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, registry.ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, registry.ErrUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
