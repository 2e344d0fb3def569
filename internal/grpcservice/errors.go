package grpcservice

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"go.klb.dev/handoff/internal/content"
	"go.klb.dev/handoff/internal/exchange"
	"go.klb.dev/handoff/internal/hub"
)

// toStatus converts a domain error into a gRPC status error.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	var code codes.Code
	switch {
	case errors.Is(err, hub.ErrNoOwner):
		code = codes.FailedPrecondition
	case errors.Is(err, content.ErrNotFound), errors.Is(err, content.ErrOutOfRange):
		code = codes.NotFound
	case errors.Is(err, content.ErrDuplicateType),
		errors.Is(err, content.ErrEmptyType),
		errors.Is(err, exchange.ErrUnsupported):
		code = codes.InvalidArgument
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	default:
		code = codes.Unknown
	}
	return status.Error(code, err.Error())
}

// fromStatus wraps a gRPC error from method with the domain sentinel its
// code stands for.
func fromStatus(method string, err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%s: %w", method, err)
	}
	switch st.Code() {
	case codes.FailedPrecondition:
		return fmt.Errorf("%s: %w: %w", method, hub.ErrNoOwner, err)
	case codes.NotFound:
		return fmt.Errorf("%s: %w: %w", method, content.ErrNotFound, err)
	case codes.InvalidArgument:
		return fmt.Errorf("%s: %w: %w", method, exchange.ErrUnsupported, err)
	case codes.DeadlineExceeded:
		return fmt.Errorf("%s: %w: %w", method, context.DeadlineExceeded, err)
	default:
		return fmt.Errorf("%s: %w", method, err)
	}
}
