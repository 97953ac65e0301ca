package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Outercircl-dev/backend/internal/domain"
	"github.com/Outercircl-dev/backend/internal/logger"
)

// toStatus maps domain error kinds to gRPC status codes. Unclassified errors
// are logged and hidden behind Internal.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var de *domain.Error
	msg := err.Error()
	if errors.As(err, &de) {
		msg = de.Message
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, msg)
	case errors.Is(err, domain.ErrBadRequest):
		return status.Error(codes.InvalidArgument, msg)
	case errors.Is(err, domain.ErrForbidden):
		return status.Error(codes.PermissionDenied, msg)
	case errors.Is(err, domain.ErrConflict):
		return status.Error(codes.Aborted, msg)
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request cancelled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	}
	logger.Error("Unhandled participation error", "error", err)
	return status.Error(codes.Internal, "internal error")
}
