package errors

import (
	goerrors "errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrEmptyWords  = fmt.Errorf("no words have been found")

	ErrStoreUnavailable   = fmt.Errorf("store unavailable")
	ErrNotFound           = fmt.Errorf("document not found")
	ErrValidationRejected = fmt.Errorf("validation rejected")
	ErrInvalidPath        = fmt.Errorf("invalid document path")

	ErrNoSession    = fmt.Errorf("no authenticated session")
	ErrInvalidToken = fmt.Errorf("invalid or expired token")
	ErrForbidden    = fmt.Errorf("operation not allowed for this session")

	ErrNoSelection      = fmt.Errorf("no message selected")
	ErrInvalidRating    = fmt.Errorf("rating must be between 1 and 5")
	ErrUnsupportedImage = fmt.Errorf("unsupported image")
)

// MapToGRPCError translates domain errors into gRPC status errors.
// Unknown errors are reported as Internal.
func MapToGRPCError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case goerrors.Is(err, ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case goerrors.Is(err, ErrValidationRejected),
		goerrors.Is(err, ErrInvalidPath),
		goerrors.Is(err, ErrInvalidRating),
		goerrors.Is(err, ErrUnsupportedImage):
		return status.Error(codes.InvalidArgument, err.Error())
	case goerrors.Is(err, ErrNoSession), goerrors.Is(err, ErrInvalidToken):
		return status.Error(codes.Unauthenticated, err.Error())
	case goerrors.Is(err, ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case goerrors.Is(err, ErrStoreUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// FromGRPCError is the client side counterpart of MapToGRPCError.
// Transport failures (deadline, connection refused) surface as ErrStoreUnavailable.
func FromGRPCError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	switch st.Code() {
	case codes.NotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrValidationRejected, st.Message())
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %s", ErrNoSession, st.Message())
	case codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrForbidden, st.Message())
	default:
		return fmt.Errorf("%w: %s", ErrStoreUnavailable, st.Message())
	}
}
