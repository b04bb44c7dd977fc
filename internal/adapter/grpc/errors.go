package grpc

import (
	"context"
	"errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/simaogato/shiftescrow-backend/internal/domain"
)

const errorDomain = "shiftescrow"

var kindCodes = map[domain.ErrorKind]codes.Code{
	domain.KindValidation:       codes.InvalidArgument,
	domain.KindConflict:         codes.Aborted,
	domain.KindAuthorization:    codes.PermissionDenied,
	domain.KindDeadlineExceeded: codes.FailedPrecondition,
	domain.KindInvalidState:     codes.FailedPrecondition,
	domain.KindNotFound:         codes.NotFound,
}

// mapError converts domain errors to gRPC status errors.
// The domain error kind travels in an ErrorInfo detail so clients can tell
// deadline_exceeded from invalid_state although both use FailedPrecondition.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		code, ok := kindCodes[domainErr.Kind]
		if !ok {
			code = codes.Unknown
		}
		st := status.New(code, domainErr.Error())
		detailed, detailErr := st.WithDetails(&errdetails.ErrorInfo{
			Reason: string(domainErr.Kind),
			Domain: errorDomain,
		})
		if detailErr != nil {
			return st.Err()
		}
		return detailed.Err()
	}

	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request timed out")
	}

	// Infrastructure failures are not echoed to callers
	return status.Error(codes.Internal, "internal error")
}

// ErrorKindOf extracts the domain error kind from a status error returned by the server
func ErrorKindOf(err error) domain.ErrorKind {
	st, ok := status.FromError(err)
	if !ok {
		return ""
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.GetDomain() == errorDomain {
			return domain.ErrorKind(info.GetReason())
		}
	}
	return ""
}
