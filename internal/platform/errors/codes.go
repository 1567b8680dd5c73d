// Package errors provides structured error handling with localized reasons.
package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Validation errors
	CodeValidationRequired    Code = "VALIDATION_REQUIRED"
	CodeValidationInvalidEnum Code = "VALIDATION_INVALID_ENUM"
	CodeValidationTooLong     Code = "VALIDATION_TOO_LONG"
	CodeValidationOutOfRange  Code = "VALIDATION_OUT_OF_RANGE"
	CodeValidationInvalidURL  Code = "VALIDATION_INVALID_URL"

	// Identity and authorization errors
	CodeUnauthenticated    Code = "UNAUTHENTICATED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeMembershipRequired Code = "MEMBERSHIP_REQUIRED"

	// Lookup errors
	CodeNotFound                   Code = "NOT_FOUND"
	CodeJoinRequestAlreadyResolved Code = "JOIN_REQUEST_ALREADY_RESOLVED"

	// State errors
	CodeRoomInactive        Code = "ROOM_INACTIVE"
	CodeLastTeacherRequired Code = "LAST_TEACHER_REQUIRED"
	CodeConflict            Code = "CONFLICT"

	// Store errors
	CodeDependencyFailure Code = "DEPENDENCY_FAILURE"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	case CodeValidationRequired,
		CodeValidationInvalidEnum,
		CodeValidationTooLong,
		CodeValidationOutOfRange,
		CodeValidationInvalidURL:
		return codes.InvalidArgument

	case CodeUnauthenticated:
		return codes.Unauthenticated

	case CodeForbidden,
		CodeMembershipRequired:
		return codes.PermissionDenied

	case CodeNotFound,
		CodeJoinRequestAlreadyResolved:
		return codes.NotFound

	case CodeRoomInactive,
		CodeLastTeacherRequired:
		return codes.FailedPrecondition

	case CodeConflict:
		return codes.AlreadyExists

	case CodeDependencyFailure:
		return codes.Unavailable

	default:
		return codes.Internal
	}
}

// HTTPStatus maps domain codes to HTTP response statuses.
func (c Code) HTTPStatus() int {
	switch c.GRPCCode() {
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.FailedPrecondition, codes.AlreadyExists:
		return http.StatusConflict
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
