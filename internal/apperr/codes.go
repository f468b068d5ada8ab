package apperr

import "strings"

// Document store status codes consumed from the remote store.
const (
	StoreNotFound          = "not-found"
	StorePermissionDenied  = "permission-denied"
	StoreUnavailable       = "unavailable"
	StoreDeadlineExceeded  = "deadline-exceeded"
	StoreResourceExhausted = "resource-exhausted"
	StoreInvalidArgument   = "invalid-argument"
)

// FromStoreCode maps a document store status code onto the taxonomy.
func FromStoreCode(code string) Kind {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case StoreNotFound:
		return KindNotFound
	case StorePermissionDenied:
		return KindPermissionDenied
	case StoreUnavailable:
		return KindUnavailable
	case StoreDeadlineExceeded:
		return KindTimeout
	case StoreResourceExhausted:
		return KindRateLimited
	case StoreInvalidArgument:
		return KindValidation
	default:
		return KindInternal
	}
}

// FromStore builds an *Error for a failed store call.
func FromStore(op, code string, cause error) *Error {
	return &Error{
		Kind:    FromStoreCode(code),
		Op:      op,
		Message: "document store: " + code,
		Cause:   cause,
	}
}
