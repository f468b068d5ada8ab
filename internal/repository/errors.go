package repository

import (
	"errors"
	"kinship/internal/apperr"

	"go.mongodb.org/mongo-driver/mongo"
)

// storeCode maps a mongo driver error onto the document store status codes.
func storeCode(err error) string {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return apperr.StoreNotFound
	case apperr.KindOf(err) == apperr.KindTimeout, mongo.IsTimeout(err):
		return apperr.StoreDeadlineExceeded
	case mongo.IsNetworkError(err), errors.Is(err, mongo.ErrClientDisconnected):
		return apperr.StoreUnavailable
	case mongo.IsDuplicateKeyError(err):
		return apperr.StoreInvalidArgument
	}

	var se mongo.ServerError
	if errors.As(err, &se) {
		switch {
		case se.HasErrorCode(13), se.HasErrorCode(18): // Unauthorized, AuthenticationFailed
			return apperr.StorePermissionDenied
		case se.HasErrorCode(50), se.HasErrorCode(262): // MaxTimeMSExpired, ExceededTimeLimit
			return apperr.StoreDeadlineExceeded
		case se.HasErrorCode(2), se.HasErrorCode(9), se.HasErrorCode(14): // BadValue, FailedToParse, TypeMismatch
			return apperr.StoreInvalidArgument
		case se.HasErrorCode(16500): // request rate too large
			return apperr.StoreResourceExhausted
		case se.HasErrorCode(91), se.HasErrorCode(189), se.HasErrorCode(10107), se.HasErrorCode(13435), se.HasErrorCode(11600):
			return apperr.StoreUnavailable
		}
	}
	return ""
}

// translate converts a driver error into the error taxonomy, tagged with op.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if code := storeCode(err); code != "" {
		return apperr.FromStore(op, code, err)
	}
	return apperr.Wrap(apperr.KindInternal, "document store failure", err).WithOp(op)
}
