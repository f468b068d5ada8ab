package cache

import (
	"errors"
	"kinship/internal/apperr"
	"net"

	"github.com/redis/go-redis/v9"
)

// redisErr maps go-redis failures onto the error taxonomy. Anything that is not a timeout
// is treated as a transient backend failure.
func redisErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var ne net.Error
	if apperr.KindOf(err) == apperr.KindTimeout || (errors.As(err, &ne) && ne.Timeout()) {
		return apperr.Timeout("redis call timed out", err).WithOp(op)
	}
	if errors.Is(err, redis.ErrClosed) {
		return apperr.Wrap(apperr.KindUnavailable, "redis client closed", err).WithOp(op)
	}
	return apperr.Wrap(apperr.KindUnavailable, "redis unavailable", err).WithOp(op)
}
