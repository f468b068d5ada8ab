package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorString(t *testing.T) {
	err := Wrap(KindUnavailable, "store down", errors.New("connection refused")).WithOp("chats.get")
	assert.Equal(t, "chats.get: store down: connection refused", err.Error())

	var nilErr *Error
	assert.Equal(t, "apperr: <nil>", nilErr.Error())
	assert.Nil(t, nilErr.Unwrap())
}

func TestErrorsIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("loading chat: %w", NotFound("chat c1 not found"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrUnavailable))
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: ""},
		{name: "typed", err: Validation("bad"), want: KindValidation},
		{name: "deadline", err: context.DeadlineExceeded, want: KindTimeout},
		{name: "canceled", err: fmt.Errorf("wrapped: %w", context.Canceled), want: KindTimeout},
		{name: "plain", err: errors.New("boom"), want: KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(Unavailable("x")))
	assert.True(t, Retryable(Timeout("x", nil)))
	assert.True(t, Retryable(RateLimited("chat:1", 5)))
	assert.False(t, Retryable(ModerationRejected("banned_term", 1)))
	assert.False(t, Retryable(Validation("x")))
	assert.False(t, Retryable(errors.New("boom")))
}

func TestRateLimitedCarriesContext(t *testing.T) {
	err := RateLimited("messages:c1", 5)

	require.NotNil(t, err.Context)
	assert.Equal(t, "messages:c1", err.Context["key"])
	assert.Equal(t, 5, err.Context["capacity"])
	assert.True(t, errors.Is(err, ErrRateLimited))
}

func TestWithCopiesContext(t *testing.T) {
	base := ModerationRejected("toxicity", 0.9)
	extended := base.With("chatId", "c1")

	assert.NotContains(t, base.Context, "chatId")
	assert.Equal(t, "c1", extended.Context["chatId"])
	assert.Equal(t, "toxicity", extended.Context["reason"])
}

func TestFromKeepsClassification(t *testing.T) {
	orig := PermissionDenied("not a participant")
	assert.Same(t, orig, From(fmt.Errorf("send: %w", orig)))

	converted := From(context.DeadlineExceeded)
	assert.Equal(t, KindTimeout, converted.Kind)
	assert.ErrorIs(t, converted, context.DeadlineExceeded)

	assert.Nil(t, From(nil))
}

func TestFromStoreCode(t *testing.T) {
	tests := map[string]Kind{
		"not-found":          KindNotFound,
		"permission-denied":  KindPermissionDenied,
		"unavailable":        KindUnavailable,
		"deadline-exceeded":  KindTimeout,
		"resource-exhausted": KindRateLimited,
		"INVALID-ARGUMENT":   KindValidation,
		"aborted":            KindInternal,
	}
	for code, want := range tests {
		assert.Equal(t, want, FromStoreCode(code), code)
	}

	err := FromStore("messages.batchWrite", StoreUnavailable, errors.New("socket closed"))
	assert.True(t, Retryable(err))
	assert.Contains(t, err.Error(), "messages.batchWrite")
}
