package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(ErrNetworkFailure, "search threads failed").
		WithCause(root).
		WithHTTPStatus(502).
		WithRetryable(true)

	if GetErrorCode(err) != ErrNetworkFailure {
		t.Fatalf("expected code %s, got %s", ErrNetworkFailure, GetErrorCode(err))
	}
	if !IsRetryable(err) {
		t.Fatalf("expected retryable")
	}
	if !errors.Is(err, root) {
		t.Fatalf("expected errors.Is unwrap to root")
	}
	if got := err.Error(); got == "" {
		t.Fatalf("expected non-empty error string")
	}
}

func TestError_WrappedLookup(t *testing.T) {
	t.Parallel()

	inner := NewValidationError("limit %d out of range", 500)
	wrapped := fmt.Errorf("fetch list: %w", inner)

	assert.True(t, IsErrorCode(wrapped, ErrValidation))
	assert.False(t, IsRetryable(wrapped))
	assert.Equal(t, "[VALIDATION_FAILURE] limit 500 out of range", inner.Error())

	e, ok := AsError(wrapped)
	assert.True(t, ok)
	assert.Same(t, inner, e)
}

func TestError_PlainErrors(t *testing.T) {
	t.Parallel()

	plain := errors.New("boom")
	assert.Equal(t, ErrorCode(""), GetErrorCode(plain))
	assert.False(t, IsRetryable(plain))
	assert.False(t, IsErrorCode(nil, ErrNetworkFailure))
}

func TestNewNetworkError(t *testing.T) {
	t.Parallel()

	err := NewNetworkError("get thread", errors.New("connection reset"))
	assert.Equal(t, ErrNetworkFailure, err.Code)
	assert.True(t, err.Retryable)
	assert.Contains(t, err.Error(), "get thread failed")
}
