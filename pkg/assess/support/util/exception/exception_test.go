package exception_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/scorin/pkg/assess/support/util/exception"
)

type customError struct {
	Msg string
}

func (e *customError) Error() string {
	return fmt.Sprintf("customError: %s", e.Msg)
}

func TestNewBatchError(t *testing.T) {
	originalErr := errors.New("db connection refused")
	// Signature is (module, message, originalErr, isSkippable, isRetryable).
	be := exception.NewBatchError("repo", "failed to connect", originalErr, false, true)

	assert.Equal(t, "repo", be.Module)
	assert.Equal(t, "failed to connect", be.Message)
	assert.Equal(t, originalErr, be.Unwrap())
	assert.True(t, be.IsRetryable())
	assert.False(t, be.IsSkippable())
	assert.Contains(t, be.Error(), "[repo] failed to connect: db connection refused")
}

func TestNewBatchErrorf(t *testing.T) {
	be1 := exception.NewBatchErrorf("fetcher", "page %d not found", 3)
	assert.False(t, be1.IsRetryable())
	assert.False(t, be1.IsSkippable())
	assert.Nil(t, be1.Unwrap())
	assert.Contains(t, be1.Error(), "[fetcher] page 3 not found")

	// A single trailing bool is interpreted as isRetryable.
	be2 := exception.NewBatchErrorf("ai_invoker", "timeout occurred", true)
	assert.True(t, be2.IsRetryable())
	assert.False(t, be2.IsSkippable())

	// Trailing order is (..., isSkippable, isRetryable, originalErr).
	originalErr := errors.New("bad payload")
	be3 := exception.NewBatchErrorf("analyzer", "conversation %s unparsable", "c-1", true, false, originalErr)
	assert.False(t, be3.IsRetryable())
	assert.True(t, be3.IsSkippable())
	assert.Equal(t, originalErr, be3.Unwrap())
	assert.Contains(t, be3.Error(), "conversation c-1 unparsable")
}

func TestIsTemporary(t *testing.T) {
	assert.False(t, exception.IsTemporary(nil))
	assert.True(t, exception.IsTemporary(errors.New("dial tcp: connection refused")))
	assert.True(t, exception.IsTemporary(errors.New("request timeout")))
	assert.False(t, exception.IsTemporary(errors.New("permission denied")))

	// A BatchError's own flag takes precedence over substrings.
	be := exception.NewBatchError("ai_invoker", "connection refused by provider", nil, false, false)
	assert.False(t, exception.IsTemporary(be))
}

func TestIsFatal(t *testing.T) {
	assert.False(t, exception.IsFatal(nil))
	assert.True(t, exception.IsFatal(exception.NewBatchError("pipeline", "framework missing", nil, false, false)))
	assert.False(t, exception.IsFatal(exception.NewBatchError("analyzer", "bad response", nil, true, false)))
	assert.False(t, exception.IsFatal(errors.New("plain error")))
}

func TestIsErrorOfType(t *testing.T) {
	// Registered sentinel match via errors.Is.
	wrapped := fmt.Errorf("call failed: %w", context.DeadlineExceeded)
	assert.True(t, exception.IsErrorOfType(wrapped, "context.DeadlineExceeded"))

	// Go type name match, with and without the pointer prefix.
	custom := &customError{Msg: "boom"}
	assert.True(t, exception.IsErrorOfType(custom, "exception_test.customError"))

	// Substring match.
	assert.True(t, exception.IsErrorOfType(errors.New("TooManyRequestsError from upstream"), "TooManyRequestsError"))

	assert.False(t, exception.IsErrorOfType(errors.New("boring"), "context.Canceled"))
	assert.False(t, exception.IsErrorOfType(nil, "context.Canceled"))
}

func TestExtractErrorMessage(t *testing.T) {
	assert.Equal(t, "", exception.ExtractErrorMessage(nil))
	assert.Equal(t, "plain", exception.ExtractErrorMessage(errors.New("plain")))

	be := exception.NewBatchError("analyzer", "AI invocation failed", errors.New("HTTP 500"), true, false)
	assert.Equal(t, "AI invocation failed", exception.ExtractErrorMessage(be))
}

func TestRegisterErrorType(t *testing.T) {
	sentinel := errors.New("quota exhausted")
	exception.RegisterErrorType("test.QuotaExhausted", sentinel)

	assert.True(t, exception.IsErrorTypeRegistered("test.QuotaExhausted"))
	assert.True(t, exception.IsErrorOfType(fmt.Errorf("wrap: %w", sentinel), "test.QuotaExhausted"))
	assert.False(t, exception.IsErrorTypeRegistered("test.Unknown"))
}
