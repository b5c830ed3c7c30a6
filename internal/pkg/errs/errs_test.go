package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewError(t *testing.T) {
	t.Run("known code uses template", func(t *testing.T) {
		err := NewError(ErrNotAuthorized)

		assert.Equal(t, ErrNotAuthorized, err.Code)
		assert.Equal(t, http.StatusForbidden, err.Status)
		assert.NotEmpty(t, err.Message)
	})

	t.Run("details format the message", func(t *testing.T) {
		err := NewError(ErrMessageContentTooLong, 2000)

		assert.Equal(t, "Message is too long (max 2000 characters).", err.Message)
	})

	t.Run("unknown code falls back", func(t *testing.T) {
		err := NewError(424242)

		assert.Equal(t, ErrUnknown, err.Code)
		assert.Equal(t, http.StatusInternalServerError, err.Status)
	})

	t.Run("templates are not mutated", func(t *testing.T) {
		_ = NewError(ErrMessageContentTooLong, 10)

		assert.Contains(t, errorMap[ErrMessageContentTooLong].Message, "%d")
	})
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(ErrStoreFailed, cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")

	wrapped := fmt.Errorf("append: %w", err)
	assert.True(t, HasCode(wrapped, ErrStoreFailed))
	assert.ErrorIs(t, wrapped, NewError(ErrStoreFailed))
	assert.NotErrorIs(t, wrapped, NewError(ErrAuthFailed))
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	plain := FromError(errors.New("boom"))
	require.NotNil(t, plain)
	assert.Equal(t, ErrUnknown, plain.Code)

	custom := NewError(ErrInvalidCursor)
	assert.Same(t, custom, FromError(fmt.Errorf("fetch: %w", custom)))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "auth", err: NewError(ErrAuthFailed), want: KindAuth},
		{name: "not authorized", err: NewError(ErrNotAuthorized), want: KindNotAuthorized},
		{name: "empty content", err: NewError(ErrMessageContentEmpty), want: KindValidation},
		{name: "bad cursor", err: NewError(ErrInvalidCursor), want: KindValidation},
		{name: "store", err: Wrap(ErrStoreFailed, errors.New("timeout")), want: KindStore},
		{name: "not found", err: NewError(ErrChannelNotFound), want: KindNotFound},
		{name: "wrapped", err: fmt.Errorf("send: %w", NewError(ErrInvalidLimit)), want: KindValidation},
		{name: "plain", err: errors.New("x"), want: KindUnknown},
		{name: "nil", err: nil, want: KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}
