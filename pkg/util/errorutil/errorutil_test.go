package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	t.Run("passes domain errors through", func(t *testing.T) {
		in := NewForbidden("nope")
		out := ToDomainError(fmt.Errorf("wrapped: %w", in))
		require.NotNil(t, out)
		assert.Equal(t, CodeForbidden, out.Code)
		assert.Equal(t, http.StatusForbidden, out.HTTPStatus)
	})

	t.Run("maps no rows to not found", func(t *testing.T) {
		out := ToDomainError(pgx.ErrNoRows)
		assert.Equal(t, CodeNotFound, out.Code)
		assert.Equal(t, http.StatusNotFound, out.HTTPStatus)
	})

	t.Run("maps unknown errors to internal", func(t *testing.T) {
		cause := errors.New("connection reset")
		out := ToDomainError(cause)
		assert.Equal(t, CodeInternal, out.Code)
		assert.True(t, out.Retryable())
		assert.ErrorIs(t, out, cause)
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, ToDomainError(nil))
	})
}

func TestErrorClasses(t *testing.T) {
	cases := []struct {
		err    error
		code   string
		status int
	}{
		{NewValidationError("bad", map[string]any{"content": "required"}), CodeValidation, http.StatusBadRequest},
		{NewNotFound("reply", nil), CodeNotFound, http.StatusNotFound},
		{NewUnauthorized("Invalid credentials"), CodeUnauthorized, http.StatusUnauthorized},
		{NewInvalidState("reply is not submitted", nil), CodeInvalidState, http.StatusConflict},
		{NewRateLimited("too many attempts"), CodeRateLimited, http.StatusTooManyRequests},
		{NewConflict("email taken", nil), CodeConflict, http.StatusConflict},
	}
	for _, tc := range cases {
		de := ToDomainError(tc.err)
		assert.Equal(t, tc.code, de.Code)
		assert.Equal(t, tc.status, de.HTTPStatus)
		assert.False(t, de.Retryable())
		assert.True(t, HasCode(tc.err, tc.code))
	}
}

func TestRateLimitedHasNoDetails(t *testing.T) {
	de := ToDomainError(NewRateLimited("Too many failed login attempts"))
	assert.Empty(t, de.Details)
}
