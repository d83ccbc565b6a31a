package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crmdesk/reply-service/internal/domain"
	apperrors "github.com/crmdesk/reply-service/pkg/util/errorutil"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		notFound bool
		code     string
	}{
		{name: "nil", err: nil},
		{name: "no rows passes through", err: pgx.ErrNoRows, notFound: true},
		{name: "malformed uuid", err: &pgconn.PgError{Code: pgInvalidTextRepresentation}, notFound: true},
		{name: "dangling reference", err: &pgconn.PgError{Code: pgForeignKeyViolation}, notFound: true},
		{name: "unique violation", err: &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "users_email_lower_idx"}, code: apperrors.CodeConflict},
		{name: "check violation", err: &pgconn.PgError{Code: pgCheckViolation}, code: apperrors.CodeValidation},
		{name: "other driver errors unchanged", err: &pgconn.PgError{Code: "57014"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err, "reply")
			if tt.err == nil {
				require.NoError(t, got)
				return
			}
			assert.Equal(t, tt.notFound, IsNotFound(got))
			if tt.code != "" {
				assert.True(t, apperrors.HasCode(got, tt.code), "got %v", got)
			}
			if !tt.notFound && tt.code == "" {
				assert.Same(t, tt.err, got)
			}
		})
	}
}

func TestReplyRepository_GetByIDMalformedID(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM replies WHERE id=$1")).
		WithArgs("abc").
		WillReturnError(&pgconn.PgError{Code: pgInvalidTextRepresentation, Message: `invalid input syntax for type uuid: "abc"`})

	_, err := NewReplyRepository(mock).GetByID(context.Background(), "abc")
	require.ErrorIs(t, err, pgx.ErrNoRows)

	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeNotFound, domainErr.Code)
	assert.False(t, domainErr.Retryable())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepository_MarkReadMalformedIDMatchesNothing(t *testing.T) {
	mock := newMockPool(t)
	id := "abc"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications SET status='READ'")).
		WithArgs(pgxmock.AnyArg(), "user-1", &id).
		WillReturnError(&pgconn.PgError{Code: pgInvalidTextRepresentation})

	n, err := NewNotificationRepository(mock).MarkRead(context.Background(), "user-1", &id, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateDuplicateEmail(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("a@example.com", "A", "hash", domain.RoleCSO, true).
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "users_email_lower_idx"})

	err := NewUserRepository(mock).Create(context.Background(), &domain.User{
		Email:        "a@example.com",
		Name:         "A",
		PasswordHash: "hash",
		Role:         domain.RoleCSO,
		IsActive:     true,
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
	assert.False(t, errors.Is(err, pgx.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}
