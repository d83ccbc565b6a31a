package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crmdesk/reply-service/internal/domain"
)

var replyColumnNames = []string{"id", "feedback_id", "content", "status", "submitted_by", "reviewed_by", "reviewed_at", "comment", "created_at", "updated_at"}

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestReplyRepository_Transition(t *testing.T) {
	reviewer := "manager-1"
	comment := "looks good"
	reviewedAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	created := reviewedAt.Add(-time.Hour)

	transition := ReplyTransition{
		ID:         "reply-1",
		From:       domain.ReplyStatusSubmitted,
		To:         domain.ReplyStatusApproved,
		ReviewedBy: &reviewer,
		ReviewedAt: &reviewedAt,
		Comment:    &comment,
	}

	tests := []struct {
		name    string
		setup   func(mock pgxmock.PgxPoolIface)
		wantErr error
	}{
		{
			name: "applies when status matches",
			setup: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows(replyColumnNames).
					AddRow("reply-1", "fb-1", "hello", domain.ReplyStatusApproved, "cso-1", &reviewer, &reviewedAt, &comment, created, reviewedAt)
				mock.ExpectQuery(regexp.QuoteMeta("UPDATE replies SET status=$1")).
					WithArgs(domain.ReplyStatusApproved, &reviewer, &reviewedAt, &comment, (*string)(nil), "reply-1", domain.ReplyStatusSubmitted).
					WillReturnRows(rows)
			},
		},
		{
			name: "no rows when status moved on",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(regexp.QuoteMeta("UPDATE replies SET status=$1")).
					WithArgs(domain.ReplyStatusApproved, &reviewer, &reviewedAt, &comment, (*string)(nil), "reply-1", domain.ReplyStatusSubmitted).
					WillReturnError(pgx.ErrNoRows)
			},
			wantErr: pgx.ErrNoRows,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockPool(t)
			tt.setup(mock)

			repo := NewReplyRepository(mock)
			reply, err := repo.Transition(context.Background(), transition)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.True(t, IsNotFound(err))
			} else {
				require.NoError(t, err)
				assert.Equal(t, domain.ReplyStatusApproved, reply.Status)
				require.NotNil(t, reply.ReviewedBy)
				assert.Equal(t, reviewer, *reply.ReviewedBy)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestReplyRepository_UpdateContentIsConditional(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE replies SET content=$1")).
		WithArgs("new text", "reply-1", domain.ReplyStatusDraft).
		WillReturnError(pgx.ErrNoRows)

	repo := NewReplyRepository(mock)
	_, err := repo.UpdateContent(context.Background(), "reply-1", domain.ReplyStatusDraft, "new text")
	require.ErrorIs(t, err, pgx.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplyRepository_ListSubmittedOrdersOldestFirst(t *testing.T) {
	mock := newMockPool(t)
	first := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	second := first.Add(time.Minute)
	rows := pgxmock.NewRows(replyColumnNames).
		AddRow("r-1", "fb-1", "a", domain.ReplyStatusSubmitted, "cso-1", (*string)(nil), (*time.Time)(nil), (*string)(nil), first, first).
		AddRow("r-2", "fb-2", "b", domain.ReplyStatusSubmitted, "cso-2", (*string)(nil), (*time.Time)(nil), (*string)(nil), second, second)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at ASC, id ASC")).
		WithArgs(domain.ReplyStatusSubmitted).
		WillReturnRows(rows)

	repo := NewReplyRepository(mock)
	queue, err := repo.ListSubmitted(context.Background())
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, "r-1", queue[0].ID)
	assert.Equal(t, "r-2", queue[1].ID)
	assert.Nil(t, queue[0].ReviewedBy)
	require.NoError(t, mock.ExpectationsWereMet())
}
