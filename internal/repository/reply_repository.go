package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/crmdesk/reply-service/internal/domain"
)

// ReplyFilter captures listing parameters.
type ReplyFilter struct {
	FeedbackID  *string
	SubmittedBy *string
	Statuses    []domain.ReplyStatus
	Limit       int
	Offset      int
}

// ReplyTransition describes a conditional status change. The update only applies
// while the stored status still equals From. Content, when set, is written in the same statement.
type ReplyTransition struct {
	ID         string
	From       domain.ReplyStatus
	To         domain.ReplyStatus
	ReviewedBy *string
	ReviewedAt *time.Time
	Comment    *string
	Content    *string
}

// ReplyRepository encapsulates reply persistence.
type ReplyRepository interface {
	Create(ctx context.Context, reply *domain.Reply) error
	GetByID(ctx context.Context, id string) (*domain.Reply, error)
	List(ctx context.Context, filter ReplyFilter) ([]domain.Reply, error)
	// ListSubmitted returns the approval queue, oldest first.
	ListSubmitted(ctx context.Context) ([]domain.Reply, error)
	// UpdateContent rewrites content if the status is still expected. pgx.ErrNoRows otherwise.
	UpdateContent(ctx context.Context, id string, expected domain.ReplyStatus, content string) (*domain.Reply, error)
	// Transition applies t atomically. pgx.ErrNoRows when the status no longer matches t.From.
	Transition(ctx context.Context, t ReplyTransition) (*domain.Reply, error)
	CountByStatus(ctx context.Context) (map[domain.ReplyStatus]int, error)
}

type replyRepository struct {
	db DB
}

// NewReplyRepository instantiates repository.
func NewReplyRepository(db DB) ReplyRepository {
	return &replyRepository{db: db}
}

const replyColumns = `id, feedback_id, content, status, submitted_by, reviewed_by, reviewed_at, comment, created_at, updated_at`

func (r *replyRepository) Create(ctx context.Context, reply *domain.Reply) error {
	const query = `
        INSERT INTO replies (feedback_id, content, status, submitted_by)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		reply.FeedbackID,
		reply.Content,
		reply.Status,
		reply.SubmittedBy,
	).Scan(&reply.ID, &reply.CreatedAt, &reply.UpdatedAt)
	return mapError(err, "reply")
}

func (r *replyRepository) GetByID(ctx context.Context, id string) (*domain.Reply, error) {
	return scanReply(r.db.QueryRow(ctx, `SELECT `+replyColumns+` FROM replies WHERE id=$1`, id))
}

func (r *replyRepository) List(ctx context.Context, filter ReplyFilter) ([]domain.Reply, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.FeedbackID != nil {
		args = append(args, *filter.FeedbackID)
		clauses = append(clauses, fmt.Sprintf("feedback_id=$%d", len(args)))
	}
	if filter.SubmittedBy != nil {
		args = append(args, *filter.SubmittedBy)
		clauses = append(clauses, fmt.Sprintf("submitted_by=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM replies WHERE %s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d`,
		replyColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "reply")
	}
	defer rows.Close()
	return scanReplies(rows)
}

func (r *replyRepository) ListSubmitted(ctx context.Context) ([]domain.Reply, error) {
	query := `SELECT ` + replyColumns + ` FROM replies WHERE status=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, domain.ReplyStatusSubmitted)
	if err != nil {
		return nil, mapError(err, "reply")
	}
	defer rows.Close()
	return scanReplies(rows)
}

func (r *replyRepository) UpdateContent(ctx context.Context, id string, expected domain.ReplyStatus, content string) (*domain.Reply, error) {
	query := `
        UPDATE replies SET content=$1, updated_at=NOW()
        WHERE id=$2 AND status=$3
        RETURNING ` + replyColumns
	return scanReply(r.db.QueryRow(ctx, query, content, id, expected))
}

func (r *replyRepository) Transition(ctx context.Context, t ReplyTransition) (*domain.Reply, error) {
	query := `
        UPDATE replies SET status=$1,
            reviewed_by=COALESCE($2, reviewed_by),
            reviewed_at=COALESCE($3, reviewed_at),
            comment=COALESCE($4, comment),
            content=COALESCE($5, content),
            updated_at=NOW()
        WHERE id=$6 AND status=$7
        RETURNING ` + replyColumns
	return scanReply(r.db.QueryRow(ctx, query,
		t.To,
		t.ReviewedBy,
		t.ReviewedAt,
		t.Comment,
		t.Content,
		t.ID,
		t.From,
	))
}

func (r *replyRepository) CountByStatus(ctx context.Context) (map[domain.ReplyStatus]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM replies GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.ReplyStatus]int)
	for rows.Next() {
		var status domain.ReplyStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func scanReply(row pgx.Row) (*domain.Reply, error) {
	var reply domain.Reply
	if err := row.Scan(
		&reply.ID,
		&reply.FeedbackID,
		&reply.Content,
		&reply.Status,
		&reply.SubmittedBy,
		&reply.ReviewedBy,
		&reply.ReviewedAt,
		&reply.Comment,
		&reply.CreatedAt,
		&reply.UpdatedAt,
	); err != nil {
		return nil, mapError(err, "reply")
	}
	return &reply, nil
}

func scanReplies(rows pgx.Rows) ([]domain.Reply, error) {
	var result []domain.Reply
	for rows.Next() {
		reply, err := scanReply(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *reply)
	}
	return result, mapError(rows.Err(), "reply")
}
