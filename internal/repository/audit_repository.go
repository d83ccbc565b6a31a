package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/crmdesk/reply-service/internal/domain"
)

// AuditFilter narrows audit log queries. Action and Resource match as case-insensitive substrings.
type AuditFilter struct {
	ActorID  *string
	Action   string
	Resource string
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

// AuditRepository stores audit entries. Entries are never updated.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLogEntry) error
	GetByID(ctx context.Context, id string) (*domain.AuditLogEntry, error)
	// List returns one page plus the total number of matching entries.
	List(ctx context.Context, filter AuditFilter) ([]domain.AuditLogEntry, int, error)
	ListByResource(ctx context.Context, resource string) ([]domain.AuditLogEntry, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type auditRepository struct {
	db DB
}

// NewAuditRepository builds repository.
func NewAuditRepository(db DB) AuditRepository {
	return &auditRepository{db: db}
}

const auditColumns = `id, actor_id, action, resource, metadata, created_at`

func (r *auditRepository) Create(ctx context.Context, entry *domain.AuditLogEntry) error {
	const query = `
        INSERT INTO audit_logs (actor_id, action, resource, metadata)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query,
		entry.ActorID,
		entry.Action,
		entry.Resource,
		entry.Metadata,
	).Scan(&entry.ID, &entry.CreatedAt)
	return mapError(err, "audit log")
}

func (r *auditRepository) GetByID(ctx context.Context, id string) (*domain.AuditLogEntry, error) {
	return scanAuditEntry(r.db.QueryRow(ctx, `SELECT `+auditColumns+` FROM audit_logs WHERE id=$1`, id))
}

func (r *auditRepository) List(ctx context.Context, filter AuditFilter) ([]domain.AuditLogEntry, int, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ActorID != nil {
		args = append(args, *filter.ActorID)
		clauses = append(clauses, fmt.Sprintf("actor_id=$%d", len(args)))
	}
	if action := strings.TrimSpace(filter.Action); action != "" {
		args = append(args, "%"+strings.ToLower(action)+"%")
		clauses = append(clauses, fmt.Sprintf("LOWER(action) LIKE $%d", len(args)))
	}
	if resource := strings.TrimSpace(filter.Resource); resource != "" {
		args = append(args, "%"+strings.ToLower(resource)+"%")
		clauses = append(clauses, fmt.Sprintf("LOWER(resource) LIKE $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s, COUNT(*) OVER() FROM audit_logs WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		auditColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, mapError(err, "audit log")
	}
	defer rows.Close()

	var (
		result []domain.AuditLogEntry
		total  int
	)
	for rows.Next() {
		var entry domain.AuditLogEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.ActorID,
			&entry.Action,
			&entry.Resource,
			&entry.Metadata,
			&entry.CreatedAt,
			&total,
		); err != nil {
			return nil, 0, err
		}
		result = append(result, entry)
	}
	return result, total, rows.Err()
}

func (r *auditRepository) ListByResource(ctx context.Context, resource string) ([]domain.AuditLogEntry, error) {
	rows, err := r.db.Query(ctx, `SELECT `+auditColumns+` FROM audit_logs WHERE resource=$1 ORDER BY created_at ASC`, resource)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AuditLogEntry
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *entry)
	}
	return result, rows.Err()
}

func (r *auditRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cmd, err := r.db.Exec(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func scanAuditEntry(row pgx.Row) (*domain.AuditLogEntry, error) {
	var entry domain.AuditLogEntry
	if err := row.Scan(
		&entry.ID,
		&entry.ActorID,
		&entry.Action,
		&entry.Resource,
		&entry.Metadata,
		&entry.CreatedAt,
	); err != nil {
		return nil, mapError(err, "audit log")
	}
	return &entry, nil
}
