package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/seremi5/expense-server/internal/audit"
)

func (r *AuditRepository) Insert(ctx context.Context, entry audit.Entry) error {
	q := pick(r.pool, r.tx)

	var details []byte
	if len(entry.Details) > 0 {
		encoded, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("encode audit details: %w", err)
		}
		details = encoded
	}

	_, err := q.Exec(ctx, `
INSERT INTO audit_logs (actor, action, resource_type, resource_id, status, ip, details, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`,
		entry.Actor,
		entry.Action,
		entry.ResourceType,
		entry.ResourceID,
		entry.Status,
		entry.IP,
		details,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepository) List(ctx context.Context, filters audit.Filters, page audit.Page) (audit.ListResult, error) {
	q := pick(r.pool, r.tx)

	limit := page.Limit
	if limit <= 0 {
		limit = 50
	}
	limitPlusOne := limit + 1

	var start, end *time.Time
	if !filters.Start.IsZero() {
		start = &filters.Start
	}
	if !filters.End.IsZero() {
		end = &filters.End
	}

	rows, err := q.Query(ctx, `
SELECT seq, actor, action, resource_type, resource_id, status, ip, details, created_at
  FROM audit_logs
 WHERE ($1 = '' OR actor = $1)
   AND ($2 = '' OR action = $2)
   AND ($3 = '' OR resource_type = $3)
   AND ($4 = '' OR resource_id = $4)
   AND ($5::timestamptz IS NULL OR created_at >= $5::timestamptz)
   AND ($6::timestamptz IS NULL OR created_at <= $6::timestamptz)
   AND seq > $7
 ORDER BY seq ASC
 LIMIT $8
`,
		filters.Actor,
		filters.Action,
		filters.ResourceType,
		filters.ResourceID,
		start,
		end,
		page.AfterSeq,
		limitPlusOne,
	)
	if err != nil {
		return audit.ListResult{}, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]audit.Entry, 0, limitPlusOne)
	for rows.Next() {
		var entry audit.Entry
		var details []byte
		if err := rows.Scan(
			&entry.Seq,
			&entry.Actor,
			&entry.Action,
			&entry.ResourceType,
			&entry.ResourceID,
			&entry.Status,
			&entry.IP,
			&details,
			&entry.CreatedAt,
		); err != nil {
			return audit.ListResult{}, fmt.Errorf("scan audit entry: %w", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				return audit.ListResult{}, fmt.Errorf("decode audit details: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return audit.ListResult{}, fmt.Errorf("iterate audit entries: %w", err)
	}

	result := audit.ListResult{}
	if len(entries) > limit {
		entries = entries[:limit]
		result.HasMore = true
	}
	if len(entries) > 0 {
		result.LastSeq = entries[len(entries)-1].Seq
	}
	result.Entries = entries
	return result, nil
}

func (r *AuditRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	q := pick(r.pool, r.tx)

	tag, err := q.Exec(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete audit entries: %w", err)
	}
	return tag.RowsAffected(), nil
}
