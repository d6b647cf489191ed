package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/service-kit/internal/core/domain/audit"
	"github.com/avatarctic/service-kit/internal/infrastructure/db"
)

const insertEvent = `INSERT INTO audit_events
	(id, subject, action, resource, target, details, ip_address, user_agent, occurred_at)
	VALUES (:id, :subject, :action, :resource, :target, :details, :ip_address, :user_agent, :occurred_at)`

const eventColumns = `id, subject, action, resource, target, details, ip_address, user_agent, occurred_at`

// eventRow is the audit_events row. Total is filled by the window count in searches.
type eventRow struct {
	ID         uuid.UUID          `db:"id"`
	Subject    string             `db:"subject"`
	Action     string             `db:"action"`
	Resource   string             `db:"resource"`
	Target     string             `db:"target"`
	Details    types.NullJSONText `db:"details"`
	IPAddress  string             `db:"ip_address"`
	UserAgent  string             `db:"user_agent"`
	OccurredAt time.Time          `db:"occurred_at"`
	Total      int                `db:"total"`
}

func rowFromEvent(e *audit.Event) eventRow {
	return eventRow{
		ID:         e.ID,
		Subject:    e.Subject,
		Action:     string(e.Action),
		Resource:   string(e.Resource),
		Target:     e.Target,
		Details:    types.NullJSONText{JSONText: types.JSONText(e.Details), Valid: len(e.Details) > 0},
		IPAddress:  e.IPAddress,
		UserAgent:  e.UserAgent,
		OccurredAt: e.At,
	}
}

func (r eventRow) event() *audit.Event {
	e := &audit.Event{
		ID:        r.ID,
		Subject:   r.Subject,
		Action:    audit.Action(r.Action),
		Resource:  audit.Resource(r.Resource),
		Target:    r.Target,
		IPAddress: r.IPAddress,
		UserAgent: r.UserAgent,
		At:        r.OccurredAt,
	}
	if r.Details.Valid {
		e.Details = json.RawMessage(r.Details.JSONText)
	}
	return e
}

// AuditRepository stores audit events in Postgres.
type AuditRepository struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

func NewAuditRepository(database *db.Database, logger *logrus.Logger) *AuditRepository {
	return &AuditRepository{db: database.DB, logger: logger}
}

func (r *AuditRepository) Insert(ctx context.Context, e *audit.Event) error {
	if _, err := r.db.NamedExecContext(ctx, insertEvent, rowFromEvent(e)); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// Search returns one page of matches, newest first. The total comes from a window count
// on the same query; a page past the last match falls back to a plain COUNT.
func (r *AuditRepository) Search(ctx context.Context, q audit.Query) (*audit.Page, error) {
	where, args := searchFilter(q)

	query := r.db.Rebind(`SELECT ` + eventColumns + `, COUNT(*) OVER () AS total FROM audit_events` +
		where + ` ORDER BY occurred_at DESC LIMIT ? OFFSET ?`)
	var rows []eventRow
	if err := r.db.SelectContext(ctx, &rows, query, append(args, q.Limit, q.Offset)...); err != nil {
		r.logQueryError(err, query)
		return nil, fmt.Errorf("search audit events: %w", err)
	}

	page := &audit.Page{Events: make([]*audit.Event, 0, len(rows))}
	for _, row := range rows {
		page.Events = append(page.Events, row.event())
		page.Total = row.Total
	}
	if len(rows) == 0 && q.Offset > 0 {
		countQuery := r.db.Rebind(`SELECT COUNT(*) FROM audit_events` + where)
		if err := r.db.GetContext(ctx, &page.Total, countQuery, args...); err != nil {
			r.logQueryError(err, countQuery)
			return nil, fmt.Errorf("count audit events: %w", err)
		}
	}
	return page, nil
}

func (r *AuditRepository) logQueryError(err error, query string) {
	if r.logger != nil {
		r.logger.WithError(err).WithField("query", query).Error("db: audit query failed")
	}
}

// searchFilter builds the WHERE clause with "?" placeholders for sqlx.Rebind.
func searchFilter(q audit.Query) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		conds = append(conds, cond)
		args = append(args, arg)
	}
	if q.Subject != "" {
		add("subject = ?", q.Subject)
	}
	if q.Action != "" {
		add("action = ?", string(q.Action))
	}
	if q.Resource != "" {
		add("resource = ?", string(q.Resource))
	}
	if q.TargetPrefix != "" {
		add("target LIKE ?", escapeLike(q.TargetPrefix)+"%")
	}
	if !q.Since.IsZero() {
		add("occurred_at >= ?", q.Since)
	}
	if !q.Until.IsZero() {
		add("occurred_at < ?", q.Until)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike quotes LIKE wildcards; cache keys routinely contain "_".
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
