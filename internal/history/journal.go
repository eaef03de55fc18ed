package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jask/edgeaudit/internal/wizard"
)

// Entry is one journaled submission attempt.
type Entry struct {
	ID        string    `json:"id" yaml:"id"`
	Template  string    `json:"template" yaml:"template"`
	Qualifier string    `json:"qualifier,omitempty" yaml:"qualifier,omitempty"`
	AuditID   string    `json:"audit_id,omitempty" yaml:"audit_id,omitempty"`
	EdgeScore float64   `json:"edge_score" yaml:"edge_score"`
	Succeeded bool      `json:"succeeded" yaml:"succeeded"`
	Reason    string    `json:"reason,omitempty" yaml:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Filter narrows List. Zero values select everything.
type Filter struct {
	Template   string
	FailedOnly bool
	Limit      int
}

// Journal stores submission outcomes.
type Journal struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open migrates and opens the journal at path.
func Open(path string, logger *zap.Logger) (*Journal, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := migrateUp(path); err != nil {
		return nil, err
	}
	db, err := open(path)
	if err != nil {
		return nil, err
	}
	return &Journal{db: db, logger: logger}, nil
}

// Close releases the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record stores one outcome and returns the stored entry.
func (j *Journal) Record(ctx context.Context, o wizard.Outcome) (Entry, error) {
	at := o.At.UTC().Truncate(time.Second)
	if o.At.IsZero() {
		at = now()
	}
	e := Entry{
		ID:        uuid.NewString(),
		Template:  o.Request.Template.Name,
		Qualifier: o.Request.Qualifier,
		AuditID:   o.AuditID,
		EdgeScore: o.Score,
		Succeeded: o.Succeeded(),
		Reason:    o.Reason,
		CreatedAt: at,
	}
	_, err := j.db.ExecContext(ctx, `
	INSERT INTO submissions(id, template, qualifier, audit_id, edge_score, succeeded, reason, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Template, e.Qualifier, e.AuditID, e.EdgeScore, e.Succeeded, e.Reason, e.CreatedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("record submission: %w", err)
	}
	return e, nil
}

// Recorder adapts the journal to wizard.OnOutcome. Failures are logged, not
// surfaced, so a broken journal never blocks a submission.
func (j *Journal) Recorder(ctx context.Context) func(wizard.Outcome) {
	return func(o wizard.Outcome) {
		if _, err := j.Record(ctx, o); err != nil {
			j.logger.Warn("journal write failed", zap.Error(err))
		}
	}
}

// List returns entries newest first.
func (j *Journal) List(ctx context.Context, f Filter) ([]Entry, error) {
	query := `SELECT id, template, qualifier, audit_id, edge_score, succeeded, reason, created_at FROM submissions WHERE 1=1`
	var args []any
	if f.Template != "" {
		query += ` AND template = ?`
		args = append(args, f.Template)
	}
	if f.FailedOnly {
		query += ` AND succeeded = 0`
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Template, &e.Qualifier, &e.AuditID, &e.EdgeScore, &e.Succeeded, &e.Reason, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
