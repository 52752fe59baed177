package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"quiz-session-engine/internal/domain"
)

type auditEntry struct {
	bun.BaseModel `bun:"table:audit_entries"`

	ID         uuid.UUID            `bun:"id,pk,type:uuid"`
	SessionID  string               `bun:"session_id,notnull"`
	Round      int                  `bun:"round,notnull"`
	Final      bool                 `bun:"final,notnull"`
	Entries    []domain.RankedEntry `bun:"entries,type:jsonb,notnull"`
	RecordedAt time.Time            `bun:"recorded_at,notnull"`
}

// AuditSink appends standings snapshots to the audit_entries table.
type AuditSink struct {
	db *bun.DB
}

func NewAuditSink(db *bun.DB) *AuditSink {
	return &AuditSink{db: db}
}

func (s *AuditSink) Append(ctx context.Context, standings domain.Standings) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate audit id: %w", err)
	}
	recordedAt := standings.TakenAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}
	entries := standings.Entries
	if entries == nil {
		entries = []domain.RankedEntry{}
	}
	entry := &auditEntry{
		ID:         id,
		SessionID:  standings.SessionID,
		Round:      standings.Round,
		Final:      standings.Final,
		Entries:    entries,
		RecordedAt: recordedAt,
	}
	if _, err := s.db.NewInsert().Model(entry).Exec(ctx); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// History returns the audit entries of a session, oldest first.
func (s *AuditSink) History(ctx context.Context, sessionID string) ([]domain.Standings, error) {
	var rows []auditEntry
	err := s.db.NewSelect().
		Model(&rows).
		Where("session_id = ?", sessionID).
		Order("recorded_at ASC", "final ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select audit entries: %w", err)
	}
	out := make([]domain.Standings, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Standings{
			SessionID: r.SessionID,
			Round:     r.Round,
			Final:     r.Final,
			Entries:   r.Entries,
			TakenAt:   r.RecordedAt,
		})
	}
	return out, nil
}
