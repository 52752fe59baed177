package audit

import (
	"context"
	"errors"

	"quiz-session-engine/internal/domain"
)

// Sink is the subset of app.AuditSink the tee forwards to.
type Sink interface {
	Append(ctx context.Context, standings domain.Standings) error
}

// Tee writes every record to all sinks and joins their errors.
type Tee []Sink

func (t Tee) Append(ctx context.Context, standings domain.Standings) error {
	var errs []error
	for _, s := range t {
		if err := s.Append(ctx, standings); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
