package memory

import (
	"context"

	"quiz-session-engine/internal/domain"
)

// StaticRoster hands out a fixed member list per session, falling back to a
// default list for unknown sessions.
type StaticRoster struct {
	Default  []domain.Member
	Sessions map[string][]domain.Member
}

func (r StaticRoster) Roster(_ context.Context, sessionID string) ([]domain.Member, error) {
	if members, ok := r.Sessions[sessionID]; ok {
		return members, nil
	}
	return r.Default, nil
}
