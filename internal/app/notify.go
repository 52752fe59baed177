package app

import (
	"context"

	"quiz-session-engine/internal/domain"
)

// Notifier receives engine events. Delivery is fire-and-forget: methods must
// not block for long and report their own failures.
type Notifier interface {
	RoundOpened(ctx context.Context, e domain.RoundOpened)
	// AnswerAccepted never carries correctness.
	AnswerAccepted(ctx context.Context, sessionID, participantID string)
	RoundClosed(ctx context.Context, e domain.RoundClosed)
	AnswerRevealed(ctx context.Context, e domain.RoundClosed)
	SessionEnded(ctx context.Context, standings domain.Standings)
}

// Notifiers fans every event out to each notifier in order.
type Notifiers []Notifier

func (n Notifiers) RoundOpened(ctx context.Context, e domain.RoundOpened) {
	for _, x := range n {
		x.RoundOpened(ctx, e)
	}
}

func (n Notifiers) AnswerAccepted(ctx context.Context, sessionID, participantID string) {
	for _, x := range n {
		x.AnswerAccepted(ctx, sessionID, participantID)
	}
}

func (n Notifiers) RoundClosed(ctx context.Context, e domain.RoundClosed) {
	for _, x := range n {
		x.RoundClosed(ctx, e)
	}
}

func (n Notifiers) AnswerRevealed(ctx context.Context, e domain.RoundClosed) {
	for _, x := range n {
		x.AnswerRevealed(ctx, e)
	}
}

func (n Notifiers) SessionEnded(ctx context.Context, standings domain.Standings) {
	for _, x := range n {
		x.SessionEnded(ctx, standings)
	}
}
