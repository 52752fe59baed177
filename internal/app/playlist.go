package app

import (
	"context"

	"quiz-session-engine/internal/domain"
)

// QuestionBank is the read-only question store.
type QuestionBank interface {
	TitleSampler
	Question(ctx context.Context, id string) (domain.Question, error)
	RandomQuestion(ctx context.Context, exclude string) (domain.Question, error)
}

// Playlist resolves rounds to questions: a round pinned by an override with a
// question id is looked up by id, every other round draws a random question.
type Playlist struct {
	bank      QuestionBank
	overrides map[int]domain.RoundOverride
}

func NewPlaylist(bank QuestionBank, overrides map[int]domain.RoundOverride) *Playlist {
	return &Playlist{bank: bank, overrides: overrides}
}

// Lookup returns the question for a 0-based round.
func (p *Playlist) Lookup(ctx context.Context, round int) (domain.Question, error) {
	if o, ok := p.overrides[round]; ok && o.QuestionID != "" {
		return p.bank.Question(ctx, o.QuestionID)
	}
	return p.bank.RandomQuestion(ctx, "")
}

func (p *Playlist) LookupRandom(ctx context.Context, exclude string) (domain.Question, error) {
	return p.bank.RandomQuestion(ctx, exclude)
}
