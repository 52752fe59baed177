package app

import (
	"context"
	"fmt"
	"math/rand"

	"quiz-session-engine/internal/domain"
)

// DistractorCount is the number of wrong options shown next to the correct one.
const DistractorCount = 3

// TitleSampler returns up to n distinct titles other than exclude.
type TitleSampler interface {
	SampleTitles(ctx context.Context, exclude string, n int) ([]string, error)
}

// OptionGenerator builds the answer options for a round.
type OptionGenerator struct {
	titles TitleSampler
}

func NewOptionGenerator(titles TitleSampler) *OptionGenerator {
	return &OptionGenerator{titles: titles}
}

// Generate returns the correct answer plus DistractorCount sampled titles in
// random order. A non-empty fixed list is returned verbatim instead; it is
// expected to already contain the correct answer.
func (g *OptionGenerator) Generate(ctx context.Context, correct string, fixed []string) ([]string, error) {
	if len(fixed) > 0 {
		options := make([]string, len(fixed))
		copy(options, fixed)
		return options, nil
	}

	sampled, err := g.titles.SampleTitles(ctx, correct, DistractorCount)
	if err != nil {
		return nil, fmt.Errorf("sample titles: %w", err)
	}

	options := make([]string, 0, DistractorCount+1)
	options = append(options, correct)
	seen := map[string]struct{}{correct: {}}
	for _, title := range sampled {
		if _, dup := seen[title]; dup {
			continue
		}
		seen[title] = struct{}{}
		options = append(options, title)
		if len(options) == DistractorCount+1 {
			break
		}
	}
	if len(options) < DistractorCount+1 {
		return nil, domain.ErrInsufficientDistractors
	}

	rand.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })
	return options, nil
}
