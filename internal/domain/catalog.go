package domain

import "math/rand"

// Catalog is a full snapshot of a question bank. Question banks cache it and
// serve lookups from it.
type Catalog []Question

// Find returns the question with the given id.
func (c Catalog) Find(id string) (Question, error) {
	for _, q := range c {
		if q.ID == id {
			return q, nil
		}
	}
	return Question{}, ErrQuestionNotFound
}

// Random picks a question whose title differs from exclude. An empty exclude
// allows every question.
func (c Catalog) Random(exclude string) (Question, error) {
	candidates := make([]Question, 0, len(c))
	for _, q := range c {
		if exclude != "" && q.Title == exclude {
			continue
		}
		candidates = append(candidates, q)
	}
	if len(candidates) == 0 {
		return Question{}, ErrQuestionNotFound
	}
	return candidates[rand.Intn(len(candidates))], nil
}

// SampleTitles returns up to n distinct titles other than exclude, sampled
// without replacement.
func (c Catalog) SampleTitles(exclude string, n int) []string {
	seen := make(map[string]struct{}, len(c))
	titles := make([]string, 0, len(c))
	for _, q := range c {
		if q.Title == "" || q.Title == exclude {
			continue
		}
		if _, ok := seen[q.Title]; ok {
			continue
		}
		seen[q.Title] = struct{}{}
		titles = append(titles, q.Title)
	}
	rand.Shuffle(len(titles), func(i, j int) { titles[i], titles[j] = titles[j], titles[i] })
	if len(titles) > n {
		titles = titles[:n]
	}
	return titles
}
