package app

import (
	"sort"

	"quiz-session-engine/internal/domain"
)

// SortEntries orders entries by score, highest first. Equal scores keep
// their input order.
func SortEntries(entries []domain.ScoreEntry) []domain.ScoreEntry {
	sorted := make([]domain.ScoreEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})
	return sorted
}

// Rank assigns competition ranks to already sorted entries: equal scores
// share a rank and the next distinct score takes its 1-based position, so
// 10,10,8,7 ranks as 1,1,3,4.
func Rank(sorted []domain.ScoreEntry) []domain.RankedEntry {
	ranked := make([]domain.RankedEntry, len(sorted))
	for i, entry := range sorted {
		rank := i + 1
		if i > 0 && entry.Score == sorted[i-1].Score {
			rank = ranked[i-1].Rank
		}
		ranked[i] = domain.RankedEntry{
			Rank:          rank,
			ParticipantID: entry.ParticipantID,
			Score:         entry.Score,
		}
	}
	return ranked
}
