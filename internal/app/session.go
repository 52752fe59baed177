package app

import (
	"sync"
	"time"

	"quiz-session-engine/internal/domain"
)

// Session is the state of one running quiz. All fields below mu are guarded
// by it; cmdMu serializes moderator commands so question lookups can run
// without holding mu.
type Session struct {
	id          string
	roundsLimit int

	cmdMu sync.Mutex

	mu        sync.Mutex
	phase     domain.Phase
	round     int
	scores    map[string]int
	order     []string
	question  *domain.RoundQuestion
	answered  map[string]struct{}
	timer     Timer
	discarded bool
}

// NewSession creates an Idle session with every non-bot member seeded at 0.
func NewSession(id string, roundsLimit int, members []domain.Member) *Session {
	s := &Session{
		id:          id,
		roundsLimit: roundsLimit,
		phase:       domain.PhaseIdle,
		scores:      make(map[string]int, len(members)),
		answered:    make(map[string]struct{}),
	}
	for _, m := range members {
		if m.Bot {
			continue
		}
		s.addParticipantLocked(m.ID)
	}
	return s
}

func (s *Session) ID() string {
	return s.id
}

// Phase reports the current phase. Display only: never gate a mutation on it.
func (s *Session) Phase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Retire discards this session so a new start can take its id. It only
// succeeds when the session is Idle with no question in flight and no command
// is running against it; a command that looked the session up earlier then
// finds it discarded.
func (s *Session) Retire() bool {
	if !s.cmdMu.TryLock() {
		return false
	}
	defer s.cmdMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhaseIdle || s.question != nil || s.discarded {
		return false
	}
	s.stopTimerLocked()
	s.discarded = true
	return true
}

func (s *Session) addParticipantLocked(id string) {
	if _, ok := s.scores[id]; ok {
		return
	}
	s.scores[id] = 0
	s.order = append(s.order, id)
}

func (s *Session) standingsLocked(now time.Time, final bool) domain.Standings {
	entries := make([]domain.ScoreEntry, 0, len(s.order))
	for _, id := range s.order {
		entries = append(entries, domain.ScoreEntry{ParticipantID: id, Score: s.scores[id]})
	}
	return domain.Standings{
		SessionID: s.id,
		Round:     s.round,
		Final:     final,
		Entries:   Rank(SortEntries(entries)),
		TakenAt:   now,
	}
}

func (s *Session) snapshotLocked() domain.SessionSnapshot {
	snap := domain.SessionSnapshot{
		SessionID:    s.id,
		Phase:        s.phase,
		Round:        s.round,
		RoundsLimit:  s.roundsLimit,
		Participants: len(s.scores),
	}
	if s.question != nil {
		snap.Prompt = s.question.Prompt
		snap.Media = s.question.Media
		snap.Options = append([]string(nil), s.question.Options...)
	}
	return snap
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
