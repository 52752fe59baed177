package app

import (
	"context"
	"time"

	"quiz-session-engine/internal/domain"
)

// Timer is a pending callback scheduled by a Clock.
type Timer interface {
	Stop() bool
}

// Clock schedules the round timer.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// armTimer schedules the close of round. The handle is stored on the session
// so a cleared session can stop it.
func (s *QuizService) armTimer(session *Session, round int) {
	session.mu.Lock()
	defer session.mu.Unlock()
	if session.discarded || session.phase != domain.PhaseActive || session.round != round {
		return
	}
	session.timer = s.clock.AfterFunc(s.window, func() {
		s.closeRound(session, round)
	})
}

// closeRound is the timer callback. It is a no-op unless round is still the
// open round of a live session.
func (s *QuizService) closeRound(session *Session, round int) {
	session.mu.Lock()
	if session.discarded || session.phase != domain.PhaseActive || session.round != round {
		session.mu.Unlock()
		s.log.Debug().Str("session", session.id).Int("round", round).Msg("stale round timer ignored")
		return
	}
	session.timer = nil
	session.phase = domain.PhaseClosed
	standings := session.standingsLocked(s.clock.Now(), false)
	closed := domain.RoundClosed{
		SessionID:     session.id,
		Round:         round,
		CorrectAnswer: session.question.CorrectAnswer,
		CorrectArtist: session.question.CorrectArtist,
		Standings:     standings,
	}
	ended := session.round >= session.roundsLimit
	if ended {
		session.phase = domain.PhaseEnded
		session.question = nil
	}
	session.mu.Unlock()

	ctx := context.Background()
	s.log.Info().Str("session", session.id).Int("round", round).Bool("ended", ended).Msg("round closed")
	s.notifier.RoundClosed(ctx, closed)
	s.record(ctx, standings)
	if ended {
		s.notifier.SessionEnded(ctx, standings)
	}
}
