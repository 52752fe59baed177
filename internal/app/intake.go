package app

import (
	"context"

	"quiz-session-engine/internal/domain"
)

// Submit records a participant's answer for the open round. The caller only
// learns that the answer was accepted, never whether it was correct.
// Participants missing from the roster join with a score of 0.
func (s *QuizService) Submit(ctx context.Context, sessionID, participantID, answer string) error {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.ErrNoActiveSession
	}
	if s.beforeSubmitLock != nil {
		s.beforeSubmitLock()
	}

	session.mu.Lock()
	if session.discarded {
		session.mu.Unlock()
		return domain.ErrNoActiveSession
	}
	if session.phase != domain.PhaseActive {
		session.mu.Unlock()
		return domain.ErrRoundNotOpen
	}
	if _, dup := session.answered[participantID]; dup {
		session.mu.Unlock()
		return domain.ErrAlreadyAnswered
	}
	session.answered[participantID] = struct{}{}
	session.addParticipantLocked(participantID)
	if answer == session.question.CorrectAnswer {
		session.scores[participantID]++
	}
	round := session.round
	session.mu.Unlock()

	s.log.Debug().Str("session", sessionID).Str("participant", participantID).Int("round", round).Msg("answer accepted")
	s.notifier.AnswerAccepted(ctx, sessionID, participantID)
	return nil
}
