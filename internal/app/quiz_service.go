package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"quiz-session-engine/internal/domain"
	"quiz-session-engine/internal/logger"
)

// SessionRepository owns the id -> Session mapping (in-memory, Redis, etc).
type SessionRepository interface {
	// Create stores s unless a session with the same id exists and replace
	// rejects it.
	Create(s *Session, replace func(existing *Session) error) error
	Get(id string) (*Session, bool)
	Delete(id string)
	// Touch marks a session as still in use.
	Touch(id string)
}

// QuestionSource resolves rounds to questions.
type QuestionSource interface {
	Lookup(ctx context.Context, round int) (domain.Question, error)
	LookupRandom(ctx context.Context, exclude string) (domain.Question, error)
}

// RosterProvider supplies the participants of a session when it starts.
type RosterProvider interface {
	Roster(ctx context.Context, sessionID string) ([]domain.Member, error)
}

// AuditSink appends standings snapshots to durable storage.
type AuditSink interface {
	Append(ctx context.Context, standings domain.Standings) error
}

// Config wires a QuizService. Notifier and Audit may be nil.
type Config struct {
	Sessions     SessionRepository
	Questions    QuestionSource
	Options      *OptionGenerator
	Roster       RosterProvider
	Notifier     Notifier
	Audit        AuditSink
	Clock        Clock
	RoundsLimit  int
	AnswerWindow time.Duration
	// Overrides is keyed by 0-based round.
	Overrides map[int]domain.RoundOverride
}

// QuizService is the quiz session engine: it drives sessions through
// Idle -> Active -> Closed -> ... -> Ended and takes participant answers.
type QuizService struct {
	sessions    SessionRepository
	questions   QuestionSource
	options     *OptionGenerator
	roster      RosterProvider
	notifier    Notifier
	audit       AuditSink
	clock       Clock
	roundsLimit int
	window      time.Duration
	overrides   map[int]domain.RoundOverride
	log         zerolog.Logger

	// beforeSubmitLock runs between session lookup and lock acquisition in
	// Submit. Tests use it to close a round under a submission in flight.
	beforeSubmitLock func()
}

func NewQuizService(c Config) *QuizService {
	s := &QuizService{
		sessions:    c.Sessions,
		questions:   c.Questions,
		options:     c.Options,
		roster:      c.Roster,
		notifier:    c.Notifier,
		audit:       c.Audit,
		clock:       c.Clock,
		roundsLimit: c.RoundsLimit,
		window:      c.AnswerWindow,
		overrides:   c.Overrides,
		log:         logger.New("engine"),
	}
	if s.notifier == nil {
		s.notifier = Notifiers{}
	}
	if s.clock == nil {
		s.clock = SystemClock{}
	}
	return s
}

// Start creates an Idle session seeded with the roster's human members.
func (s *QuizService) Start(ctx context.Context, sessionID string) (domain.SessionSnapshot, error) {
	members, err := s.roster.Roster(ctx, sessionID)
	if err != nil {
		return domain.SessionSnapshot{}, fmt.Errorf("load roster: %w", err)
	}

	session := NewSession(sessionID, s.roundsLimit, members)
	err = s.sessions.Create(session, func(existing *Session) error {
		if existing.Retire() {
			return nil
		}
		return domain.ErrAlreadyActive
	})
	if err != nil {
		return domain.SessionSnapshot{}, err
	}

	session.mu.Lock()
	snap := session.snapshotLocked()
	session.mu.Unlock()

	s.log.Info().Str("session", sessionID).Int("participants", snap.Participants).Msg("session started")
	return snap, nil
}

// Advance opens the next round. Lookup or option failures end the session.
func (s *QuizService) Advance(ctx context.Context, sessionID string) (domain.RoundOpened, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.RoundOpened{}, domain.ErrNoActiveSession
	}
	session.cmdMu.Lock()
	defer session.cmdMu.Unlock()

	session.mu.Lock()
	round, err := s.checkAdvanceLocked(session)
	session.mu.Unlock()
	if err != nil {
		return domain.RoundOpened{}, err
	}

	question, err := s.prepareRound(ctx, round)
	if err != nil {
		if ctx.Err() != nil {
			return domain.RoundOpened{}, ctx.Err()
		}
		s.endSession(ctx, session, err)
		return domain.RoundOpened{}, err
	}

	session.mu.Lock()
	if _, err := s.checkAdvanceLocked(session); err != nil || session.round != round {
		session.mu.Unlock()
		if err == nil {
			err = domain.ErrRoundInProgress
		}
		return domain.RoundOpened{}, err
	}
	session.question = &question
	session.answered = make(map[string]struct{})
	session.phase = domain.PhaseActive
	session.round++
	opened := domain.RoundOpened{
		SessionID: sessionID,
		Round:     session.round,
		Prompt:    question.Prompt,
		Media:     question.Media,
		Options:   append([]string(nil), question.Options...),
		Window:    s.window,
	}
	session.mu.Unlock()

	s.sessions.Touch(sessionID)
	s.log.Info().Str("session", sessionID).Int("round", opened.Round).Msg("round opened")
	s.notifier.RoundOpened(ctx, opened)
	s.armTimer(session, opened.Round)
	return opened, nil
}

func (s *QuizService) checkAdvanceLocked(session *Session) (int, error) {
	if session.discarded {
		return 0, domain.ErrNoActiveSession
	}
	if session.round >= session.roundsLimit {
		return 0, domain.ErrRoundsExhausted
	}
	switch session.phase {
	case domain.PhaseIdle, domain.PhaseClosed:
		return session.round, nil
	case domain.PhaseActive:
		return 0, domain.ErrRoundInProgress
	default:
		return 0, domain.ErrSessionEnded
	}
}

// prepareRound resolves the question and options for a 0-based round. Every
// error it returns wraps one of the fatal sentinels.
func (s *QuizService) prepareRound(ctx context.Context, round int) (domain.RoundQuestion, error) {
	q, err := s.questions.Lookup(ctx, round)
	if err != nil {
		return domain.RoundQuestion{}, fmt.Errorf("%w: %w", domain.ErrQuestionUnavailable, err)
	}

	override := s.overrides[round]
	rq := domain.RoundQuestion{
		QuestionID:    q.ID,
		Prompt:        domain.DefaultPrompt,
		CorrectAnswer: q.Title,
		CorrectArtist: q.Artist,
		Media:         q.Media,
	}
	if override.Answer != "" {
		rq.CorrectAnswer = override.Answer
	}
	if override.Prompt != "" {
		rq.Prompt = override.Prompt
	}

	rq.Options, err = s.options.Generate(ctx, rq.CorrectAnswer, override.Choices)
	if err != nil {
		if domain.IsFatal(err) {
			return domain.RoundQuestion{}, err
		}
		return domain.RoundQuestion{}, fmt.Errorf("%w: %w", domain.ErrInsufficientDistractors, err)
	}
	return rq, nil
}

// endSession forces a session to Ended after a fatal error.
func (s *QuizService) endSession(ctx context.Context, session *Session, cause error) {
	session.mu.Lock()
	if session.discarded || session.phase == domain.PhaseEnded {
		session.mu.Unlock()
		return
	}
	session.stopTimerLocked()
	session.phase = domain.PhaseEnded
	session.question = nil
	standings := session.standingsLocked(s.clock.Now(), false)
	session.mu.Unlock()

	s.log.Error().Err(cause).Str("session", session.id).Msg("session ended by fatal error")
	s.notifier.SessionEnded(ctx, standings)
}

// Reveal re-announces the correct answer of a closed round and returns the
// session to Idle for the next advance.
func (s *QuizService) Reveal(ctx context.Context, sessionID string) (domain.RoundClosed, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.RoundClosed{}, domain.ErrNoActiveSession
	}
	session.cmdMu.Lock()
	defer session.cmdMu.Unlock()

	session.mu.Lock()
	if session.discarded {
		session.mu.Unlock()
		return domain.RoundClosed{}, domain.ErrNoActiveSession
	}
	if session.phase == domain.PhaseActive {
		session.mu.Unlock()
		return domain.RoundClosed{}, domain.ErrRoundInProgress
	}
	if session.phase != domain.PhaseClosed || session.question == nil {
		session.mu.Unlock()
		return domain.RoundClosed{}, domain.ErrNoActiveQuestion
	}
	revealed := domain.RoundClosed{
		SessionID:     sessionID,
		Round:         session.round,
		CorrectAnswer: session.question.CorrectAnswer,
		CorrectArtist: session.question.CorrectArtist,
		Standings:     session.standingsLocked(s.clock.Now(), false),
	}
	session.question = nil
	session.phase = domain.PhaseIdle
	session.mu.Unlock()

	s.notifier.AnswerRevealed(ctx, revealed)
	return revealed, nil
}

// Finalize ranks an ended session, records the final audit entry and removes
// the session.
func (s *QuizService) Finalize(ctx context.Context, sessionID string) (domain.Standings, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.Standings{}, domain.ErrNoActiveSession
	}
	session.cmdMu.Lock()
	defer session.cmdMu.Unlock()

	session.mu.Lock()
	if session.discarded {
		session.mu.Unlock()
		return domain.Standings{}, domain.ErrNoActiveSession
	}
	if session.phase != domain.PhaseEnded {
		session.mu.Unlock()
		return domain.Standings{}, domain.ErrSessionNotEnded
	}
	final := session.standingsLocked(s.clock.Now(), true)
	session.discarded = true
	session.mu.Unlock()

	s.sessions.Delete(sessionID)
	s.record(ctx, final)
	s.log.Info().Str("session", sessionID).Int("participants", len(final.Entries)).Msg("session finalized")
	return final, nil
}

// Clear drops a session without producing final results.
func (s *QuizService) Clear(_ context.Context, sessionID string) error {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.ErrNoActiveSession
	}
	session.mu.Lock()
	session.stopTimerLocked()
	session.discarded = true
	session.mu.Unlock()

	s.sessions.Delete(sessionID)
	s.log.Info().Str("session", sessionID).Msg("session cleared")
	return nil
}

// Standings returns the live ranked scores of a session.
func (s *QuizService) Standings(_ context.Context, sessionID string) (domain.Standings, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.Standings{}, domain.ErrNoActiveSession
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.standingsLocked(s.clock.Now(), false), nil
}

// Score is the moderator's standings request: it returns the live ranked
// scores and appends them to the audit log as a progress entry.
func (s *QuizService) Score(ctx context.Context, sessionID string) (domain.Standings, error) {
	standings, err := s.Standings(ctx, sessionID)
	if err != nil {
		return domain.Standings{}, err
	}
	s.record(ctx, standings)
	return standings, nil
}

// Snapshot returns a display-only view of a session.
func (s *QuizService) Snapshot(_ context.Context, sessionID string) (domain.SessionSnapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SessionSnapshot{}, domain.ErrNoActiveSession
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.snapshotLocked(), nil
}

// record writes an audit entry. Failures are logged, never returned.
func (s *QuizService) record(ctx context.Context, standings domain.Standings) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Append(ctx, standings); err != nil {
		s.log.Error().Err(err).
			Str("session", standings.SessionID).
			Int("round", standings.Round).
			Bool("final", standings.Final).
			Msg("audit append failed")
	}
}

// Phase reports the current phase of a session.
func (s *QuizService) Phase(_ context.Context, sessionID string) (domain.Phase, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.PhaseIdle, domain.ErrNoActiveSession
	}
	return session.Phase(), nil
}
