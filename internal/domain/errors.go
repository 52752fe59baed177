package domain

import "errors"

var (
	// ErrAlreadyActive is returned when starting over a session that is still in play.
	ErrAlreadyActive = errors.New("a quiz is already in progress")
	// ErrRoundsExhausted is returned by advance once every configured round has been played.
	ErrRoundsExhausted = errors.New("all rounds have been played")
	// ErrQuestionUnavailable is fatal to the session: no question could be found for the round.
	ErrQuestionUnavailable = errors.New("no question available for this round, the quiz has ended")
	// ErrInsufficientDistractors is fatal to the session: not enough titles to build options.
	ErrInsufficientDistractors = errors.New("not enough titles to build answer options, the quiz has ended")
	// ErrRoundNotOpen is returned for submissions outside the answer window.
	ErrRoundNotOpen = errors.New("the answer window is closed")
	// ErrAlreadyAnswered is returned for a second submission in the same round.
	ErrAlreadyAnswered = errors.New("already answered this round")
	// ErrNoActiveQuestion is returned by reveal when no question is in flight.
	ErrNoActiveQuestion = errors.New("no question is in flight")
	// ErrNoActiveSession is returned when no session exists for the id.
	ErrNoActiveSession = errors.New("no active quiz, start one first")
	// ErrRoundInProgress is returned by advance and reveal while the answer window is open.
	ErrRoundInProgress = errors.New("the answer window is still open")
	// ErrSessionEnded is returned by advance once the session has ended.
	ErrSessionEnded = errors.New("the quiz has ended, request the final results")
	// ErrSessionNotEnded is returned by finalize before the last round has closed.
	ErrSessionNotEnded = errors.New("the quiz has not ended yet")
	// ErrQuestionNotFound is returned by question banks for unknown ids or an empty catalog.
	ErrQuestionNotFound = errors.New("question not found")
)

// IsFatal reports whether err ends the session it was returned for.
func IsFatal(err error) bool {
	return errors.Is(err, ErrQuestionUnavailable) || errors.Is(err, ErrInsufficientDistractors)
}
