package domain

import "time"

// Phase is a session's position in the round state machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseActive
	PhaseClosed
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseActive:
		return "active"
	case PhaseClosed:
		return "closed"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// MarshalText lets phases show up by name in JSON payloads.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// DefaultPrompt is shown when a round has no prompt override.
const DefaultPrompt = "What is the title of this track?"

// Question is a record from the question bank.
type Question struct {
	ID     string `json:"id" yaml:"id"`
	Title  string `json:"title" yaml:"title"`
	Artist string `json:"artist" yaml:"artist"`
	Media  string `json:"media" yaml:"media"`
}

// RoundOverride pins the content of a single round. Empty fields fall back
// to the question bank.
type RoundOverride struct {
	QuestionID string   `yaml:"question_id"`
	Answer     string   `yaml:"answer"`
	Prompt     string   `yaml:"prompt"`
	Choices    []string `yaml:"choices"`
}

// RoundQuestion is the question held by a session while a round is Active or Closed.
type RoundQuestion struct {
	QuestionID    string
	Prompt        string
	CorrectAnswer string
	CorrectArtist string
	Media         string
	Options       []string
}

// Member is a roster entry supplied when a session starts.
type Member struct {
	ID          string
	DisplayName string
	Bot         bool
}

// ScoreEntry is a participant's score at a point in time.
type ScoreEntry struct {
	ParticipantID string `json:"participantId"`
	Score         int    `json:"score"`
}

// RankedEntry is a ScoreEntry with its competition rank.
type RankedEntry struct {
	Rank          int    `json:"rank"`
	ParticipantID string `json:"participantId"`
	Score         int    `json:"score"`
}

// Standings is a ranked snapshot of a session's scores.
type Standings struct {
	SessionID string        `json:"sessionId"`
	Round     int           `json:"round"`
	Final     bool          `json:"final"`
	Entries   []RankedEntry `json:"entries"`
	TakenAt   time.Time     `json:"takenAt"`
}

// RoundOpened is emitted when a round starts accepting answers.
type RoundOpened struct {
	SessionID string        `json:"sessionId"`
	Round     int           `json:"round"`
	Prompt    string        `json:"prompt"`
	Media     string        `json:"media"`
	Options   []string      `json:"options"`
	Window    time.Duration `json:"window"`
}

// RoundClosed is emitted when the answer window of a round elapses, and
// again when the moderator reveals the answer.
type RoundClosed struct {
	SessionID     string    `json:"sessionId"`
	Round         int       `json:"round"`
	CorrectAnswer string    `json:"correctAnswer"`
	CorrectArtist string    `json:"correctArtist"`
	Standings     Standings `json:"standings"`
}

// SessionSnapshot is a display-only copy of a session. It never carries the
// correct answer of an open round.
type SessionSnapshot struct {
	SessionID    string   `json:"sessionId"`
	Phase        Phase    `json:"phase"`
	Round        int      `json:"round"`
	RoundsLimit  int      `json:"roundsLimit"`
	Prompt       string   `json:"prompt,omitempty"`
	Media        string   `json:"media,omitempty"`
	Options      []string `json:"options,omitempty"`
	Participants int      `json:"participants"`
}
