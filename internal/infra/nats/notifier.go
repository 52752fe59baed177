package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"quiz-session-engine/internal/domain"
	"quiz-session-engine/internal/logger"
)

const DefaultSubject = "quiz"

// Publisher is satisfied by *nats.Conn.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Notifier mirrors engine events onto NATS subjects of the form
// <prefix>.<session>.<event>.
type Notifier struct {
	pub    Publisher
	prefix string
	log    zerolog.Logger
	now    func() time.Time
}

// Connect dials the NATS server at url.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("quiz-session-engine"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return nc, nil
}

func NewNotifier(pub Publisher, prefix string) *Notifier {
	if prefix == "" {
		prefix = DefaultSubject
	}
	return &Notifier{pub: pub, prefix: prefix, log: logger.New("nats"), now: time.Now}
}

type envelope struct {
	Event     string    `json:"event"`
	SessionID string    `json:"sessionId"`
	At        time.Time `json:"at"`
	Payload   any       `json:"payload,omitempty"`
}

// Subject builds the subject an event for sessionID is published on.
// Subject tokens cannot contain dots or whitespace, so they are replaced.
func (n *Notifier) Subject(sessionID, event string) string {
	return n.prefix + "." + sanitize(sessionID) + "." + event
}

func sanitize(token string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', ' ', '\t', '\n', '*', '>':
			return '_'
		}
		return r
	}, token)
}

func (n *Notifier) publish(sessionID, event string, payload any) {
	data, err := json.Marshal(envelope{Event: event, SessionID: sessionID, At: n.now(), Payload: payload})
	if err != nil {
		n.log.Error().Err(err).Str("event", event).Msg("marshal event")
		return
	}
	if err := n.pub.Publish(n.Subject(sessionID, event), data); err != nil {
		n.log.Warn().Err(err).Str("session", sessionID).Str("event", event).Msg("publish event")
	}
}

func (n *Notifier) RoundOpened(_ context.Context, e domain.RoundOpened) {
	n.publish(e.SessionID, "round_opened", e)
}

func (n *Notifier) AnswerAccepted(_ context.Context, sessionID, participantID string) {
	n.publish(sessionID, "answer_accepted", map[string]string{"participantId": participantID})
}

func (n *Notifier) RoundClosed(_ context.Context, e domain.RoundClosed) {
	n.publish(e.SessionID, "round_closed", e)
}

func (n *Notifier) AnswerRevealed(_ context.Context, e domain.RoundClosed) {
	n.publish(e.SessionID, "answer_revealed", e)
}

func (n *Notifier) SessionEnded(_ context.Context, standings domain.Standings) {
	n.publish(standings.SessionID, "session_ended", standings)
}
