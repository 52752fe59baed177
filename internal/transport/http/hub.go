package http

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"quiz-session-engine/internal/domain"
	"quiz-session-engine/internal/logger"
)

const sendBuffer = 32

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type client struct {
	id        string
	name      string
	moderator bool
	send      chan outboundMessage
	done      chan struct{}
}

func newClient(id, name string, moderator bool) *client {
	return &client{
		id:        id,
		name:      name,
		moderator: moderator,
		send:      make(chan outboundMessage, sendBuffer),
		done:      make(chan struct{}),
	}
}

// Hub tracks the websocket clients of every session. It delivers engine
// events to them and supplies the roster when a session starts.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string][]*client
	log   zerolog.Logger
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string][]*client),
		log:   logger.New("hub"),
	}
}

func (h *Hub) register(sessionID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rooms[sessionID] = append(h.rooms[sessionID], c)
}

func (h *Hub) unregister(sessionID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[sessionID]
	for i, x := range room {
		if x == c {
			room = append(room[:i:i], room[i+1:]...)
			break
		}
	}
	if len(room) == 0 {
		delete(h.rooms, sessionID)
		return
	}
	h.rooms[sessionID] = room
}

// deliver never blocks: a client that cannot keep up loses the message.
func (h *Hub) deliver(c *client, msg outboundMessage) {
	select {
	case <-c.done:
	case c.send <- msg:
	default:
		h.log.Warn().Str("participant", c.id).Str("type", msg.Type).Msg("client too slow, message dropped")
	}
}

func (h *Hub) broadcast(sessionID string, msg outboundMessage) {
	h.mu.RLock()
	room := append([]*client(nil), h.rooms[sessionID]...)
	h.mu.RUnlock()
	for _, c := range room {
		h.deliver(c, msg)
	}
}

func (h *Hub) sendTo(sessionID, participantID string, msg outboundMessage) {
	h.mu.RLock()
	var targets []*client
	for _, c := range h.rooms[sessionID] {
		if c.id == participantID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range targets {
		h.deliver(c, msg)
	}
}

// Roster lists the connected non-moderator clients of a session in join
// order, one entry per participant id.
func (h *Hub) Roster(_ context.Context, sessionID string) ([]domain.Member, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := make(map[string]bool)
	var members []domain.Member
	for _, c := range h.rooms[sessionID] {
		if c.moderator || seen[c.id] {
			continue
		}
		seen[c.id] = true
		members = append(members, domain.Member{ID: c.id, DisplayName: c.name})
	}
	return members, nil
}

func (h *Hub) RoundOpened(_ context.Context, e domain.RoundOpened) {
	h.broadcast(e.SessionID, outboundMessage{Type: "roundOpened", Payload: e})
}

type acceptedPayload struct {
	SessionID     string `json:"sessionId"`
	ParticipantID string `json:"participantId"`
}

// AnswerAccepted only reaches the participant who answered.
func (h *Hub) AnswerAccepted(_ context.Context, sessionID, participantID string) {
	h.sendTo(sessionID, participantID, outboundMessage{
		Type:    "answerAccepted",
		Payload: acceptedPayload{SessionID: sessionID, ParticipantID: participantID},
	})
}

func (h *Hub) RoundClosed(_ context.Context, e domain.RoundClosed) {
	h.broadcast(e.SessionID, outboundMessage{Type: "roundClosed", Payload: e})
}

func (h *Hub) AnswerRevealed(_ context.Context, e domain.RoundClosed) {
	h.broadcast(e.SessionID, outboundMessage{Type: "reveal", Payload: e})
}

func (h *Hub) SessionEnded(_ context.Context, standings domain.Standings) {
	h.broadcast(standings.SessionID, outboundMessage{Type: "sessionEnded", Payload: standings})
}
