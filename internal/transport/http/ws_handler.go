package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"quiz-session-engine/internal/domain"
	"quiz-session-engine/internal/logger"
)

// Engine is the part of the quiz engine the websocket handler drives.
type Engine interface {
	Start(ctx context.Context, sessionID string) (domain.SessionSnapshot, error)
	Advance(ctx context.Context, sessionID string) (domain.RoundOpened, error)
	Reveal(ctx context.Context, sessionID string) (domain.RoundClosed, error)
	Submit(ctx context.Context, sessionID, participantID, answer string) error
	Score(ctx context.Context, sessionID string) (domain.Standings, error)
	Finalize(ctx context.Context, sessionID string) (domain.Standings, error)
	Snapshot(ctx context.Context, sessionID string) (domain.SessionSnapshot, error)
}

type WSHandler struct {
	engine   Engine
	hub      *Hub
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewWSHandler(engine Engine, hub *Hub) *WSHandler {
	return &WSHandler{
		engine: engine,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: logger.New("ws"),
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Answer string `json:"answer"`
}

type joinedPayload struct {
	SessionID     string                  `json:"sessionId"`
	ParticipantID string                  `json:"participantId"`
	Name          string                  `json:"name"`
	Moderator     bool                    `json:"moderator"`
	Session       *domain.SessionSnapshot `json:"session,omitempty"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the quiz engine.
// Query: sessionId, userId, name and optionally role=moderator.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sessionID := q.Get("sessionId")
	userID := q.Get("userId")
	displayName := q.Get("name")
	if sessionID == "" || userID == "" || displayName == "" {
		http.Error(w, "missing sessionId, userId, or name", http.StatusBadRequest)
		return
	}
	moderator := q.Get("role") == "moderator"

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	c := newClient(userID, displayName, moderator)
	h.hub.register(sessionID, c)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case msg := <-c.send:
				if err := conn.WriteJSON(msg); err != nil {
					h.log.Debug().Err(err).Str("participant", userID).Msg("ws write error")
					return
				}
			case <-c.done:
				return
			}
		}
	}()

	joined := joinedPayload{SessionID: sessionID, ParticipantID: userID, Name: displayName, Moderator: moderator}
	if snap, err := h.engine.Snapshot(r.Context(), sessionID); err == nil {
		joined.Session = &snap
	}
	h.hub.deliver(c, outboundMessage{Type: "joined", Payload: joined})

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.handle(r.Context(), sessionID, c, inbound)
	}

	h.hub.unregister(sessionID, c)
	close(c.done)
	<-writerDone
}

func (h *WSHandler) handle(ctx context.Context, sessionID string, c *client, in inboundMessage) {
	if in.Type != "answer" && !c.moderator {
		switch in.Type {
		case "start", "advance", "reveal", "standings", "finalize":
			h.fail(c, "only the moderator can "+in.Type)
		default:
			h.fail(c, "unsupported message type")
		}
		return
	}

	switch in.Type {
	case "answer":
		if c.moderator {
			h.fail(c, "moderators cannot answer")
			return
		}
		var payload answerPayload
		if err := json.Unmarshal(in.Payload, &payload); err != nil {
			h.fail(c, "invalid answer payload")
			return
		}
		// The acknowledgement arrives through the hub's AnswerAccepted.
		if err := h.engine.Submit(ctx, sessionID, c.id, payload.Answer); err != nil {
			h.fail(c, err.Error())
		}
	case "start":
		snap, err := h.engine.Start(ctx, sessionID)
		if err != nil {
			h.fail(c, err.Error())
			return
		}
		h.hub.broadcast(sessionID, outboundMessage{Type: "started", Payload: snap})
	case "advance":
		if _, err := h.engine.Advance(ctx, sessionID); err != nil {
			h.fail(c, err.Error())
		}
	case "reveal":
		if _, err := h.engine.Reveal(ctx, sessionID); err != nil {
			h.fail(c, err.Error())
		}
	case "standings":
		standings, err := h.engine.Score(ctx, sessionID)
		if err != nil {
			h.fail(c, err.Error())
			return
		}
		h.hub.deliver(c, outboundMessage{Type: "standings", Payload: standings})
	case "finalize":
		final, err := h.engine.Finalize(ctx, sessionID)
		if err != nil {
			h.fail(c, err.Error())
			return
		}
		h.hub.broadcast(sessionID, outboundMessage{Type: "final", Payload: final})
	default:
		h.fail(c, "unsupported message type")
	}
}

func (h *WSHandler) fail(c *client, message string) {
	h.hub.deliver(c, outboundMessage{Type: "error", Payload: errorPayload{Message: message}})
}
