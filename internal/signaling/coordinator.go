package signaling

import (
	"log/slog"

	"github.com/meetlink/signal-relay/internal/match"
	"github.com/meetlink/signal-relay/internal/metrics"
	"github.com/meetlink/signal-relay/internal/registry"
	"github.com/meetlink/signal-relay/internal/room"
)

// Coordinator handles the lifecycle of one connection: it routes inbound
// events into the room directory, the matchmaking queue, or the relay, and
// performs the notification fan-out after each state change. It owns no
// state itself.
type Coordinator struct {
	log     *slog.Logger
	metrics *metrics.Metrics

	registry *registry.Registry
	rooms    *room.Directory
	queue    *match.Queue
	relay    *Relay
	send     Sender
}

func NewCoordinator(
	reg *registry.Registry,
	rooms *room.Directory,
	queue *match.Queue,
	relay *Relay,
	send Sender,
	m *metrics.Metrics,
	log *slog.Logger,
) *Coordinator {
	return &Coordinator{
		log:      log,
		metrics:  m,
		registry: reg,
		rooms:    rooms,
		queue:    queue,
		relay:    relay,
		send:     send,
	}
}

// OnConnect registers the connection and tells the client its id.
func (c *Coordinator) OnConnect(connID string) {
	c.registry.Register(connID)
	c.send.Send(connID, EventConnected, connectedData{ID: connID})
	c.log.Info("connected", "conn", connID)
}

// OnMessage dispatches one inbound event. Malformed payloads and unknown
// events are counted and dropped; nothing a client sends is fatal.
func (c *Coordinator) OnMessage(connID string, env Envelope) {
	switch env.Event {
	case EventJoinRoom:
		var d joinRoomData
		if !c.decode(connID, env, &d) {
			return
		}
		c.handleJoinRoom(connID, d)
	case EventFindStranger:
		c.handleFindStranger(connID)
	case EventSkipStranger:
		var d strangerIDData
		if !c.decode(connID, env, &d) {
			return
		}
		c.handleSkipStranger(connID, d.StrangerID)
	case EventLeaveStranger:
		var d strangerIDData
		if !c.decode(connID, env, &d) {
			return
		}
		c.handleLeaveStranger(connID, d.StrangerID)
	case EventStrangerMessage:
		var d strangerMessageData
		if !c.decode(connID, env, &d) {
			return
		}
		c.relay.Forward(connID, d.To, EventStrangerMessage, strangerMessageFromData{From: connID, Message: d.Message})
	case EventCallUser:
		var d offerData
		if !c.decode(connID, env, &d) {
			return
		}
		c.relay.Forward(connID, d.To, EventIncomingCall, offerFromData{From: connID, Offer: d.Offer})
	case EventCallAccepted:
		var d answerData
		if !c.decode(connID, env, &d) {
			return
		}
		c.relay.Forward(connID, d.To, EventCallAccepted, answerFromData{From: connID, Answer: d.Answer})
	case EventNegotiationNeeded:
		var d offerData
		if !c.decode(connID, env, &d) {
			return
		}
		c.relay.Forward(connID, d.To, EventNegotiationNeeded, offerFromData{From: connID, Offer: d.Offer})
	case EventNegotiationDone:
		var d answerData
		if !c.decode(connID, env, &d) {
			return
		}
		c.relay.Forward(connID, d.To, EventNegotiationFinal, answerFromData{From: connID, Answer: d.Answer})
	default:
		c.metrics.Add(metrics.DropUnknownEvent, 1)
		c.log.Debug("unknown event dropped", "conn", connID, "event", env.Event)
	}
}

// OnDisconnect runs the terminal cleanup sequence: leave the room, clean up
// matchmaking state, then unregister. Unregister comes last so notifications
// sent by the first two steps can still check the other party's liveness.
func (c *Coordinator) OnDisconnect(connID string) {
	if res, ok := c.rooms.Leave(connID); ok {
		c.metrics.Add(metrics.RoomLeave, 1)
		if res.RoomDeleted {
			c.metrics.Add(metrics.RoomDeleted, 1)
			c.log.Info("room deleted", "room", res.RoomID)
		} else {
			c.broadcast(res.RoomID, connID, EventUserLeft, userLeftData{ID: connID})
		}
		c.log.Info("left room", "conn", connID, "room", res.RoomID, "remaining", res.Remaining)
	}

	if partner, unpaired := c.queue.OnDisconnect(connID); unpaired {
		if c.registry.IsLive(partner) {
			c.send.Send(partner, EventStrangerDisconnected, nil)
		}
		c.log.Info("stranger pair dissolved on disconnect", "conn", connID, "partner", partner)
	}

	c.registry.Unregister(connID)
	c.log.Info("disconnected", "conn", connID)
}

func (c *Coordinator) decode(connID string, env Envelope, v interface{ validate() error }) bool {
	if err := decodeData(env.Data, v); err != nil {
		c.metrics.Add(metrics.DropBadMessage, 1)
		c.log.Debug("malformed payload dropped", "conn", connID, "event", env.Event, "err", err)
		return false
	}
	return true
}

func (c *Coordinator) handleJoinRoom(connID string, d joinRoomData) {
	res := c.rooms.Join(connID, d.Room, d.Email)
	c.metrics.Add(metrics.RoomJoin, 1)

	if prior := res.PriorLeave; prior != nil {
		c.metrics.Add(metrics.RoomLeave, 1)
		if prior.RoomDeleted {
			c.metrics.Add(metrics.RoomDeleted, 1)
		} else {
			c.broadcast(prior.RoomID, connID, EventUserLeft, userLeftData{ID: connID})
		}
	}

	if !res.Rejoined {
		for _, m := range res.Existing {
			c.send.Send(m.ID, EventUserJoined, userJoinedData{Email: d.Email, ID: connID})
		}
	}

	users := res.Existing
	if users == nil {
		users = []room.Member{}
	}
	c.send.Send(connID, EventRoomUsers, roomUsersData(users))
	c.send.Send(connID, EventJoinRoom, d)

	c.log.Info("joined room", "conn", connID, "room", d.Room, "members", len(res.Existing)+1)
}

func (c *Coordinator) handleFindStranger(connID string) {
	res := c.queue.FindPartner(connID)

	if prior := res.PriorPartnerID; prior != "" {
		c.send.Send(connID, EventStrangerDisconnected, nil)
		if c.registry.IsLive(prior) {
			c.send.Send(prior, EventStrangerDisconnected, nil)
		}
	}

	if res.Paired {
		c.metrics.Add(metrics.StrangerPaired, 1)
		c.send.Send(connID, EventStrangerConnected, strangerConnectedData{StrangerID: res.PartnerID})
		c.send.Send(res.PartnerID, EventStrangerConnected, strangerConnectedData{StrangerID: connID})
		c.log.Info("strangers paired", "conn", connID, "partner", res.PartnerID)
		return
	}

	c.metrics.Add(metrics.StrangerWaited, 1)
	c.log.Info("waiting for stranger", "conn", connID, "queue_len", c.queue.WaitingCount())
}

func (c *Coordinator) handleSkipStranger(connID, strangerID string) {
	if !c.queue.Skip(connID, strangerID) {
		c.metrics.Add(metrics.DropStaleTarget, 1)
		c.log.Debug("skip rejected", "conn", connID, "claimed_partner", strangerID)
		return
	}
	c.metrics.Add(metrics.StrangerSkip, 1)
	c.notifyUnpaired(connID, strangerID)
	c.log.Info("stranger skipped", "conn", connID, "partner", strangerID)
}

func (c *Coordinator) handleLeaveStranger(connID, strangerID string) {
	if !c.queue.DisconnectPartner(connID, strangerID) {
		c.metrics.Add(metrics.DropStaleTarget, 1)
		c.log.Debug("leave-stranger rejected", "conn", connID, "claimed_partner", strangerID)
		return
	}
	c.metrics.Add(metrics.StrangerLeave, 1)
	c.notifyUnpaired(connID, strangerID)
	c.log.Info("stranger left", "conn", connID, "partner", strangerID)
}

func (c *Coordinator) notifyUnpaired(a, b string) {
	c.send.Send(a, EventStrangerDisconnected, nil)
	if c.registry.IsLive(b) {
		c.send.Send(b, EventStrangerDisconnected, nil)
	}
}

// broadcast fans an event out to every member of roomID except one.
func (c *Coordinator) broadcast(roomID, excludeID, event string, data any) {
	for _, id := range c.rooms.Members(roomID) {
		if id == excludeID {
			continue
		}
		c.send.Send(id, event, data)
	}
}
