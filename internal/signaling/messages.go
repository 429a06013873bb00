package signaling

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/meetlink/signal-relay/internal/room"
)

// Event names exchanged with clients. Inbound and outbound share one
// namespace; stranger-message and call-accepted appear in both directions.
const (
	// Inbound.
	EventJoinRoom          = "join-room"
	EventFindStranger      = "find-stranger"
	EventSkipStranger      = "skip-stranger"
	EventStrangerMessage   = "stranger-message"
	EventLeaveStranger     = "leave-stranger"
	EventCallUser          = "call-user"
	EventCallAccepted      = "call-accepted"
	EventNegotiationNeeded = "negotiation-needed"
	EventNegotiationDone   = "negotiation-done"

	// Outbound only.
	EventConnected            = "connected"
	EventRoomUsers            = "room-users"
	EventUserJoined           = "user-joined"
	EventUserLeft             = "user-left"
	EventStrangerConnected    = "stranger-connected"
	EventStrangerDisconnected = "stranger-disconnected"
	EventIncomingCall         = "incoming-call"
	EventNegotiationFinal     = "negotiation-final"
)

// Envelope is the wire frame for every message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ParseEnvelope decodes an inbound frame. Unknown envelope fields and
// trailing data are rejected so a malformed client fails loudly in tests
// instead of being half-understood.
func ParseEnvelope(data []byte) (Envelope, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var env Envelope
	if err := dec.Decode(&env); err != nil {
		return Envelope{}, err
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("missing event name")
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return Envelope{}, fmt.Errorf("unexpected trailing data")
	}
	return env, nil
}

func decodeData(raw json.RawMessage, v interface{ validate() error }) error {
	if len(raw) == 0 {
		return fmt.Errorf("missing data")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	return v.validate()
}

func rawPresent(raw json.RawMessage) bool {
	return len(raw) > 0 && !bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// joinRoomData carries room membership announcements. An empty email is
// allowed; it is an opaque display token.
type joinRoomData struct {
	Email string `json:"email"`
	Room  string `json:"room"`
}

func (d *joinRoomData) validate() error {
	if d.Room == "" {
		return fmt.Errorf("join-room: missing room")
	}
	return nil
}

type strangerIDData struct {
	StrangerID string `json:"strangerId"`
}

func (d *strangerIDData) validate() error {
	if d.StrangerID == "" {
		return fmt.Errorf("missing strangerId")
	}
	return nil
}

type strangerMessageData struct {
	To      string          `json:"to"`
	Message json.RawMessage `json:"message"`
}

func (d *strangerMessageData) validate() error {
	if d.To == "" {
		return fmt.Errorf("stranger-message: missing to")
	}
	if !rawPresent(d.Message) {
		return fmt.Errorf("stranger-message: missing message")
	}
	return nil
}

// offerData is the shape of call-user and negotiation-needed. The offer
// payload is opaque; the relay never inspects SDP.
type offerData struct {
	To    string          `json:"to"`
	Offer json.RawMessage `json:"offer"`
}

func (d *offerData) validate() error {
	if d.To == "" {
		return fmt.Errorf("missing to")
	}
	if !rawPresent(d.Offer) {
		return fmt.Errorf("missing offer")
	}
	return nil
}

// answerData is the shape of call-accepted and negotiation-done.
type answerData struct {
	To     string          `json:"to"`
	Answer json.RawMessage `json:"answer"`
}

func (d *answerData) validate() error {
	if d.To == "" {
		return fmt.Errorf("missing to")
	}
	if !rawPresent(d.Answer) {
		return fmt.Errorf("missing answer")
	}
	return nil
}

// Outbound payloads.

type connectedData struct {
	ID string `json:"id"`
}

type userJoinedData struct {
	Email string `json:"email"`
	ID    string `json:"id"`
}

type userLeftData struct {
	ID string `json:"id"`
}

type strangerConnectedData struct {
	StrangerID string `json:"strangerId"`
}

type strangerMessageFromData struct {
	From    string          `json:"from"`
	Message json.RawMessage `json:"message"`
}

type offerFromData struct {
	From  string          `json:"from"`
	Offer json.RawMessage `json:"offer"`
}

type answerFromData struct {
	From   string          `json:"from"`
	Answer json.RawMessage `json:"answer"`
}

// roomUsersData is the member list sent to a joining client.
type roomUsersData []room.Member

// MarshalEnvelope frames an outbound event. Marshal errors cannot happen for
// the payload types above; they would indicate a programming error, so the
// error is returned rather than swallowed to keep tests honest.
func MarshalEnvelope(event string, data any) ([]byte, error) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}
