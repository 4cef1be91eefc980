package cloud

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gatehouse-systems/gatehouse/internal/gatehouse/types"
)

// Channel messages travel as a tagged envelope and are decoded exactly once,
// here at the transport boundary. Everything past this point works with the
// typed variants; nothing downstream inspects raw payloads.

const (
	msgAuthorizationRequest  = "authorization_request"
	msgAuthorizationResponse = "authorization_response"
	msgCheckoutCompleted     = "checkout_completed"
)

// Message is a decoded channel message. The concrete types below are the
// complete set this node understands.
type Message interface {
	messageType() string
}

// AuthorizationRequest asks the remote authority whether an identifier may
// enter or exit. CorrelationKey links the eventual response back to the
// waiting scan.
type AuthorizationRequest struct {
	CorrelationKey string          `json:"correlation_key"`
	Kind           types.Direction `json:"kind"`
	Identifier     string          `json:"identifier"`
	NodeID         string          `json:"node_id,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
}

func (AuthorizationRequest) messageType() string { return msgAuthorizationRequest }

// AuthorizationResponse is the remote authority's verdict. The channel is
// at-least-once: the same response may arrive more than once and responses
// may arrive for requests this node never issued.
type AuthorizationResponse struct {
	CorrelationKey   string `json:"correlation_key"`
	Identifier       string `json:"identifier"`
	Granted          bool   `json:"granted"`
	AssignedResource string `json:"assigned_resource,omitempty"`
	Message          string `json:"message,omitempty"`
}

func (AuthorizationResponse) messageType() string { return msgAuthorizationResponse }

// CheckoutCompleted is emitted by the shopping subsystem when a session's
// checkout finishes.
type CheckoutCompleted struct {
	SessionKey string    `json:"session_key"`
	TotalCents int64     `json:"total_cents"`
	Items      []string  `json:"items,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func (CheckoutCompleted) messageType() string { return msgCheckoutCompleted }

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Encode wraps a message in its tagged envelope.
func Encode(msg Message) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", msg.messageType(), err)
	}
	return json.Marshal(envelope{Type: msg.messageType(), Payload: payload})
}

// Decode parses an envelope into its typed message. Unknown tags are an
// error; callers drop them with a log line rather than failing the stream.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	switch env.Type {
	case msgAuthorizationRequest:
		var m AuthorizationRequest
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return m, nil
	case msgAuthorizationResponse:
		var m AuthorizationResponse
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return m, nil
	case msgCheckoutCompleted:
		var m CheckoutCompleted
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown message type %q", env.Type)
	}
}
