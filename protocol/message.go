package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Message is the wire unit exchanged with the CAD side, one JSON object per
// frame. RequestID is the correlation id: the empty string marks a fresh
// request, a non-empty value marks an answer and carries the ID of the
// message it answers. All five fields are present on every frame; in
// particular RequestID is serialized as "" rather than omitted.
type Message struct {
	ID        string          `json:"id"`
	RequestID string          `json:"requestID"`
	Method    string          `json:"method"`
	Status    string          `json:"status"`
	Data      json.RawMessage `json:"data"`
}

// NewID generates a message identifier. The CAD plugin only requires
// uniqueness within a connection lifetime; a UUID gives that without the
// collision window of the old timestamp+random scheme.
func NewID() string {
	return uuid.New().String()
}

// NewRequest builds an outbound request in the waiting state.
func NewRequest(method string, payload any) (*Message, error) {
	data, err := marshalData(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", method, err)
	}
	return &Message{
		ID:        NewID(),
		RequestID: "",
		Method:    method,
		Status:    StatusWaiting,
		Data:      data,
	}, nil
}

// NewReply builds the answer to a received request. The reply keeps the
// request's method and points RequestID at the request's ID.
func NewReply(req *Message, status string, payload any) (*Message, error) {
	data, err := marshalData(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s reply: %w", req.Method, err)
	}
	return &Message{
		ID:        NewID(),
		RequestID: req.ID,
		Method:    req.Method,
		Status:    status,
		Data:      data,
	}, nil
}

// IsAnswer reports whether the message answers an earlier request.
func (m *Message) IsAnswer() bool {
	return m.RequestID != ""
}

// Encode marshals the message to a wire frame.
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodePayload unmarshals the data field into target.
func (m *Message) DecodePayload(target any) error {
	if len(m.Data) == 0 {
		return nil
	}
	return json.Unmarshal(m.Data, target)
}

// Decode parses a wire frame into a Message.
func Decode(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return &m, nil
}

func marshalData(payload any) (json.RawMessage, error) {
	if payload == nil {
		return json.RawMessage(`{}`), nil
	}
	return json.Marshal(payload)
}
