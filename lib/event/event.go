// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bureau-foundation/roomkeys/lib/ref"
)

// Event is a decoded Matrix event. Events are read-only once
// constructed: evaluators never modify them, and Content is only
// reachable through copying accessors on Literal.
type Event struct {
	Type           ref.EventType      `json:"type"`
	EventID        ref.EventID        `json:"event_id,omitzero"`
	Sender         ref.UserID         `json:"sender,omitzero"`
	StateKey       *string            `json:"state_key,omitempty"`
	RoomID         ref.RoomID         `json:"room_id,omitzero"`
	OriginServerTS int64              `json:"origin_server_ts"`
	Content        map[string]Literal `json:"content"`
}

// wireEvent mirrors Event with content left undecoded, so that nulls
// in content are dropped instead of failing the whole event.
type wireEvent struct {
	Type           ref.EventType   `json:"type"`
	EventID        ref.EventID     `json:"event_id"`
	Sender         ref.UserID      `json:"sender"`
	StateKey       *string         `json:"state_key"`
	RoomID         ref.RoomID      `json:"room_id"`
	OriginServerTS int64           `json:"origin_server_ts"`
	Content        json.RawMessage `json:"content"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Event) UnmarshalJSON(data []byte) error {
	var wire wireEvent
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	content, err := decodeContent(wire.Content)
	if err != nil {
		return fmt.Errorf("content: %w", err)
	}

	*e = Event{
		Type:           wire.Type,
		EventID:        wire.EventID,
		Sender:         wire.Sender,
		StateKey:       wire.StateKey,
		RoomID:         wire.RoomID,
		OriginServerTS: wire.OriginServerTS,
		Content:        content,
	}
	return nil
}

func decodeContent(raw json.RawMessage) (map[string]Literal, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return map[string]Literal{}, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	object, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("must be a JSON object, got %T: %w", value, ErrUnsupportedLiteralType)
	}
	literal, err := FromValue(object)
	if err != nil {
		return nil, err
	}
	return literal.object, nil
}

// Decode parses a wire-format event. The event type is required;
// every other field is optional.
func Decode(data []byte) (*Event, error) {
	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, fmt.Errorf("decoding event: %w", err)
	}
	if evt.Type == "" {
		return nil, errors.New("decoding event: missing type")
	}
	return &evt, nil
}

// ContentLiteral returns the whole content as a map Literal.
func (e *Event) ContentLiteral() Literal {
	return Literal{kind: KindMap, object: e.Content}
}

// IsState reports whether the event carries a state key (possibly
// empty) and is therefore a state event.
func (e *Event) IsState() bool {
	return e.StateKey != nil
}
