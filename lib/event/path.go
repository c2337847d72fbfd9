// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package event

import "strings"

// SplitPath splits a dotted key path into segments. A backslash
// escapes a literal dot or backslash within a segment, so
// "content.m\.relates_to.rel_type" addresses the "m.relates_to" key.
// Any other backslash is kept as-is.
func SplitPath(path string) []string {
	if !strings.ContainsRune(path, '\\') {
		return strings.Split(path, ".")
	}

	var segments []string
	var current strings.Builder
	for i := 0; i < len(path); i++ {
		c := path[i]
		switch {
		case c == '\\' && i+1 < len(path) && (path[i+1] == '.' || path[i+1] == '\\'):
			current.WriteByte(path[i+1])
			i++
		case c == '.':
			segments = append(segments, current.String())
			current.Reset()
		default:
			current.WriteByte(c)
		}
	}
	return append(segments, current.String())
}

// Resolve maps a dotted key path to a value on the event.
//
//	"type"               the event type
//	"event_id"           the event ID, when set
//	"room_id"            the room ID, when set
//	"sender"             the sender, when set
//	"state_key"          the state key, when the event is a state event
//	"content"            the whole content map
//	"content.a.b"        content["a"]["b"]
//
// The second result is false when any segment is missing, when the
// walk reaches a non-map before the path ends, or when the path names
// an unset top-level attribute.
func (e *Event) Resolve(path string) (Literal, bool) {
	// The event type is by far the most common key; skip the split.
	if path == "type" {
		if e.Type == "" {
			return Literal{}, false
		}
		return String(string(e.Type)), true
	}

	segments := SplitPath(path)
	head, rest := segments[0], segments[1:]

	if head == "content" {
		return Walk(e.ContentLiteral(), rest)
	}
	if len(rest) != 0 {
		return Literal{}, false
	}

	switch head {
	case "event_id":
		if e.EventID.IsZero() {
			return Literal{}, false
		}
		return String(e.EventID.String()), true
	case "room_id":
		if e.RoomID.IsZero() {
			return Literal{}, false
		}
		return String(e.RoomID.String()), true
	case "sender":
		if e.Sender.IsZero() {
			return Literal{}, false
		}
		return String(e.Sender.String()), true
	case "state_key":
		if e.StateKey == nil {
			return Literal{}, false
		}
		return String(*e.StateKey), true
	default:
		return Literal{}, false
	}
}

// Walk descends through nested maps following segments. An empty
// segment list returns root itself.
func Walk(root Literal, segments []string) (Literal, bool) {
	current := root
	for _, segment := range segments {
		next, ok := current.Field(segment)
		if !ok {
			return Literal{}, false
		}
		current = next
	}
	return current, true
}
