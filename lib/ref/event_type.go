// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

// EventType identifies a Matrix state or timeline event type
// ("m.room.message", "m.room.power_levels"). Constants live in
// lib/schema.
//
// EventType is a named string, not a struct wrapper: event types need
// no parsing, and the empty string is meaningful to callers (permission
// checks reject it).
type EventType string

// String returns the event type string.
func (t EventType) String() string { return string(t) }
