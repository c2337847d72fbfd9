// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides strongly typed, immutable Matrix identifiers:
// [UserID], [RoomID], [DeviceID], [EventID], and [EventType].
//
// Identifiers arrive as raw strings from decoded events, membership
// snapshots, and power-level maps. They are parsed into these types at
// that boundary so the rest of the module cannot confuse a device ID
// with a user ID, or pass a state key where an event type belongs.
//
// All struct-wrapped identifiers are comparable and usable as map keys.
// The zero value of each is "unset"; use IsZero to check. JSON
// marshaling uses the canonical string form via encoding.TextMarshaler.
package ref
