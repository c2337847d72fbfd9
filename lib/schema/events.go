// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import "github.com/bureau-foundation/roomkeys/lib/ref"

// Standard Matrix event types referenced by roomkeys.
const (
	// MatrixEventTypeMessage is the timeline event type for chat
	// messages. MaySendMessage checks against this type.
	MatrixEventTypeMessage ref.EventType = "m.room.message"

	// MatrixEventTypeMember carries a user's membership in a room.
	// State key: the member's user ID.
	MatrixEventTypeMember ref.EventType = "m.room.member"

	// MatrixEventTypePowerLevels carries the room's permission
	// thresholds. State key: "".
	MatrixEventTypePowerLevels ref.EventType = "m.room.power_levels"

	// MatrixEventTypeEncryption enables encryption in a room and sets
	// the megolm rotation thresholds. State key: "".
	MatrixEventTypeEncryption ref.EventType = "m.room.encryption"

	// MatrixEventTypeEncrypted wraps a megolm-encrypted timeline event.
	MatrixEventTypeEncrypted ref.EventType = "m.room.encrypted"

	// MatrixEventTypeRoomKey is the to-device event that distributes a
	// megolm session key to a device.
	MatrixEventTypeRoomKey ref.EventType = "m.room_key"
)

// AlgorithmMegolm is the m.room.encryption algorithm identifier for
// megolm group sessions.
const AlgorithmMegolm = "m.megolm.v1.aes-sha2"
