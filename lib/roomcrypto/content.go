// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package roomcrypto

import (
	"github.com/bureau-foundation/roomkeys/lib/ref"
	"github.com/bureau-foundation/roomkeys/lib/schema"
)

// RoomKey is the content of the m.room_key to-device event that hands
// a device an outbound session's key.
type RoomKey struct {
	Algorithm  string     `json:"algorithm"`
	RoomID     ref.RoomID `json:"room_id"`
	SessionID  string     `json:"session_id"`
	SessionKey string     `json:"session_key"`
}

// EncryptedContent is the content of an m.room.encrypted event.
type EncryptedContent struct {
	Algorithm  string `json:"algorithm"`
	Ciphertext string `json:"ciphertext"`
	SessionID  string `json:"session_id"`

	// Deprecated in newer protocol versions; sent when configured for
	// older clients.
	SenderKey string       `json:"sender_key,omitempty"`
	DeviceID  ref.DeviceID `json:"device_id,omitzero"`
}

// payload is the cleartext that gets encrypted: the event type and
// content, bound to the room so a ciphertext cannot be replayed into
// another room.
type payload struct {
	Type    ref.EventType `json:"type"`
	Content any           `json:"content"`
	RoomID  ref.RoomID    `json:"room_id"`
}

func newRoomKey(roomID ref.RoomID, sessionID, sessionKey string) RoomKey {
	return RoomKey{
		Algorithm:  schema.AlgorithmMegolm,
		RoomID:     roomID,
		SessionID:  sessionID,
		SessionKey: sessionKey,
	}
}
