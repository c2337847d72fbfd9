// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pushrule

import (
	"encoding/json"
	"fmt"
	"slices"
)

// wireCondition is the union of every condition's fields. Only the
// fields relevant to Kind are read.
type wireCondition struct {
	Kind    string  `json:"kind"`
	Key     *string `json:"key,omitempty"`
	Pattern *string `json:"pattern,omitempty"`
	Is      *string `json:"is,omitempty"`
}

// DecodeCondition decodes one condition object. An unrecognized kind
// decodes to [Unknown] without error so that a ruleset written for a
// newer server still loads; the rule holding it never fires. A
// recognized kind with missing or malformed fields is an error
// wrapping [ErrInvalidCondition].
func DecodeCondition(data []byte) (Condition, error) {
	var wire wireCondition
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decoding condition: %w", err)
	}

	switch wire.Kind {
	case "":
		return nil, fmt.Errorf("condition has no kind: %w", ErrInvalidCondition)
	case KindEventMatch:
		if wire.Key == nil || wire.Pattern == nil {
			return nil, fmt.Errorf("event_match requires key and pattern: %w", ErrInvalidCondition)
		}
		return NewEventMatch(*wire.Key, *wire.Pattern)
	case KindRoomMemberCount:
		if wire.Is == nil {
			return nil, fmt.Errorf("room_member_count requires is: %w", ErrInvalidCondition)
		}
		if _, _, err := ParseMemberCount(*wire.Is); err != nil {
			return nil, err
		}
		return RoomMemberCount{Is: *wire.Is}, nil
	case KindSenderNotificationPermission:
		if wire.Key == nil || *wire.Key == "" {
			return nil, fmt.Errorf("sender_notification_permission requires key: %w", ErrInvalidCondition)
		}
		return SenderNotificationPermission{Key: *wire.Key}, nil
	default:
		return Unknown{ConditionKind: wire.Kind, Raw: slices.Clone(data)}, nil
	}
}

// MarshalJSON includes the kind discriminator.
func (m EventMatch) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireCondition{Kind: KindEventMatch, Key: &m.Key, Pattern: &m.Pattern})
}

// MarshalJSON includes the kind discriminator.
func (c RoomMemberCount) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireCondition{Kind: KindRoomMemberCount, Is: &c.Is})
}

// MarshalJSON includes the kind discriminator.
func (c SenderNotificationPermission) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireCondition{Kind: KindSenderNotificationPermission, Key: &c.Key})
}

// MarshalJSON returns the condition as it was decoded.
func (u Unknown) MarshalJSON() ([]byte, error) {
	if len(u.Raw) == 0 {
		return json.Marshal(wireCondition{Kind: u.ConditionKind})
	}
	return u.Raw, nil
}
