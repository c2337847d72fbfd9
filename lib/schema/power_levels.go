// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"encoding/json"
	"fmt"
	"maps"
	"strconv"

	"github.com/bureau-foundation/roomkeys/lib/event"
	"github.com/bureau-foundation/roomkeys/lib/ref"
)

// Fallback thresholds applied when a power-levels event omits a field.
const (
	DefaultBanLevel    = 50
	DefaultKickLevel   = 50
	DefaultInviteLevel = 50
	DefaultRedactLevel = 50

	// DefaultEventsLevel applies to message events with no entry in
	// the events map.
	DefaultEventsLevel = 0

	// DefaultStateLevel applies to state events with no entry in the
	// events map.
	DefaultStateLevel = 50

	// DefaultUsersLevel applies to users with no entry in the users map.
	DefaultUsersLevel = 0

	// DefaultNotificationLevel applies to notification keys with no
	// entry in the notifications map. Independent of the events and
	// state defaults.
	DefaultNotificationLevel = 50
)

// PowerLevels is a typed representation of the Matrix
// m.room.power_levels state event content.
//
// Pointer-to-int fields distinguish "not set" (nil, omitted from JSON)
// from "explicitly set to 0". Accessors resolve nil to the matching
// Default* constant, never to an implicit zero.
//
// The events map is shared between message and state lookups: an
// entry for a type overrides both MinimumLevelForMessage and
// MinimumLevelForStateEvent, which differ only in their fallback.
//
// Notification levels were historically encoded as strings, so the
// notifications map holds Literals and NotificationLevel accepts both
// integers and numeric strings.
//
// A PowerLevels value is not safe for concurrent mutation. Snapshots
// are replaced wholesale on each new state event; callers that share a
// snapshot across goroutines and also call SetUserLevel should Clone
// first.
type PowerLevels struct {
	Users         map[string]int           `json:"users,omitempty"`
	UsersDefault  *int                     `json:"users_default,omitempty"`
	Events        map[string]int           `json:"events,omitempty"`
	EventsDefault *int                     `json:"events_default,omitempty"`
	StateDefault  *int                     `json:"state_default,omitempty"`
	Invite        *int                     `json:"invite,omitempty"`
	Ban           *int                     `json:"ban,omitempty"`
	Kick          *int                     `json:"kick,omitempty"`
	Redact        *int                     `json:"redact,omitempty"`
	Notifications map[string]event.Literal `json:"notifications,omitempty"`
}

func levelOrDefault(level *int, fallback int) int {
	if level != nil {
		return *level
	}
	return fallback
}

// ParsePowerLevels decodes m.room.power_levels content.
func ParsePowerLevels(content []byte) (*PowerLevels, error) {
	var powerLevels PowerLevels
	if err := json.Unmarshal(content, &powerLevels); err != nil {
		return nil, fmt.Errorf("parsing power levels: %w", err)
	}
	return &powerLevels, nil
}

// PowerLevelsFromEvent decodes the content of an m.room.power_levels
// state event. Returns an error for any other event type or for a
// non-empty state key.
func PowerLevelsFromEvent(evt *event.Event) (*PowerLevels, error) {
	if evt.Type != MatrixEventTypePowerLevels {
		return nil, fmt.Errorf("event %s is %s, not %s", evt.EventID, evt.Type, MatrixEventTypePowerLevels)
	}
	if evt.StateKey != nil && *evt.StateKey != "" {
		return nil, fmt.Errorf("power levels event %s has non-empty state key %q", evt.EventID, *evt.StateKey)
	}
	data, err := json.Marshal(evt.ContentLiteral())
	if err != nil {
		return nil, fmt.Errorf("re-encoding power levels content: %w", err)
	}
	return ParsePowerLevels(data)
}

// Clone returns a deep copy whose maps can be mutated independently.
func (powerLevels *PowerLevels) Clone() *PowerLevels {
	clone := *powerLevels
	clone.Users = maps.Clone(powerLevels.Users)
	clone.Events = maps.Clone(powerLevels.Events)
	clone.Notifications = maps.Clone(powerLevels.Notifications)
	return &clone
}

// UserLevel returns the power level of userID: the users map entry if
// present, otherwise users_default.
func (powerLevels *PowerLevels) UserLevel(userID ref.UserID) int {
	if level, ok := powerLevels.Users[userID.String()]; ok {
		return level
	}
	return levelOrDefault(powerLevels.UsersDefault, DefaultUsersLevel)
}

// SetUserLevel sets the power level for a user in place. Initializes
// the Users map if nil.
func (powerLevels *PowerLevels) SetUserLevel(userID ref.UserID, level int) {
	if powerLevels.Users == nil {
		powerLevels.Users = make(map[string]int)
	}
	powerLevels.Users[userID.String()] = level
}

// SetEventLevel sets the required power level for sending a given
// event type. Initializes the Events map if nil.
func (powerLevels *PowerLevels) SetEventLevel(eventType ref.EventType, level int) {
	if powerLevels.Events == nil {
		powerLevels.Events = make(map[string]int)
	}
	powerLevels.Events[string(eventType)] = level
}

// MinimumLevelForMessage returns the level required to send a message
// event of the given type: the events map entry if present, otherwise
// events_default.
func (powerLevels *PowerLevels) MinimumLevelForMessage(eventType ref.EventType) int {
	if level, ok := powerLevels.Events[string(eventType)]; ok {
		return level
	}
	return levelOrDefault(powerLevels.EventsDefault, DefaultEventsLevel)
}

// MinimumLevelForStateEvent returns the level required to send a state
// event of the given type: the events map entry if present, otherwise
// state_default.
func (powerLevels *PowerLevels) MinimumLevelForStateEvent(eventType ref.EventType) int {
	if level, ok := powerLevels.Events[string(eventType)]; ok {
		return level
	}
	return levelOrDefault(powerLevels.StateDefault, DefaultStateLevel)
}

// MaySend reports whether userID may send a message event of the given
// type. An empty event type or zero user ID is always refused.
func (powerLevels *PowerLevels) MaySend(eventType ref.EventType, userID ref.UserID) bool {
	if eventType == "" || userID.IsZero() {
		return false
	}
	return powerLevels.UserLevel(userID) >= powerLevels.MinimumLevelForMessage(eventType)
}

// MaySendMessage reports whether userID may send m.room.message events.
func (powerLevels *PowerLevels) MaySendMessage(userID ref.UserID) bool {
	return powerLevels.MaySend(MatrixEventTypeMessage, userID)
}

// MaySendStateEvent reports whether userID may send a state event of
// the given type. An empty event type or zero user ID is always refused.
func (powerLevels *PowerLevels) MaySendStateEvent(eventType ref.EventType, userID ref.UserID) bool {
	if eventType == "" || userID.IsZero() {
		return false
	}
	return powerLevels.UserLevel(userID) >= powerLevels.MinimumLevelForStateEvent(eventType)
}

// BanLevel returns the level required to ban a user.
func (powerLevels *PowerLevels) BanLevel() int {
	return levelOrDefault(powerLevels.Ban, DefaultBanLevel)
}

// KickLevel returns the level required to kick a user.
func (powerLevels *PowerLevels) KickLevel() int {
	return levelOrDefault(powerLevels.Kick, DefaultKickLevel)
}

// InviteLevel returns the level required to invite a user.
func (powerLevels *PowerLevels) InviteLevel() int {
	return levelOrDefault(powerLevels.Invite, DefaultInviteLevel)
}

// RedactLevel returns the level required to redact another user's events.
func (powerLevels *PowerLevels) RedactLevel() int {
	return levelOrDefault(powerLevels.Redact, DefaultRedactLevel)
}

// NotificationLevel returns the level a sender needs to trigger the
// notification named by key (for example "room" for @room mentions).
// An absent key yields DefaultNotificationLevel. Integers are returned
// as-is and numeric strings are parsed; any other literal, including a
// non-numeric string or a fractional number, is an error wrapping
// event.ErrUnsupportedLiteralType.
func (powerLevels *PowerLevels) NotificationLevel(key string) (int, error) {
	value, ok := powerLevels.Notifications[key]
	if !ok {
		return DefaultNotificationLevel, nil
	}

	if text, ok := value.AsString(); ok {
		level, err := strconv.Atoi(text)
		if err != nil {
			return 0, fmt.Errorf("notification level %q: string %q is not an integer: %w", key, text, event.ErrUnsupportedLiteralType)
		}
		return level, nil
	}
	if level, ok := value.AsInt(); ok {
		return int(level), nil
	}
	return 0, fmt.Errorf("notification level %q: %s value: %w", key, value.Kind(), event.ErrUnsupportedLiteralType)
}
