// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pushrule

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bureau-foundation/roomkeys/lib/event"
	"github.com/bureau-foundation/roomkeys/lib/ref"
	"github.com/bureau-foundation/roomkeys/lib/schema"
)

var (
	// ErrInvalidCondition reports a condition whose parameters cannot
	// be interpreted, such as an unparseable member count expression
	// or an unknown condition kind.
	ErrInvalidCondition = errors.New("invalid push rule condition")

	// ErrMissingCapability reports a condition that needs room data
	// when no RoomState was supplied.
	ErrMissingCapability = errors.New("push rule condition requires room state")
)

// Condition kinds as they appear in the "kind" field on the wire.
const (
	KindEventMatch                   = "event_match"
	KindRoomMemberCount              = "room_member_count"
	KindSenderNotificationPermission = "sender_notification_permission"
)

// RoomState is the read-only room data conditions may consult. The
// second result of each method is false when the room is unknown.
type RoomState interface {
	JoinedMemberCount(roomID ref.RoomID) (int, bool)
	PowerLevels(roomID ref.RoomID) (*schema.PowerLevels, bool)
}

// Condition is one trigger of a push rule. IsSatisfied must not modify
// the event. rooms may be nil.
type Condition interface {
	Kind() string
	IsSatisfied(evt *event.Event, rooms RoomState) (bool, error)
}

// EventMatch is satisfied when the value at Key is a string matching
// the glob Pattern.
type EventMatch struct {
	Key     string
	Pattern string

	compiled *regexp.Regexp
}

// NewEventMatch builds an EventMatch with its pattern compiled once.
func NewEventMatch(key, pattern string) (EventMatch, error) {
	if key == "" {
		return EventMatch{}, fmt.Errorf("event_match: empty key: %w", ErrInvalidCondition)
	}
	compiled, err := compileGlob(pattern)
	if err != nil {
		return EventMatch{}, fmt.Errorf("event_match pattern %q: %v: %w", pattern, err, ErrInvalidCondition)
	}
	return EventMatch{Key: key, Pattern: pattern, compiled: compiled}, nil
}

func (EventMatch) Kind() string { return KindEventMatch }

// IsSatisfied resolves Key on the event. An absent key or a value that
// is not a string is a clean mismatch.
func (m EventMatch) IsSatisfied(evt *event.Event, _ RoomState) (bool, error) {
	value, ok := evt.Resolve(m.Key)
	if !ok {
		return false, nil
	}
	if !value.IsValid() {
		return false, fmt.Errorf("event_match %q: %w", m.Key, event.ErrUnsupportedLiteralType)
	}
	text, ok := value.AsString()
	if !ok {
		return false, nil
	}

	compiled := m.compiled
	if compiled == nil {
		var err error
		compiled, err = compileGlob(m.Pattern)
		if err != nil {
			return false, fmt.Errorf("event_match pattern %q: %v: %w", m.Pattern, err, ErrInvalidCondition)
		}
	}
	return compiled.MatchString(text), nil
}

// Comparison is the operator of a room member count expression.
type Comparison string

const (
	Equal              Comparison = "=="
	LessThan           Comparison = "<"
	GreaterThan        Comparison = ">"
	LessThanOrEqual    Comparison = "<="
	GreaterThanOrEqual Comparison = ">="
)

// Longer operators come first so "<=" is not read as "<".
var comparisons = []Comparison{Equal, LessThanOrEqual, GreaterThanOrEqual, LessThan, GreaterThan}

func (c Comparison) apply(actual, expected int) bool {
	switch c {
	case Equal:
		return actual == expected
	case LessThan:
		return actual < expected
	case GreaterThan:
		return actual > expected
	case LessThanOrEqual:
		return actual <= expected
	case GreaterThanOrEqual:
		return actual >= expected
	default:
		return false
	}
}

// ParseMemberCount splits an expression such as "<=10" into its
// operator and operand. A bare integer means Equal. The operand must
// be one or more decimal digits.
func ParseMemberCount(expression string) (Comparison, int, error) {
	operator := Equal
	operand := expression
	for _, candidate := range comparisons {
		if rest, found := strings.CutPrefix(expression, string(candidate)); found {
			operator = candidate
			operand = rest
			break
		}
	}

	if operand == "" {
		return "", 0, fmt.Errorf("room_member_count %q: missing number: %w", expression, ErrInvalidCondition)
	}
	for i := 0; i < len(operand); i++ {
		if operand[i] < '0' || operand[i] > '9' {
			return "", 0, fmt.Errorf("room_member_count %q: %q is not a number: %w", expression, operand, ErrInvalidCondition)
		}
	}
	count, err := strconv.Atoi(operand)
	if err != nil {
		return "", 0, fmt.Errorf("room_member_count %q: %v: %w", expression, err, ErrInvalidCondition)
	}
	return operator, count, nil
}

// RoomMemberCount is satisfied when the joined-member count of the
// event's room compares true against Is.
type RoomMemberCount struct {
	Is string
}

func (RoomMemberCount) Kind() string { return KindRoomMemberCount }

// IsSatisfied needs rooms. An event with no room, or a room rooms does
// not know, is a clean mismatch.
func (c RoomMemberCount) IsSatisfied(evt *event.Event, rooms RoomState) (bool, error) {
	operator, expected, err := ParseMemberCount(c.Is)
	if err != nil {
		return false, err
	}
	if rooms == nil {
		return false, fmt.Errorf("room_member_count: %w", ErrMissingCapability)
	}
	if evt.RoomID.IsZero() {
		return false, nil
	}
	joined, ok := rooms.JoinedMemberCount(evt.RoomID)
	if !ok {
		return false, nil
	}
	return operator.apply(joined, expected), nil
}

// SenderNotificationPermission is satisfied when the sender's power
// level in the event's room reaches the notification level named by
// Key.
type SenderNotificationPermission struct {
	Key string
}

func (SenderNotificationPermission) Kind() string { return KindSenderNotificationPermission }

func (c SenderNotificationPermission) IsSatisfied(evt *event.Event, rooms RoomState) (bool, error) {
	if c.Key == "" {
		return false, fmt.Errorf("sender_notification_permission: empty key: %w", ErrInvalidCondition)
	}
	if rooms == nil {
		return false, fmt.Errorf("sender_notification_permission: %w", ErrMissingCapability)
	}
	if evt.RoomID.IsZero() || evt.Sender.IsZero() {
		return false, nil
	}
	powerLevels, ok := rooms.PowerLevels(evt.RoomID)
	if !ok {
		return false, nil
	}
	required, err := powerLevels.NotificationLevel(c.Key)
	if err != nil {
		return false, fmt.Errorf("sender_notification_permission: %w", err)
	}
	return powerLevels.UserLevel(evt.Sender) >= required, nil
}

// Unknown holds a condition of a kind this package does not
// implement. It is never satisfied.
type Unknown struct {
	ConditionKind string
	Raw           []byte
}

func (u Unknown) Kind() string { return u.ConditionKind }

func (u Unknown) IsSatisfied(*event.Event, RoomState) (bool, error) {
	return false, fmt.Errorf("condition kind %q: %w", u.ConditionKind, ErrInvalidCondition)
}
