// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pushrule

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/bureau-foundation/roomkeys/lib/event"
	"github.com/bureau-foundation/roomkeys/lib/ref"
	"github.com/bureau-foundation/roomkeys/lib/schema"
)

var (
	twoJoined   = ref.MustParseRoomID("!two:example.org")
	threeJoined = ref.MustParseRoomID("!three:example.org")
	unknownRoom = ref.MustParseRoomID("!unknown:example.org")
	alice       = ref.MustParseUserID("@alice:example.org")
	bob         = ref.MustParseUserID("@bob:example.org")
)

// fakeRooms is a RoomState backed by maps.
type fakeRooms struct {
	joined      map[ref.RoomID]int
	powerLevels map[ref.RoomID]*schema.PowerLevels
}

func (f *fakeRooms) JoinedMemberCount(roomID ref.RoomID) (int, bool) {
	count, ok := f.joined[roomID]
	return count, ok
}

func (f *fakeRooms) PowerLevels(roomID ref.RoomID) (*schema.PowerLevels, bool) {
	powerLevels, ok := f.powerLevels[roomID]
	return powerLevels, ok
}

func newFakeRooms() *fakeRooms {
	powerLevels := &schema.PowerLevels{}
	powerLevels.SetUserLevel(alice, 50)
	return &fakeRooms{
		joined: map[ref.RoomID]int{twoJoined: 2, threeJoined: 3},
		powerLevels: map[ref.RoomID]*schema.PowerLevels{
			twoJoined: powerLevels,
		},
	}
}

func textMessage(msgtype, body string) *event.Event {
	return &event.Event{
		Type:   schema.MatrixEventTypeMessage,
		Sender: alice,
		Content: map[string]event.Literal{
			"msgtype": event.String(msgtype),
			"body":    event.String(body),
		},
	}
}

func inviteMember() *event.Event {
	stateKey := "@foo:matrix.org"
	return &event.Event{
		Type:     schema.MatrixEventTypeMember,
		StateKey: &stateKey,
		Content: map[string]event.Literal{
			"membership":  event.String("invite"),
			"displayname": event.String("Foo"),
			"avatar_url":  event.String("mxc://matrix.org/EqMZYbREvHXvYFyfxOlkf"),
		},
	}
}

func mustEventMatch(t *testing.T, key, pattern string) EventMatch {
	t.Helper()
	condition, err := NewEventMatch(key, pattern)
	if err != nil {
		t.Fatalf("NewEventMatch(%q, %q): %v", key, pattern, err)
	}
	return condition
}

func mustSatisfy(t *testing.T, condition Condition, evt *event.Event, rooms RoomState) bool {
	t.Helper()
	satisfied, err := condition.IsSatisfied(evt, rooms)
	if err != nil {
		t.Fatalf("%s.IsSatisfied: %v", condition.Kind(), err)
	}
	return satisfied
}

func TestEventMatchType(t *testing.T) {
	t.Parallel()
	condition := mustEventMatch(t, "type", "m.room.message")

	if !mustSatisfy(t, condition, textMessage("m.text", "Yo wtf?"), nil) {
		t.Error("type match failed on m.room.message")
	}
	if mustSatisfy(t, condition, inviteMember(), nil) {
		t.Error("type match succeeded on m.room.member")
	}
}

func TestEventMatchContentPath(t *testing.T) {
	t.Parallel()

	if !mustSatisfy(t, mustEventMatch(t, "content.msgtype", "m.text"), textMessage("m.text", "Yo wtf?"), nil) {
		t.Error("content.msgtype m.text did not match")
	}
	if mustSatisfy(t, mustEventMatch(t, "content.msgtype", "m.text"), textMessage("m.notice", "A"), nil) {
		t.Error("content.msgtype m.text matched m.notice")
	}
	if !mustSatisfy(t, mustEventMatch(t, "content.msgtype", "m.notice"), textMessage("m.notice", "A"), nil) {
		t.Error("content.msgtype m.notice did not match")
	}
	if !mustSatisfy(t, mustEventMatch(t, "content.membership", "invite"), inviteMember(), nil) {
		t.Error("content.membership invite did not match")
	}
}

func TestEventMatchGlob(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pattern  string
		body     string
		expected bool
	}{
		{"cake*lie", "cakeisalie", true},
		{"cake*lie", "cakelie", true},
		{"cake*lie", "cake", false},
		{"cake*lie", "How was the cakeisalie?", false},
		{"*cake*lie*", "How was the cakeisalie?", true},
		{"cake", "cake", true},
		{"cake", "Cake", true},
		{"cake", "How was the cake?", false},
		{"cake", "cakeisalie", false},
		{"c?ke", "cake", true},
		{"c?ke", "cke", false},
		{"c?ke", "caake", false},
		{"a.b", "axb", false},
		{"a.b", "a.b", true},
		{"[x]", "[x]", true},
		{"line*end", "line\nend", true},
		{"*", "", true},
		{"", "", true},
		{"", "x", false},
	}

	for _, test := range tests {
		evt := textMessage("m.text", test.body)
		got := mustSatisfy(t, mustEventMatch(t, "content.body", test.pattern), evt, nil)
		if got != test.expected {
			t.Errorf("pattern %q against %q = %v, want %v", test.pattern, test.body, got, test.expected)
		}
		if direct := MatchGlob(test.pattern, test.body); direct != test.expected {
			t.Errorf("MatchGlob(%q, %q) = %v, want %v", test.pattern, test.body, direct, test.expected)
		}
	}
}

func TestEventMatchNonString(t *testing.T) {
	t.Parallel()
	evt := &event.Event{
		Type: schema.MatrixEventTypeMessage,
		Content: map[string]event.Literal{
			"count":    event.Int(3),
			"flag":     event.Bool(true),
			"relation": event.Map(map[string]event.Literal{"rel_type": event.String("m.thread")}),
		},
	}

	for _, key := range []string{"content.count", "content.flag", "content.relation"} {
		if mustSatisfy(t, mustEventMatch(t, key, "*"), evt, nil) {
			t.Errorf("%s matched a non-string value", key)
		}
	}
	if !mustSatisfy(t, mustEventMatch(t, "content.relation.rel_type", "m.thread"), evt, nil) {
		t.Error("nested path did not match")
	}
	if mustSatisfy(t, mustEventMatch(t, "content.missing", "*"), evt, nil) {
		t.Error("absent key matched")
	}
}

func TestEventMatchInvalidLiteral(t *testing.T) {
	t.Parallel()
	evt := &event.Event{
		Type:    schema.MatrixEventTypeMessage,
		Content: map[string]event.Literal{"broken": {}},
	}

	_, err := mustEventMatch(t, "content.broken", "*").IsSatisfied(evt, nil)
	if !errors.Is(err, event.ErrUnsupportedLiteralType) {
		t.Errorf("error = %v, want ErrUnsupportedLiteralType", err)
	}
}

func TestEventMatchLiteralWithoutConstructor(t *testing.T) {
	t.Parallel()
	condition := EventMatch{Key: "content.body", Pattern: "hello*"}
	if !mustSatisfy(t, condition, textMessage("m.text", "hello world"), nil) {
		t.Error("uncompiled EventMatch did not match")
	}
}

func TestNewEventMatchRejectsEmptyKey(t *testing.T) {
	t.Parallel()
	if _, err := NewEventMatch("", "x"); !errors.Is(err, ErrInvalidCondition) {
		t.Errorf("error = %v, want ErrInvalidCondition", err)
	}
}

func TestParseMemberCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		expression string
		operator   Comparison
		count      int
	}{
		{"3", Equal, 3},
		{"==3", Equal, 3},
		{"<3", LessThan, 3},
		{">3", GreaterThan, 3},
		{"<=10", LessThanOrEqual, 10},
		{">=10", GreaterThanOrEqual, 10},
		{"0", Equal, 0},
	}
	for _, test := range tests {
		operator, count, err := ParseMemberCount(test.expression)
		if err != nil {
			t.Errorf("ParseMemberCount(%q): %v", test.expression, err)
			continue
		}
		if operator != test.operator || count != test.count {
			t.Errorf("ParseMemberCount(%q) = %s %d, want %s %d",
				test.expression, operator, count, test.operator, test.count)
		}
	}

	for _, bad := range []string{"", "==", "three", "<-3", "=3", "3 ", " 3", "!=3", "<=>3", "3.5"} {
		if _, _, err := ParseMemberCount(bad); !errors.Is(err, ErrInvalidCondition) {
			t.Errorf("ParseMemberCount(%q) error = %v, want ErrInvalidCondition", bad, err)
		}
	}
}

func TestRoomMemberCount(t *testing.T) {
	t.Parallel()
	rooms := newFakeRooms()

	inRoom := func(roomID ref.RoomID) *event.Event {
		evt := textMessage("m.text", "A")
		evt.RoomID = roomID
		return evt
	}

	tests := []struct {
		is       string
		room     ref.RoomID
		expected bool
	}{
		{"3", twoJoined, false},
		{"==3", twoJoined, false},
		{"<3", twoJoined, true},
		{"3", threeJoined, true},
		{"==3", threeJoined, true},
		{"<3", threeJoined, false},
		{"<=3", threeJoined, true},
		{">2", threeJoined, true},
		{">=4", threeJoined, false},
		{"3", unknownRoom, false},
	}

	for _, test := range tests {
		condition := RoomMemberCount{Is: test.is}
		if got := mustSatisfy(t, condition, inRoom(test.room), rooms); got != test.expected {
			t.Errorf("RoomMemberCount(%q) in %s = %v, want %v", test.is, test.room, got, test.expected)
		}
	}
}

func TestRoomMemberCountErrors(t *testing.T) {
	t.Parallel()
	evt := textMessage("m.text", "A")
	evt.RoomID = twoJoined

	if _, err := (RoomMemberCount{Is: "3"}).IsSatisfied(evt, nil); !errors.Is(err, ErrMissingCapability) {
		t.Errorf("nil rooms error = %v, want ErrMissingCapability", err)
	}
	if _, err := (RoomMemberCount{Is: "lots"}).IsSatisfied(evt, newFakeRooms()); !errors.Is(err, ErrInvalidCondition) {
		t.Errorf("bad expression error = %v, want ErrInvalidCondition", err)
	}

	noRoom := textMessage("m.text", "A")
	if mustSatisfy(t, RoomMemberCount{Is: "2"}, noRoom, newFakeRooms()) {
		t.Error("event without a room satisfied room_member_count")
	}
}

func TestSenderNotificationPermission(t *testing.T) {
	t.Parallel()
	rooms := newFakeRooms()
	condition := SenderNotificationPermission{Key: "room"}

	fromAlice := textMessage("m.text", "@room hello")
	fromAlice.RoomID = twoJoined
	if !mustSatisfy(t, condition, fromAlice, rooms) {
		t.Error("alice at 50 should reach the default room notification level")
	}

	fromBob := textMessage("m.text", "@room hello")
	fromBob.Sender = bob
	fromBob.RoomID = twoJoined
	if mustSatisfy(t, condition, fromBob, rooms) {
		t.Error("bob at 0 should not reach the room notification level")
	}

	rooms.powerLevels[twoJoined].Notifications = map[string]event.Literal{"room": event.String("0")}
	if !mustSatisfy(t, condition, fromBob, rooms) {
		t.Error("string notification level 0 should admit bob")
	}

	rooms.powerLevels[twoJoined].Notifications = map[string]event.Literal{"room": event.String("high")}
	if _, err := condition.IsSatisfied(fromBob, rooms); !errors.Is(err, event.ErrUnsupportedLiteralType) {
		t.Errorf("non-numeric level error = %v, want ErrUnsupportedLiteralType", err)
	}

	if _, err := condition.IsSatisfied(fromBob, nil); !errors.Is(err, ErrMissingCapability) {
		t.Errorf("nil rooms error = %v, want ErrMissingCapability", err)
	}

	fromBob.RoomID = threeJoined
	if mustSatisfy(t, condition, fromBob, rooms) {
		t.Error("room without power levels satisfied the condition")
	}
}

func TestUnknownCondition(t *testing.T) {
	t.Parallel()
	condition := Unknown{ConditionKind: "contains_display_name"}
	if _, err := condition.IsSatisfied(textMessage("m.text", "A"), nil); !errors.Is(err, ErrInvalidCondition) {
		t.Errorf("error = %v, want ErrInvalidCondition", err)
	}
}

func TestDecodeCondition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		wantKind string
		wantErr  bool
	}{
		{"event_match", `{"kind":"event_match","key":"content.body","pattern":"cake*"}`, KindEventMatch, false},
		{"room_member_count", `{"kind":"room_member_count","is":"<=2"}`, KindRoomMemberCount, false},
		{"sender_notification_permission", `{"kind":"sender_notification_permission","key":"room"}`, KindSenderNotificationPermission, false},
		{"unknown kind", `{"kind":"contains_display_name"}`, "contains_display_name", false},
		{"missing kind", `{"key":"type","pattern":"m.room.message"}`, "", true},
		{"event_match without pattern", `{"kind":"event_match","key":"type"}`, "", true},
		{"event_match empty key", `{"kind":"event_match","key":"","pattern":"x"}`, "", true},
		{"room_member_count without is", `{"kind":"room_member_count"}`, "", true},
		{"room_member_count bad operator", `{"kind":"room_member_count","is":"!=2"}`, "", true},
		{"sender_notification_permission without key", `{"kind":"sender_notification_permission"}`, "", true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			condition, err := DecodeCondition([]byte(test.input))
			if test.wantErr {
				if !errors.Is(err, ErrInvalidCondition) {
					t.Fatalf("DecodeCondition() error = %v, want ErrInvalidCondition", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeCondition() error: %v", err)
			}
			if condition.Kind() != test.wantKind {
				t.Errorf("Kind() = %q, want %q", condition.Kind(), test.wantKind)
			}
		})
	}
}

func TestDecodeConditionMalformedJSON(t *testing.T) {
	t.Parallel()
	if _, err := DecodeCondition([]byte(`{"kind":`)); err == nil {
		t.Fatal("DecodeCondition accepted truncated JSON")
	}
}

func TestUnknownConditionRoundTrip(t *testing.T) {
	t.Parallel()
	input := `{"kind":"contains_display_name","extra":1}`
	condition, err := DecodeCondition([]byte(input))
	if err != nil {
		t.Fatalf("DecodeCondition() error: %v", err)
	}
	output, err := json.Marshal(condition)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if string(output) != input {
		t.Errorf("round trip = %s, want %s", output, input)
	}
}
