// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"errors"
	"testing"
)

const messageJSON = `{
	"type": "m.room.message",
	"event_id": "$mx0",
	"sender": "@alice:example.org",
	"room_id": "!room:example.org",
	"origin_server_ts": 1700000000000,
	"content": {
		"msgtype": "m.text",
		"body": "How was the cake?",
		"m.relates_to": {"rel_type": "m.thread", "event_id": "$root"},
		"format": null
	}
}`

func TestDecode(t *testing.T) {
	t.Parallel()

	evt, err := Decode([]byte(messageJSON))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if evt.Type != "m.room.message" {
		t.Errorf("Type = %q", evt.Type)
	}
	if evt.RoomID.String() != "!room:example.org" {
		t.Errorf("RoomID = %q", evt.RoomID)
	}
	if evt.OriginServerTS != 1700000000000 {
		t.Errorf("OriginServerTS = %d", evt.OriginServerTS)
	}
	if _, ok := evt.Content["format"]; ok {
		t.Error("null content entry was kept")
	}
	if evt.IsState() {
		t.Error("message event reported as state")
	}
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{"missing type", `{"content":{}}`},
		{"content not an object", `{"type":"m.room.message","content":[1]}`},
		{"bad sender", `{"type":"m.room.message","sender":"alice"}`},
		{"null in list", `{"type":"m.room.message","content":{"l":[null]}}`},
		{"not json", `{`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Decode([]byte(test.input)); err == nil {
				t.Errorf("Decode(%s) succeeded, want error", test.input)
			}
		})
	}

	_, err := Decode([]byte(`{"type":"m.room.message","content":[1]}`))
	if !errors.Is(err, ErrUnsupportedLiteralType) {
		t.Errorf("non-object content error = %v, want ErrUnsupportedLiteralType", err)
	}
}

func TestDecodeMissingContent(t *testing.T) {
	t.Parallel()

	evt, err := Decode([]byte(`{"type":"m.room.redaction"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if evt.Content == nil || len(evt.Content) != 0 {
		t.Errorf("Content = %v, want empty map", evt.Content)
	}
}

func TestSplitPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want []string
	}{
		{"type", []string{"type"}},
		{"content.msgtype", []string{"content", "msgtype"}},
		{`content.m\.relates_to.rel_type`, []string{"content", "m.relates_to", "rel_type"}},
		{`content.a\\.b`, []string{"content", `a\`, "b"}},
		{`content.a\b`, []string{"content", `a\b`}},
		{"content..x", []string{"content", "", "x"}},
	}
	for _, test := range tests {
		got := SplitPath(test.path)
		if len(got) != len(test.want) {
			t.Errorf("SplitPath(%q) = %q, want %q", test.path, got, test.want)
			continue
		}
		for i := range got {
			if got[i] != test.want[i] {
				t.Errorf("SplitPath(%q) = %q, want %q", test.path, got, test.want)
				break
			}
		}
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	evt, err := Decode([]byte(messageJSON))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	tests := []struct {
		path   string
		want   Literal
		wantOK bool
	}{
		{"type", String("m.room.message"), true},
		{"content.msgtype", String("m.text"), true},
		{"content.body", String("How was the cake?"), true},
		{`content.m\.relates_to.rel_type`, String("m.thread"), true},
		{"room_id", String("!room:example.org"), true},
		{"sender", String("@alice:example.org"), true},
		{"event_id", String("$mx0"), true},
		{"state_key", Literal{}, false},
		{"content.missing", Literal{}, false},
		{"content.body.deeper", Literal{}, false},
		{"content.format", Literal{}, false},
		{"msgtype", Literal{}, false},
		{"type.extra", Literal{}, false},
	}
	for _, test := range tests {
		got, ok := evt.Resolve(test.path)
		if ok != test.wantOK {
			t.Errorf("Resolve(%q) ok = %v, want %v", test.path, ok, test.wantOK)
			continue
		}
		if ok && !got.Equal(test.want) {
			t.Errorf("Resolve(%q) = %#v, want %#v", test.path, got, test.want)
		}
	}

	whole, ok := evt.Resolve("content")
	if !ok || whole.Kind() != KindMap {
		t.Errorf("Resolve(content) = (%#v, %v), want map", whole, ok)
	}
}

func TestResolveStateKey(t *testing.T) {
	t.Parallel()

	evt, err := Decode([]byte(`{"type":"m.room.member","state_key":"@foo:example.org","content":{"membership":"invite"}}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !evt.IsState() {
		t.Error("member event not reported as state")
	}
	if got, ok := evt.Resolve("state_key"); !ok || !got.Equal(String("@foo:example.org")) {
		t.Errorf("Resolve(state_key) = (%#v, %v)", got, ok)
	}
	if _, ok := evt.Resolve("room_id"); ok {
		t.Error("Resolve(room_id) reported ok for event without a room")
	}
}
