// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pushrule

import (
	"encoding/json"
	"fmt"

	"github.com/bureau-foundation/roomkeys/lib/event"
)

// ActionKind identifies what a push rule asks the client to do.
type ActionKind string

const (
	ActionNotify     ActionKind = "notify"
	ActionDontNotify ActionKind = "dont_notify"
	ActionCoalesce   ActionKind = "coalesce"
	ActionSetTweak   ActionKind = "set_tweak"
)

// Tweak names with defined meaning.
const (
	TweakSound     = "sound"
	TweakHighlight = "highlight"
)

// Action is one entry of a rule's action list. Tweak and Value are set
// only for ActionSetTweak; an invalid Value means the tweak carried no
// value.
type Action struct {
	Kind  ActionKind
	Tweak string
	Value event.Literal
}

// Notify and DontNotify are the two most common actions.
var (
	Notify     = Action{Kind: ActionNotify}
	DontNotify = Action{Kind: ActionDontNotify}
)

// SetTweak builds a set_tweak action.
func SetTweak(name string, value event.Literal) Action {
	return Action{Kind: ActionSetTweak, Tweak: name, Value: value}
}

type wireTweak struct {
	SetTweak string          `json:"set_tweak"`
	Value    json.RawMessage `json:"value,omitempty"`
}

// UnmarshalJSON accepts the bare-string form ("notify") and the tweak
// object form ({"set_tweak": "sound", "value": "default"}).
func (a *Action) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		switch ActionKind(name) {
		case ActionNotify, ActionDontNotify, ActionCoalesce:
			*a = Action{Kind: ActionKind(name)}
			return nil
		default:
			return fmt.Errorf("unknown push rule action %q", name)
		}
	}

	var tweak wireTweak
	if err := json.Unmarshal(data, &tweak); err != nil {
		return fmt.Errorf("decoding push rule action: %w", err)
	}
	if tweak.SetTweak == "" {
		return fmt.Errorf("push rule action object has no set_tweak")
	}
	action := Action{Kind: ActionSetTweak, Tweak: tweak.SetTweak}
	if len(tweak.Value) != 0 {
		if err := json.Unmarshal(tweak.Value, &action.Value); err != nil {
			return fmt.Errorf("tweak %q value: %w", tweak.SetTweak, err)
		}
	}
	*a = action
	return nil
}

// MarshalJSON writes the form UnmarshalJSON accepts.
func (a Action) MarshalJSON() ([]byte, error) {
	if a.Kind != ActionSetTweak {
		return json.Marshal(string(a.Kind))
	}
	tweak := wireTweak{SetTweak: a.Tweak}
	if a.Value.IsValid() {
		value, err := json.Marshal(a.Value)
		if err != nil {
			return nil, fmt.Errorf("tweak %q value: %w", a.Tweak, err)
		}
		tweak.Value = value
	}
	return json.Marshal(tweak)
}

// ShouldNotify reports whether actions include notify.
func ShouldNotify(actions []Action) bool {
	for _, action := range actions {
		if action.Kind == ActionNotify {
			return true
		}
	}
	return false
}

// TweakValue returns the value of the named tweak, if present. A
// highlight tweak with no value means true.
func TweakValue(actions []Action, name string) (event.Literal, bool) {
	for _, action := range actions {
		if action.Kind != ActionSetTweak || action.Tweak != name {
			continue
		}
		if !action.Value.IsValid() && name == TweakHighlight {
			return event.Bool(true), true
		}
		return action.Value, true
	}
	return event.Literal{}, false
}
