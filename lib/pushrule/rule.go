// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pushrule

import (
	"encoding/json"
	"fmt"

	"github.com/bureau-foundation/roomkeys/lib/event"
)

// RuleKind is the section of a ruleset a rule belongs to. The kind
// decides how a rule without explicit conditions is matched.
type RuleKind string

const (
	RuleKindOverride  RuleKind = "override"
	RuleKindContent   RuleKind = "content"
	RuleKindRoom      RuleKind = "room"
	RuleKindSender    RuleKind = "sender"
	RuleKindUnderride RuleKind = "underride"
)

// contentBodyKey is the path content rules match their pattern against.
const contentBodyKey = "content.body"

// Rule is a single push rule.
type Rule struct {
	RuleID  string
	Default bool

	// Enabled must be set for the rule to fire. Decoding JSON defaults
	// it to true, but a Rule built in Go starts disabled.
	Enabled bool

	Conditions []Condition
	Actions    []Action

	// Pattern is the glob content rules match against content.body.
	Pattern string

	// content is Pattern compiled at decode time.
	content *EventMatch
}

type wireRule struct {
	RuleID     string            `json:"rule_id"`
	Default    bool              `json:"default"`
	Enabled    *bool             `json:"enabled,omitempty"`
	Conditions []json.RawMessage `json:"conditions,omitempty"`
	Actions    []Action          `json:"actions"`
	Pattern    string            `json:"pattern,omitempty"`
}

// UnmarshalJSON decodes a rule. A rule without an "enabled" field is
// enabled.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var wire wireRule
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.RuleID == "" {
		return fmt.Errorf("push rule has no rule_id")
	}

	rule := Rule{
		RuleID:  wire.RuleID,
		Default: wire.Default,
		Enabled: wire.Enabled == nil || *wire.Enabled,
		Actions: wire.Actions,
		Pattern: wire.Pattern,
	}
	if wire.Pattern != "" {
		if match, err := NewEventMatch(contentBodyKey, wire.Pattern); err == nil {
			rule.content = &match
		}
	}
	for i, raw := range wire.Conditions {
		condition, err := DecodeCondition(raw)
		if err != nil {
			return fmt.Errorf("rule %q condition %d: %w", wire.RuleID, i, err)
		}
		rule.Conditions = append(rule.Conditions, condition)
	}
	*r = rule
	return nil
}

// MarshalJSON writes the form UnmarshalJSON accepts.
func (r Rule) MarshalJSON() ([]byte, error) {
	wire := wireRule{
		RuleID:  r.RuleID,
		Default: r.Default,
		Enabled: &r.Enabled,
		Actions: r.Actions,
		Pattern: r.Pattern,
	}
	if wire.Actions == nil {
		wire.Actions = []Action{}
	}
	for _, condition := range r.Conditions {
		raw, err := json.Marshal(condition)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.RuleID, err)
		}
		wire.Conditions = append(wire.Conditions, raw)
	}
	return json.Marshal(wire)
}

// conditionsFor returns the conditions a rule of the given kind is
// evaluated with. Content, room, and sender rules carry their match
// implicitly in the pattern or rule ID.
func (r *Rule) conditionsFor(kind RuleKind) ([]Condition, error) {
	switch kind {
	case RuleKindContent:
		if r.content != nil && r.content.Pattern == r.Pattern {
			return []Condition{*r.content}, nil
		}
		match, err := NewEventMatch(contentBodyKey, r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("content rule %q: %w", r.RuleID, err)
		}
		return []Condition{match}, nil
	case RuleKindRoom:
		return []Condition{exactMatch{key: "room_id", value: r.RuleID}}, nil
	case RuleKindSender:
		return []Condition{exactMatch{key: "sender", value: r.RuleID}}, nil
	default:
		return r.Conditions, nil
	}
}

// exactMatch compares a resolved attribute by plain string equality.
// Room and sender rule IDs are identifiers, not globs.
type exactMatch struct {
	key   string
	value string
}

func (exactMatch) Kind() string { return KindEventMatch }

func (m exactMatch) IsSatisfied(evt *event.Event, _ RoomState) (bool, error) {
	value, ok := evt.Resolve(m.key)
	if !ok {
		return false, nil
	}
	text, ok := value.AsString()
	return ok && text == m.value, nil
}

// Ruleset is a user's complete set of push rules.
type Ruleset struct {
	Override  []Rule `json:"override,omitempty"`
	Content   []Rule `json:"content,omitempty"`
	Room      []Rule `json:"room,omitempty"`
	Sender    []Rule `json:"sender,omitempty"`
	Underride []Rule `json:"underride,omitempty"`
}

// Section pairs a rule kind with the rules of that kind.
type Section struct {
	Kind  RuleKind
	Rules []Rule
}

// Sections returns the ruleset's rules in evaluation order.
func (r *Ruleset) Sections() []Section {
	return []Section{
		{RuleKindOverride, r.Override},
		{RuleKindContent, r.Content},
		{RuleKindRoom, r.Room},
		{RuleKindSender, r.Sender},
		{RuleKindUnderride, r.Underride},
	}
}

// Find returns the rule with the given kind and ID.
func (r *Ruleset) Find(kind RuleKind, ruleID string) (*Rule, bool) {
	for _, section := range r.Sections() {
		if section.Kind != kind {
			continue
		}
		for i := range section.Rules {
			if section.Rules[i].RuleID == ruleID {
				return &section.Rules[i], true
			}
		}
	}
	return nil, false
}
