// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pushrule

import (
	"log/slog"

	"github.com/bureau-foundation/roomkeys/lib/event"
)

// Match is the outcome of evaluating a ruleset against an event.
type Match struct {
	Kind RuleKind
	Rule *Rule
}

// Actions returns the matched rule's actions.
func (m Match) Actions() []Action { return m.Rule.Actions }

// Evaluator runs a ruleset against events. It is safe for concurrent
// use as long as the ruleset is not modified.
type Evaluator struct {
	ruleset *Ruleset
	rooms   RoomState
	logger  *slog.Logger
}

// NewEvaluator creates an evaluator. rooms may be nil, in which case
// conditions that need room data never match.
func NewEvaluator(ruleset *Ruleset, rooms RoomState, logger *slog.Logger) *Evaluator {
	return &Evaluator{ruleset: ruleset, rooms: rooms, logger: logger}
}

// Evaluate returns the first enabled rule, in priority order, whose
// conditions are all satisfied. The second result is false when no
// rule matched.
func (e *Evaluator) Evaluate(evt *event.Event) (Match, bool) {
	for _, section := range e.ruleset.Sections() {
		for i := range section.Rules {
			rule := &section.Rules[i]
			if !rule.Enabled {
				continue
			}
			if e.ruleMatches(section.Kind, rule, evt) {
				return Match{Kind: section.Kind, Rule: rule}, true
			}
		}
	}
	return Match{}, false
}

// Actions returns the actions of the matching rule, or nil.
func (e *Evaluator) Actions(evt *event.Event) []Action {
	match, ok := e.Evaluate(evt)
	if !ok {
		return nil
	}
	return match.Actions()
}

func (e *Evaluator) ruleMatches(kind RuleKind, rule *Rule, evt *event.Event) bool {
	conditions, err := rule.conditionsFor(kind)
	if err != nil {
		e.logger.Warn("skipping malformed push rule",
			"rule_id", rule.RuleID,
			"kind", kind,
			"error", err,
		)
		return false
	}
	for _, condition := range conditions {
		satisfied, err := condition.IsSatisfied(evt, e.rooms)
		if err != nil {
			e.logger.Warn("push rule condition failed",
				"rule_id", rule.RuleID,
				"condition", condition.Kind(),
				"error", err,
			)
			return false
		}
		if !satisfied {
			return false
		}
	}
	return true
}
