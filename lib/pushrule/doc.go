// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package pushrule evaluates Matrix push rules against events.
//
// A push rule is a list of [Condition] values and a list of [Action]
// values. The rule fires when every condition is satisfied. Conditions
// are a closed set:
//
//   - [EventMatch] resolves a dotted key path on the event (see
//     event.Event.Resolve) and matches the string it finds against a
//     glob. The glob is anchored at both ends: "cake*lie" matches
//     "cakeisalie" but "cake" matches only "cake". Matching is
//     case-insensitive.
//   - [RoomMemberCount] compares the joined-member count of the event's
//     room against an expression such as "<3", ">=10", or "2".
//   - [SenderNotificationPermission] checks the sender's power level
//     against a notification level such as "room".
//
// Conditions that need room data take a [RoomState]. A condition that
// needs a capability the caller did not supply returns
// [ErrMissingCapability]; a condition whose own parameters are
// malformed returns [ErrInvalidCondition]. An [Evaluator] logs these
// and treats the condition as unsatisfied: a bad rule never fires, and
// never stops evaluation of the rules after it.
//
// A [Ruleset] groups rules into the five Matrix kinds, evaluated in
// priority order: override, content, room, sender, underride. The
// first enabled rule that matches decides the actions.
// [LoadRuleset] reads a ruleset from a JSONC file.
package pushrule
