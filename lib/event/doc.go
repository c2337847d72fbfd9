// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package event holds the read-only Matrix event model consumed by the
// permission and push-rule evaluators.
//
// Event content on the wire is loosely typed JSON. Rather than carry
// map[string]any through the evaluators, content is decoded into
// [Literal], a closed tagged variant over the five kinds the evaluators
// understand: string, number, boolean, map, and list. Every access site
// coerces explicitly (AsString, AsInt, ...) and gets a boolean telling
// it whether the literal had the expected kind, so there are no silent
// casts between, say, a numeric string and a number.
//
// [Event.Resolve] maps a dotted key path such as "content.msgtype" to a
// Literal. It is the single path-resolution routine shared by the
// event_match condition and anything else that addresses event fields
// by name.
package event
