// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source for testability.
//
// Session lifetimes are measured against a Clock rather than
// time.Now directly, so rotation tests can place a session exactly at
// (or one millisecond short of) its rotation deadline.
//
// # Wiring Pattern
//
// Add a Clock field to structs that read the time:
//
//	type SessionInfo struct {
//	    clock clock.Clock
//	    // ...
//	}
//
// In production:
//
//	info := outbound.NewSessionInfo(id, clock.Real(), logger)
//
// In tests:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	info := outbound.NewSessionInfo(id, c, logger)
//	c.Advance(time.Hour)
package clock
