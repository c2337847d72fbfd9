// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package schema defines the Matrix event type constants and typed
// state content consumed by roomkeys.
//
// [PowerLevels] is the typed m.room.power_levels content and doubles
// as the room's permission model: UserLevel, MinimumLevelForMessage,
// MinimumLevelForStateEvent, MaySend, and NotificationLevel resolve
// overrides first and fall back to the named Default* constants.
// Snapshots are decoded from state events ([PowerLevelsFromEvent]) and
// replaced wholesale when a newer state event arrives.
//
// [EncryptionSettings] is the typed m.room.encryption content carrying
// a room's megolm rotation thresholds.
package schema
