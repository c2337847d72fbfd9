// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package outbound

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/roomkeys/lib/clock"
	"github.com/bureau-foundation/roomkeys/lib/codec"
	"github.com/bureau-foundation/roomkeys/lib/ref"
)

// snapshotVersion is bumped whenever sessionSnapshot changes
// incompatibly.
const snapshotVersion = 1

// sessionSnapshot is the CBOR form of a SessionInfo. Device maps are
// keyed by raw strings so the encoding does not depend on how ref
// types marshal as map keys.
type sessionSnapshot struct {
	Version    int                          `cbor:"version"`
	SessionID  string                       `cbor:"session_id"`
	CreatedAt  int64                        `cbor:"created_at_ms"`
	UseCount   int                          `cbor:"use_count"`
	SharedWith map[string]map[string]uint32 `cbor:"shared_with"`
}

// Snapshot encodes the session's bookkeeping as deterministic CBOR for
// the caller to store next to the session's key material.
func (s *SessionInfo) Snapshot() ([]byte, error) {
	s.mu.RLock()
	snapshot := sessionSnapshot{
		Version:    snapshotVersion,
		SessionID:  s.sessionID,
		CreatedAt:  s.createdAt.UnixMilli(),
		UseCount:   s.useCount,
		SharedWith: make(map[string]map[string]uint32, len(s.sharedWith)),
	}
	for userID, devices := range s.sharedWith {
		encoded := make(map[string]uint32, len(devices))
		for deviceID, index := range devices {
			encoded[deviceID.String()] = index
		}
		snapshot.SharedWith[userID.String()] = encoded
	}
	s.mu.RUnlock()

	data, err := codec.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("encoding outbound session %s: %w", s.sessionID, err)
	}
	return data, nil
}

// Restore decodes a snapshot produced by Snapshot. The restored
// session keeps its original creation time, so a session persisted
// across a restart still rotates on schedule.
func Restore(data []byte, clock clock.Clock, logger *slog.Logger) (*SessionInfo, error) {
	var snapshot sessionSnapshot
	if err := codec.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("decoding outbound session snapshot: %w", err)
	}
	if snapshot.Version != snapshotVersion {
		return nil, fmt.Errorf("outbound session snapshot version %d, want %d", snapshot.Version, snapshotVersion)
	}
	if snapshot.SessionID == "" {
		return nil, fmt.Errorf("outbound session snapshot has no session ID")
	}
	if snapshot.UseCount < 0 {
		return nil, fmt.Errorf("outbound session snapshot has negative use count %d", snapshot.UseCount)
	}

	session := &SessionInfo{
		sessionID:  snapshot.SessionID,
		createdAt:  time.UnixMilli(snapshot.CreatedAt),
		clock:      clock,
		logger:     logger.With("session_id", snapshot.SessionID),
		useCount:   snapshot.UseCount,
		sharedWith: make(map[ref.UserID]map[ref.DeviceID]uint32, len(snapshot.SharedWith)),
	}
	for rawUserID, devices := range snapshot.SharedWith {
		userID, err := ref.ParseUserID(rawUserID)
		if err != nil {
			return nil, fmt.Errorf("outbound session snapshot: %w", err)
		}
		decoded := make(map[ref.DeviceID]uint32, len(devices))
		for rawDeviceID, index := range devices {
			deviceID, err := ref.ParseDeviceID(rawDeviceID)
			if err != nil {
				return nil, fmt.Errorf("outbound session snapshot: user %s: %w", userID, err)
			}
			decoded[deviceID] = index
		}
		session.sharedWith[userID] = decoded
	}
	return session, nil
}
