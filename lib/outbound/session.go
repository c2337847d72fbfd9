// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package outbound

import (
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/roomkeys/lib/clock"
	"github.com/bureau-foundation/roomkeys/lib/ref"
)

// SessionInfo is the bookkeeping for one megolm outbound session. See
// the package documentation for the rotation model and concurrency
// contract.
type SessionInfo struct {
	sessionID string
	createdAt time.Time
	clock     clock.Clock
	logger    *slog.Logger

	mu       sync.RWMutex
	useCount int
	// sharedWith maps user -> device -> the message index the session
	// was at when its key was sent to that device. Append-only.
	sharedWith map[ref.UserID]map[ref.DeviceID]uint32
}

// NewSessionInfo starts tracking a freshly created session. The
// creation time is read from clock now.
func NewSessionInfo(sessionID string, clock clock.Clock, logger *slog.Logger) *SessionInfo {
	return &SessionInfo{
		sessionID:  sessionID,
		createdAt:  clock.Now(),
		clock:      clock,
		logger:     logger.With("session_id", sessionID),
		sharedWith: make(map[ref.UserID]map[ref.DeviceID]uint32),
	}
}

// SessionID returns the megolm session identifier.
func (s *SessionInfo) SessionID() string { return s.sessionID }

// CreatedAt returns when the session was created.
func (s *SessionInfo) CreatedAt() time.Time { return s.createdAt }

// UseCount returns how many messages have been encrypted with the
// session.
func (s *SessionInfo) UseCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.useCount
}

// NeedsRotation reports whether the session has encrypted at least
// rotationPeriodMessages messages or has lived for at least
// rotationPeriod. Both thresholds are inclusive.
func (s *SessionInfo) NeedsRotation(rotationPeriodMessages int, rotationPeriod time.Duration) bool {
	s.mu.RLock()
	useCount := s.useCount
	s.mu.RUnlock()

	lifetime := clock.Since(s.clock, s.createdAt)
	if useCount >= rotationPeriodMessages || lifetime >= rotationPeriod {
		s.logger.Debug("outbound session needs rotation",
			"use_count", useCount,
			"lifetime", lifetime,
			"rotation_period_messages", rotationPeriodMessages,
			"rotation_period", rotationPeriod,
		)
		return true
	}
	return false
}

// SharedWithExcessDevices reports whether the session key has been
// given to any device absent from current. It returns on the first
// user or device it finds missing.
func (s *SessionInfo) SharedWithExcessDevices(current DeviceSnapshot) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for userID, devices := range s.sharedWith {
		currentDevices, ok := current[userID]
		if !ok {
			s.logger.Debug("outbound session shared with user no longer in room",
				"user_id", userID)
			return true
		}
		for deviceID := range devices {
			if _, ok := currentDevices[deviceID]; !ok {
				s.logger.Debug("outbound session shared with device no longer in room",
					"user_id", userID,
					"device_id", deviceID)
				return true
			}
		}
	}
	return false
}

// MarkShared records that the session key was sent to a device while
// the session was at messageIndex. A device that already holds the key
// keeps its original (earliest) index.
func (s *SessionInfo) MarkShared(userID ref.UserID, deviceID ref.DeviceID, messageIndex uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	devices, ok := s.sharedWith[userID]
	if !ok {
		devices = make(map[ref.DeviceID]uint32)
		s.sharedWith[userID] = devices
	}
	if _, exists := devices[deviceID]; exists {
		return
	}
	devices[deviceID] = messageIndex
}

// IncrementUseCount records one more message encrypted with the
// session.
func (s *SessionInfo) IncrementUseCount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.useCount++
}

// SharedIndex returns the message index at which the device received
// the key, and whether it has received it at all.
func (s *SessionInfo) SharedIndex(userID ref.UserID, deviceID ref.DeviceID) (uint32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	index, ok := s.sharedWith[userID][deviceID]
	return index, ok
}

// SharedDeviceCount returns how many devices hold the key.
func (s *SessionInfo) SharedDeviceCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, devices := range s.sharedWith {
		total += len(devices)
	}
	return total
}

// UnsharedDevices returns the devices in current that have not yet
// received the key, sorted by user then device.
func (s *SessionInfo) UnsharedDevices(current DeviceSnapshot) []DeviceKey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pending []DeviceKey
	for userID, devices := range current {
		shared := s.sharedWith[userID]
		for deviceID := range devices {
			if _, ok := shared[deviceID]; !ok {
				pending = append(pending, DeviceKey{UserID: userID, DeviceID: deviceID})
			}
		}
	}
	sortDeviceKeys(pending)
	return pending
}
