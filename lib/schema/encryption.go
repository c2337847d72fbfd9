// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bureau-foundation/roomkeys/lib/event"
)

// EncryptionSettings is the content of an m.room.encryption state
// event. Zero rotation fields mean "not set"; callers fall back to
// their configured defaults.
type EncryptionSettings struct {
	Algorithm          string `json:"algorithm"`
	RotationPeriodMs   int64  `json:"rotation_period_ms,omitempty"`
	RotationPeriodMsgs int    `json:"rotation_period_msgs,omitempty"`
}

// RotationPeriod returns RotationPeriodMs as a duration.
func (s EncryptionSettings) RotationPeriod() time.Duration {
	return time.Duration(s.RotationPeriodMs) * time.Millisecond
}

// EncryptionSettingsFromEvent decodes the content of an
// m.room.encryption state event.
func EncryptionSettingsFromEvent(evt *event.Event) (*EncryptionSettings, error) {
	if evt.Type != MatrixEventTypeEncryption {
		return nil, fmt.Errorf("event %s is %s, not %s", evt.EventID, evt.Type, MatrixEventTypeEncryption)
	}
	data, err := json.Marshal(evt.ContentLiteral())
	if err != nil {
		return nil, fmt.Errorf("re-encoding encryption content: %w", err)
	}
	var settings EncryptionSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parsing encryption settings: %w", err)
	}
	if settings.RotationPeriodMs < 0 || settings.RotationPeriodMsgs < 0 {
		return nil, fmt.Errorf("parsing encryption settings: negative rotation period")
	}
	return &settings, nil
}
