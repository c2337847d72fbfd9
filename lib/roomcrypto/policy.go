// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package roomcrypto

import (
	"fmt"
	"time"

	"github.com/bureau-foundation/roomkeys/lib/config"
	"github.com/bureau-foundation/roomkeys/lib/schema"
)

// RotationPolicy bounds the life of an outbound session.
type RotationPolicy struct {
	// Messages is how many messages a session may encrypt.
	Messages int
	// Period is how long a session may live.
	Period time.Duration
}

// DefaultRotationPolicy matches the Matrix recommendation of 100
// messages or one week.
var DefaultRotationPolicy = RotationPolicy{Messages: 100, Period: 7 * 24 * time.Hour}

// PolicyFromConfig builds the deployment-wide default policy.
func PolicyFromConfig(encryption config.EncryptionConfig) (RotationPolicy, error) {
	period, err := encryption.Period()
	if err != nil {
		return RotationPolicy{}, err
	}
	policy := RotationPolicy{Messages: encryption.RotationPeriodMessages, Period: period}
	if err := policy.Validate(); err != nil {
		return RotationPolicy{}, err
	}
	return policy, nil
}

// Validate rejects non-positive limits.
func (p RotationPolicy) Validate() error {
	if p.Messages <= 0 {
		return fmt.Errorf("rotation policy: messages must be positive, got %d", p.Messages)
	}
	if p.Period <= 0 {
		return fmt.Errorf("rotation policy: period must be positive, got %s", p.Period)
	}
	return nil
}

// ForRoom applies a room's m.room.encryption overrides. Fields the
// room leaves unset (zero) keep the default. A nil settings returns p.
func (p RotationPolicy) ForRoom(settings *schema.EncryptionSettings) RotationPolicy {
	if settings == nil {
		return p
	}
	if settings.RotationPeriodMsgs > 0 {
		p.Messages = settings.RotationPeriodMsgs
	}
	if period := settings.RotationPeriod(); period > 0 {
		p.Period = period
	}
	return p
}
