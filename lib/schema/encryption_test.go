// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"testing"
	"time"

	"github.com/bureau-foundation/roomkeys/lib/event"
)

func TestEncryptionSettingsFromEvent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		evt      *event.Event
		expected *EncryptionSettings
		wantErr  bool
	}{
		{
			name: "algorithm only",
			evt: &event.Event{
				Type:    MatrixEventTypeEncryption,
				Content: map[string]event.Literal{"algorithm": event.String(AlgorithmMegolm)},
			},
			expected: &EncryptionSettings{Algorithm: AlgorithmMegolm},
		},
		{
			name: "rotation overrides",
			evt: &event.Event{
				Type: MatrixEventTypeEncryption,
				Content: map[string]event.Literal{
					"algorithm":            event.String(AlgorithmMegolm),
					"rotation_period_ms":   event.Int(3600000),
					"rotation_period_msgs": event.Int(10),
				},
			},
			expected: &EncryptionSettings{
				Algorithm:          AlgorithmMegolm,
				RotationPeriodMs:   3600000,
				RotationPeriodMsgs: 10,
			},
		},
		{
			name: "negative period rejected",
			evt: &event.Event{
				Type: MatrixEventTypeEncryption,
				Content: map[string]event.Literal{
					"algorithm":          event.String(AlgorithmMegolm),
					"rotation_period_ms": event.Int(-1),
				},
			},
			wantErr: true,
		},
		{
			name: "wrong field type rejected",
			evt: &event.Event{
				Type: MatrixEventTypeEncryption,
				Content: map[string]event.Literal{
					"rotation_period_msgs": event.String("ten"),
				},
			},
			wantErr: true,
		},
		{
			name: "wrong event type rejected",
			evt: &event.Event{
				Type:    MatrixEventTypePowerLevels,
				Content: map[string]event.Literal{"algorithm": event.String(AlgorithmMegolm)},
			},
			wantErr: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			settings, err := EncryptionSettingsFromEvent(test.evt)
			if test.wantErr {
				if err == nil {
					t.Fatalf("EncryptionSettingsFromEvent() = %+v, want error", settings)
				}
				return
			}
			if err != nil {
				t.Fatalf("EncryptionSettingsFromEvent() error: %v", err)
			}
			if *settings != *test.expected {
				t.Errorf("EncryptionSettingsFromEvent() = %+v, want %+v", settings, test.expected)
			}
		})
	}
}

func TestEncryptionSettingsRotationPeriod(t *testing.T) {
	t.Parallel()

	settings := EncryptionSettings{RotationPeriodMs: 1500}
	if got := settings.RotationPeriod(); got != 1500*time.Millisecond {
		t.Errorf("RotationPeriod() = %v, want 1.5s", got)
	}
	if got := (EncryptionSettings{}).RotationPeriod(); got != 0 {
		t.Errorf("zero RotationPeriod() = %v, want 0", got)
	}
}
