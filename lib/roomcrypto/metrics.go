// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package roomcrypto

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Rotation reasons, the values of the "reason" label.
const (
	ReasonNew        = "new"
	ReasonDiscarded  = "discarded"
	ReasonMembership = "membership"
	ReasonPolicy     = "policy"
)

// Metrics holds the encryptor's Prometheus collectors.
type Metrics struct {
	Rotations         *prometheus.CounterVec
	KeysShared        prometheus.Counter
	ShareFailures     prometheus.Counter
	MessagesEncrypted prometheus.Counter
}

// NewMetrics creates the collectors and registers them with
// registerer. A nil registerer creates unregistered collectors.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		Rotations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "roomkeys_outbound_session_rotations_total",
				Help: "Total number of outbound megolm sessions created, by reason",
			},
			[]string{"reason"},
		),
		KeysShared: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "roomkeys_room_keys_shared_total",
				Help: "Total number of room keys sent to devices",
			},
		),
		ShareFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "roomkeys_room_key_share_failures_total",
				Help: "Total number of failed room key distributions",
			},
		),
		MessagesEncrypted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "roomkeys_messages_encrypted_total",
				Help: "Total number of room events encrypted",
			},
		),
	}
}
