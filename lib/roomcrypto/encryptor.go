// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package roomcrypto

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/roomkeys/lib/clock"
	"github.com/bureau-foundation/roomkeys/lib/megolm"
	"github.com/bureau-foundation/roomkeys/lib/outbound"
	"github.com/bureau-foundation/roomkeys/lib/ref"
	"github.com/bureau-foundation/roomkeys/lib/schema"
)

// MembershipProvider reports which devices are in a room. It is asked
// on every Encrypt; the result is not retained.
type MembershipProvider interface {
	RoomDevices(ctx context.Context, roomID ref.RoomID) (outbound.DeviceSnapshot, error)
}

// KeyDistributor delivers a room key to devices, typically as Olm
// encrypted to-device messages. An error means no device should be
// considered to hold the key.
type KeyDistributor interface {
	ShareRoomKey(ctx context.Context, key RoomKey, devices []outbound.DeviceKey) error
}

// SettingsProvider returns a room's m.room.encryption settings. A nil
// result with no error means the room sets no overrides.
type SettingsProvider interface {
	EncryptionSettings(ctx context.Context, roomID ref.RoomID) (*schema.EncryptionSettings, error)
}

// Config holds the dependencies of an Encryptor.
type Config struct {
	Members MembershipProvider
	Keys    KeyDistributor

	// Settings is optional. Without it every room uses Policy.
	Settings SettingsProvider

	// Policy is the default rotation policy. Zero means
	// DefaultRotationPolicy.
	Policy RotationPolicy

	// Identity fields copied into EncryptedContent when set.
	SenderKey string
	DeviceID  ref.DeviceID

	Clock  clock.Clock
	Logger *slog.Logger

	// Metrics is optional.
	Metrics *Metrics

	// Random seeds new sessions. Nil uses crypto/rand.
	Random io.Reader
}

// Encryptor encrypts room events, managing one outbound session per
// room.
type Encryptor struct {
	config Config

	mu    sync.Mutex
	rooms map[ref.RoomID]*roomSession
}

// roomSession is the live outbound session of one room. mu serializes
// every Encrypt in the room.
type roomSession struct {
	mu        sync.Mutex
	session   *megolm.OutboundSession
	info      *outbound.SessionInfo
	discarded bool
}

// New creates an Encryptor.
func New(config Config) (*Encryptor, error) {
	if config.Members == nil {
		return nil, errors.New("roomcrypto: Members is required")
	}
	if config.Keys == nil {
		return nil, errors.New("roomcrypto: Keys is required")
	}
	if config.Clock == nil {
		return nil, errors.New("roomcrypto: Clock is required")
	}
	if config.Logger == nil {
		return nil, errors.New("roomcrypto: Logger is required")
	}
	if config.Policy == (RotationPolicy{}) {
		config.Policy = DefaultRotationPolicy
	}
	if err := config.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("roomcrypto: %w", err)
	}
	return &Encryptor{
		config: config,
		rooms:  make(map[ref.RoomID]*roomSession),
	}, nil
}

func (e *Encryptor) room(roomID ref.RoomID) *roomSession {
	e.mu.Lock()
	defer e.mu.Unlock()
	room, ok := e.rooms[roomID]
	if !ok {
		room = &roomSession{}
		e.rooms[roomID] = room
	}
	return room
}

// lookup returns the room's state without creating it.
func (e *Encryptor) lookup(roomID ref.RoomID) (*roomSession, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	room, ok := e.rooms[roomID]
	return room, ok
}

// Encrypt encrypts an event of eventType with content for roomID. The
// returned content is ready to send as an m.room.encrypted event.
func (e *Encryptor) Encrypt(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, content any) (*EncryptedContent, error) {
	if roomID.IsZero() {
		return nil, errors.New("encrypting event: empty room ID")
	}
	if eventType == "" {
		return nil, errors.New("encrypting event: empty event type")
	}
	plaintext, err := json.Marshal(payload{Type: eventType, Content: content, RoomID: roomID})
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", eventType, err)
	}

	room := e.room(roomID)
	room.mu.Lock()
	defer room.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	devices, err := e.config.Members.RoomDevices(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("listing devices in %s: %w", roomID, err)
	}
	policy, err := e.policyFor(ctx, roomID)
	if err != nil {
		return nil, err
	}

	if reason, rotate := e.rotationReason(room, devices, policy); rotate {
		if err := e.rotate(room, roomID, reason); err != nil {
			return nil, err
		}
	}

	if err := e.share(ctx, room, roomID, devices); err != nil {
		return nil, err
	}

	ciphertext, err := room.session.Encrypt(plaintext)
	if err != nil {
		return nil, fmt.Errorf("encrypting %s in %s: %w", eventType, roomID, err)
	}
	room.info.IncrementUseCount()
	if e.config.Metrics != nil {
		e.config.Metrics.MessagesEncrypted.Inc()
	}

	return &EncryptedContent{
		Algorithm:  schema.AlgorithmMegolm,
		Ciphertext: ciphertext,
		SessionID:  room.session.SessionID(),
		SenderKey:  e.config.SenderKey,
		DeviceID:   e.config.DeviceID,
	}, nil
}

func (e *Encryptor) policyFor(ctx context.Context, roomID ref.RoomID) (RotationPolicy, error) {
	if e.config.Settings == nil {
		return e.config.Policy, nil
	}
	settings, err := e.config.Settings.EncryptionSettings(ctx, roomID)
	if err != nil {
		return RotationPolicy{}, fmt.Errorf("reading encryption settings of %s: %w", roomID, err)
	}
	return e.config.Policy.ForRoom(settings), nil
}

// rotationReason decides whether the room needs a new session. Excess
// devices are checked before the policy so that a membership change
// is reported as such even when the session is also old.
func (e *Encryptor) rotationReason(room *roomSession, devices outbound.DeviceSnapshot, policy RotationPolicy) (string, bool) {
	switch {
	case room.session == nil && room.discarded:
		return ReasonDiscarded, true
	case room.session == nil:
		return ReasonNew, true
	case room.info.SharedWithExcessDevices(devices):
		return ReasonMembership, true
	case room.info.NeedsRotation(policy.Messages, policy.Period):
		return ReasonPolicy, true
	default:
		return "", false
	}
}

func (e *Encryptor) rotate(room *roomSession, roomID ref.RoomID, reason string) error {
	session, err := megolm.NewOutboundSession(e.config.Random)
	if err != nil {
		return fmt.Errorf("creating outbound session for %s: %w", roomID, err)
	}

	logger := e.config.Logger.With("room_id", roomID)
	if room.info != nil {
		logger.Info("rotating outbound session",
			"previous_session_id", room.info.SessionID(),
			"session_id", session.SessionID(),
			"reason", reason,
			"use_count", room.info.UseCount(),
		)
	} else {
		logger.Info("created outbound session",
			"session_id", session.SessionID(),
			"reason", reason,
		)
	}

	room.session = session
	room.info = outbound.NewSessionInfo(session.SessionID(), e.config.Clock, logger)
	room.discarded = false
	if e.config.Metrics != nil {
		e.config.Metrics.Rotations.WithLabelValues(reason).Inc()
	}
	return nil
}

// share hands the session key to every current device that lacks it.
// Devices are marked shared only after the distributor succeeds.
func (e *Encryptor) share(ctx context.Context, room *roomSession, roomID ref.RoomID, devices outbound.DeviceSnapshot) error {
	pending := room.info.UnsharedDevices(devices)
	if len(pending) == 0 {
		return nil
	}

	index := room.session.MessageIndex()
	key := newRoomKey(roomID, room.session.SessionID(), room.session.SessionKey())
	if err := e.config.Keys.ShareRoomKey(ctx, key, pending); err != nil {
		if e.config.Metrics != nil {
			e.config.Metrics.ShareFailures.Inc()
		}
		return fmt.Errorf("sharing room key for %s with %d devices: %w", roomID, len(pending), err)
	}

	for _, device := range pending {
		room.info.MarkShared(device.UserID, device.DeviceID, index)
	}
	if e.config.Metrics != nil {
		e.config.Metrics.KeysShared.Add(float64(len(pending)))
	}
	e.config.Logger.Debug("shared room key",
		"room_id", roomID,
		"session_id", room.session.SessionID(),
		"devices", len(pending),
		"message_index", index,
	)
	return nil
}

// DiscardSession drops the room's outbound session. The next Encrypt
// in the room creates and shares a new one.
func (e *Encryptor) DiscardSession(roomID ref.RoomID) {
	room, ok := e.lookup(roomID)
	if !ok {
		return
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.session == nil {
		return
	}
	e.config.Logger.Info("discarded outbound session",
		"room_id", roomID,
		"session_id", room.session.SessionID(),
	)
	room.session = nil
	room.info = nil
	room.discarded = true
}

// SessionInfo returns the bookkeeping of the room's live session.
func (e *Encryptor) SessionInfo(roomID ref.RoomID) (*outbound.SessionInfo, bool) {
	room, ok := e.lookup(roomID)
	if !ok {
		return nil, false
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.info == nil {
		return nil, false
	}
	return room.info, true
}
