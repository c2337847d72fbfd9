// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package megolm

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/bureau-foundation/roomkeys/lib/codec"
)

const (
	sessionKeyVersion = 2
	exportVersion     = 1

	// sessionKeyLength is the v2 session key without its signature.
	sessionKeyLength = 1 + 4 + ratchetLength + ed25519.PublicKeySize
)

// OutboundSession encrypts messages for a room. It is safe for
// concurrent use, though callers normally serialize encryption per
// room anyway so that share bookkeeping stays in step with the index.
type OutboundSession struct {
	mu         sync.Mutex
	ratchet    ratchet
	signingKey ed25519.PrivateKey
}

// NewOutboundSession creates a session with a random ratchet and
// signing key read from random. A nil random uses crypto/rand.
func NewOutboundSession(random io.Reader) (*OutboundSession, error) {
	if random == nil {
		random = rand.Reader
	}
	session := &OutboundSession{}
	if _, err := io.ReadFull(random, session.ratchet.data[:]); err != nil {
		return nil, fmt.Errorf("generating megolm ratchet: %w", err)
	}
	_, privateKey, err := ed25519.GenerateKey(random)
	if err != nil {
		return nil, fmt.Errorf("generating megolm signing key: %w", err)
	}
	session.signingKey = privateKey
	return session, nil
}

func (s *OutboundSession) publicKey() ed25519.PublicKey {
	return s.signingKey.Public().(ed25519.PublicKey)
}

// SessionID returns the unpadded base64 Ed25519 public key.
func (s *OutboundSession) SessionID() string {
	return encodeBase64(s.publicKey())
}

// MessageIndex returns the index the next message will be encrypted
// at.
func (s *OutboundSession) MessageIndex() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ratchet.counter
}

// SessionKey exports the ratchet at the current index as a signed v2
// session key. A recipient given this key can decrypt every message
// from MessageIndex onward.
func (s *OutboundSession) SessionKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := make([]byte, 0, sessionKeyLength+ed25519.SignatureSize)
	key = append(key, sessionKeyVersion)
	key = binary.BigEndian.AppendUint32(key, s.ratchet.counter)
	key = append(key, s.ratchet.data[:]...)
	key = append(key, s.publicKey()...)
	key = append(key, ed25519.Sign(s.signingKey, key)...)
	return encodeBase64(key)
}

// Encrypt encrypts plaintext at the current index, advances the
// ratchet, and returns the base64 v3 message.
func (s *OutboundSession) Encrypt(plaintext []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, err := deriveMessageKeys(&s.ratchet)
	if err != nil {
		return "", err
	}
	ciphertext, err := keys.encrypt(plaintext)
	if err != nil {
		return "", err
	}

	raw := appendMessageBody(nil, s.ratchet.counter, ciphertext)
	raw = append(raw, keys.mac(raw)...)
	raw = append(raw, ed25519.Sign(s.signingKey, raw)...)

	s.ratchet.advance()
	return encodeBase64(raw), nil
}

// pickledOutbound is the persisted form of an OutboundSession. It
// holds the private signing key and must be stored encrypted.
type pickledOutbound struct {
	Version int    `cbor:"version"`
	Ratchet []byte `cbor:"ratchet"`
	Counter uint32 `cbor:"counter"`
	Seed    []byte `cbor:"seed"`
}

const pickleVersion = 1

// Pickle serializes the session, including its private key.
func (s *OutboundSession) Pickle() ([]byte, error) {
	s.mu.Lock()
	pickled := pickledOutbound{
		Version: pickleVersion,
		Ratchet: append([]byte(nil), s.ratchet.data[:]...),
		Counter: s.ratchet.counter,
		Seed:    s.signingKey.Seed(),
	}
	s.mu.Unlock()
	return codec.Marshal(pickled)
}

// UnpickleOutboundSession restores a session serialized by Pickle.
func UnpickleOutboundSession(data []byte) (*OutboundSession, error) {
	var pickled pickledOutbound
	if err := codec.Unmarshal(data, &pickled); err != nil {
		return nil, fmt.Errorf("decoding pickled megolm session: %w", err)
	}
	if pickled.Version != pickleVersion {
		return nil, fmt.Errorf("pickled megolm session version %d, want %d", pickled.Version, pickleVersion)
	}
	if len(pickled.Ratchet) != ratchetLength || len(pickled.Seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("pickled megolm session has wrong key lengths")
	}
	session := &OutboundSession{signingKey: ed25519.NewKeyFromSeed(pickled.Seed)}
	copy(session.ratchet.data[:], pickled.Ratchet)
	session.ratchet.counter = pickled.Counter
	return session, nil
}
