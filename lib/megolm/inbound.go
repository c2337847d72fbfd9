// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package megolm

import (
	"crypto/ed25519"
	"crypto/hmac"
	"encoding/binary"
	"fmt"
	"sync"
)

// InboundSession decrypts messages from one sender's outbound session.
type InboundSession struct {
	signingKey ed25519.PublicKey

	mu sync.Mutex
	// initial is the earliest ratchet state known; latest is a cache of
	// the most recent state reached while decrypting, so in-order
	// messages do not replay the ratchet from initial.
	initial ratchet
	latest  ratchet
}

// NewInboundSession creates a session from a signed v2 session key.
func NewInboundSession(sessionKey string) (*InboundSession, error) {
	raw, err := decodeBase64(sessionKey)
	if err != nil {
		return nil, fmt.Errorf("decoding session key: %v: %w", err, ErrBadSessionKey)
	}
	if len(raw) != sessionKeyLength+ed25519.SignatureSize {
		return nil, fmt.Errorf("session key is %d bytes, want %d: %w",
			len(raw), sessionKeyLength+ed25519.SignatureSize, ErrBadSessionKey)
	}
	if raw[0] != sessionKeyVersion {
		return nil, fmt.Errorf("session key version %d, want %d: %w", raw[0], sessionKeyVersion, ErrBadSessionKey)
	}

	session := newInbound(raw[:sessionKeyLength])
	if !ed25519.Verify(session.signingKey, raw[:sessionKeyLength], raw[sessionKeyLength:]) {
		return nil, fmt.Errorf("session key: %w", ErrBadSignature)
	}
	return session, nil
}

// ImportInboundSession creates a session from an unsigned v1 export
// produced by Export.
func ImportInboundSession(exported string) (*InboundSession, error) {
	raw, err := decodeBase64(exported)
	if err != nil {
		return nil, fmt.Errorf("decoding exported session: %v: %w", err, ErrBadSessionKey)
	}
	if len(raw) != sessionKeyLength {
		return nil, fmt.Errorf("exported session is %d bytes, want %d: %w", len(raw), sessionKeyLength, ErrBadSessionKey)
	}
	if raw[0] != exportVersion {
		return nil, fmt.Errorf("exported session version %d, want %d: %w", raw[0], exportVersion, ErrBadSessionKey)
	}
	return newInbound(raw), nil
}

// newInbound reads version | counter | ratchet | public key.
func newInbound(raw []byte) *InboundSession {
	session := &InboundSession{}
	session.initial.counter = binary.BigEndian.Uint32(raw[1:5])
	copy(session.initial.data[:], raw[5:5+ratchetLength])
	session.signingKey = ed25519.PublicKey(append([]byte(nil), raw[5+ratchetLength:]...))
	session.latest = session.initial
	return session
}

// SessionID returns the unpadded base64 Ed25519 public key, matching
// the sender's OutboundSession.SessionID.
func (s *InboundSession) SessionID() string {
	return encodeBase64(s.signingKey)
}

// FirstKnownIndex returns the earliest message index the session can
// decrypt.
func (s *InboundSession) FirstKnownIndex() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initial.counter
}

// Export writes the ratchet at index as an unsigned v1 export, for
// sharing history from index onward. index must not precede
// FirstKnownIndex.
func (s *InboundSession) Export(index uint32) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < s.initial.counter {
		return "", fmt.Errorf("export at %d before first known index %d: %w", index, s.initial.counter, ErrUnknownIndex)
	}
	state := s.initial
	state.advanceTo(index)

	raw := make([]byte, 0, sessionKeyLength)
	raw = append(raw, exportVersion)
	raw = binary.BigEndian.AppendUint32(raw, state.counter)
	raw = append(raw, state.data[:]...)
	raw = append(raw, s.signingKey...)
	return encodeBase64(raw), nil
}

// Decrypt verifies and decrypts a base64 v3 message, returning the
// plaintext and the message index.
func (s *InboundSession) Decrypt(encoded string) ([]byte, uint32, error) {
	raw, err := decodeBase64(encoded)
	if err != nil {
		return nil, 0, fmt.Errorf("decoding message: %v: %w", err, ErrBadMessage)
	}
	parsed, err := parseMessage(raw)
	if err != nil {
		return nil, 0, err
	}
	if !ed25519.Verify(s.signingKey, parsed.signed, parsed.signature) {
		return nil, 0, fmt.Errorf("message %d: %w", parsed.index, ErrBadSignature)
	}

	state, err := s.ratchetAt(parsed.index)
	if err != nil {
		return nil, 0, err
	}
	keys, err := deriveMessageKeys(&state)
	if err != nil {
		return nil, 0, err
	}
	if !hmac.Equal(keys.mac(parsed.authenticated), parsed.mac) {
		return nil, 0, fmt.Errorf("message %d: MAC mismatch: %w", parsed.index, ErrBadMessage)
	}
	plaintext, err := keys.decrypt(parsed.ciphertext)
	if err != nil {
		return nil, 0, fmt.Errorf("message %d: %w", parsed.index, err)
	}
	return plaintext, parsed.index, nil
}

// ratchetAt returns a copy of the ratchet advanced to index.
func (s *InboundSession) ratchetAt(index uint32) (ratchet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < s.initial.counter {
		return ratchet{}, fmt.Errorf("message %d before first known index %d: %w",
			index, s.initial.counter, ErrUnknownIndex)
	}

	if index >= s.latest.counter {
		s.latest.advanceTo(index)
		return s.latest, nil
	}
	state := s.initial
	state.advanceTo(index)
	return state, nil
}
