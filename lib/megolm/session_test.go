// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package megolm

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"testing"
)

func newTestOutbound(t *testing.T) *OutboundSession {
	t.Helper()
	session, err := NewOutboundSession(nil)
	if err != nil {
		t.Fatalf("NewOutboundSession: %v", err)
	}
	return session
}

func newTestInbound(t *testing.T, outbound *OutboundSession) *InboundSession {
	t.Helper()
	inbound, err := NewInboundSession(outbound.SessionKey())
	if err != nil {
		t.Fatalf("NewInboundSession: %v", err)
	}
	return inbound
}

func encrypt(t *testing.T, session *OutboundSession, plaintext string) string {
	t.Helper()
	ciphertext, err := session.Encrypt([]byte(plaintext))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	return ciphertext
}

func TestEncryptDecrypt(t *testing.T) {
	t.Parallel()
	outbound := newTestOutbound(t)
	inbound := newTestInbound(t, outbound)

	if inbound.SessionID() != outbound.SessionID() {
		t.Fatalf("inbound session ID %q != outbound %q", inbound.SessionID(), outbound.SessionID())
	}

	plaintexts := []string{"", "hello", "exactly sixteen!", `{"type":"m.room.message","content":{"body":"hi"}}`}
	var messages []string
	for i, plaintext := range plaintexts {
		if index := outbound.MessageIndex(); index != uint32(i) {
			t.Fatalf("MessageIndex = %d before message %d", index, i)
		}
		messages = append(messages, encrypt(t, outbound, plaintext))
	}

	// Decrypt out of order to exercise both the cached and the
	// replayed ratchet.
	for _, i := range []int{2, 3, 0, 1} {
		plaintext, index, err := inbound.Decrypt(messages[i])
		if err != nil {
			t.Fatalf("Decrypt message %d: %v", i, err)
		}
		if index != uint32(i) {
			t.Errorf("message %d decrypted at index %d", i, index)
		}
		if string(plaintext) != plaintexts[i] {
			t.Errorf("message %d = %q, want %q", i, plaintext, plaintexts[i])
		}
	}
}

func TestDecryptBeforeFirstKnownIndex(t *testing.T) {
	t.Parallel()
	outbound := newTestOutbound(t)
	early := encrypt(t, outbound, "before the key was shared")

	inbound := newTestInbound(t, outbound)
	if inbound.FirstKnownIndex() != 1 {
		t.Fatalf("FirstKnownIndex = %d, want 1", inbound.FirstKnownIndex())
	}
	if _, _, err := inbound.Decrypt(early); !errors.Is(err, ErrUnknownIndex) {
		t.Errorf("Decrypt error = %v, want ErrUnknownIndex", err)
	}

	late := encrypt(t, outbound, "after")
	if plaintext, _, err := inbound.Decrypt(late); err != nil || string(plaintext) != "after" {
		t.Errorf("Decrypt = %q, %v; want after", plaintext, err)
	}
}

func TestDecryptRejectsTampering(t *testing.T) {
	t.Parallel()
	outbound := newTestOutbound(t)
	inbound := newTestInbound(t, outbound)
	encoded := encrypt(t, outbound, "attack at dawn")

	raw, err := decodeBase64(encoded)
	if err != nil {
		t.Fatalf("decodeBase64: %v", err)
	}
	raw[len(raw)-ed25519.SignatureSize-macLength-1] ^= 0x01
	if _, _, err := inbound.Decrypt(encodeBase64(raw)); !errors.Is(err, ErrBadSignature) {
		t.Errorf("tampered ciphertext error = %v, want ErrBadSignature", err)
	}

	other := newTestOutbound(t)
	foreign := encrypt(t, other, "from someone else")
	if _, _, err := inbound.Decrypt(foreign); !errors.Is(err, ErrBadSignature) {
		t.Errorf("foreign message error = %v, want ErrBadSignature", err)
	}
}

// A correctly signed message with a wrong MAC can only come from the
// key holder, but must still be rejected.
func TestDecryptRejectsBadMAC(t *testing.T) {
	t.Parallel()
	outbound := newTestOutbound(t)
	inbound := newTestInbound(t, outbound)

	raw := appendMessageBody(nil, 0, make([]byte, 16))
	raw = append(raw, make([]byte, macLength)...)
	raw = append(raw, ed25519.Sign(outbound.signingKey, raw)...)

	if _, _, err := inbound.Decrypt(encodeBase64(raw)); !errors.Is(err, ErrBadMessage) {
		t.Errorf("bad MAC error = %v, want ErrBadMessage", err)
	}
}

func TestDecryptMalformed(t *testing.T) {
	t.Parallel()
	inbound := newTestInbound(t, newTestOutbound(t))

	tooShort := encodeBase64([]byte{messageVersion, 0x08, 0x00})
	wrongVersion := make([]byte, 100)
	wrongVersion[0] = 2

	for name, encoded := range map[string]string{
		"not base64":    "!!!",
		"too short":     tooShort,
		"wrong version": encodeBase64(wrongVersion),
	} {
		if _, _, err := inbound.Decrypt(encoded); !errors.Is(err, ErrBadMessage) {
			t.Errorf("%s: error = %v, want ErrBadMessage", name, err)
		}
	}
}

func TestParseMessageRequiresFields(t *testing.T) {
	t.Parallel()
	trailer := make([]byte, macLength+ed25519.SignatureSize)

	indexOnly := append([]byte{messageVersion, 0x08, 0x05}, trailer...)
	if _, err := parseMessage(indexOnly); !errors.Is(err, ErrBadMessage) {
		t.Errorf("index-only message error = %v, want ErrBadMessage", err)
	}

	withUnknownField := appendMessageBody(nil, 7, []byte("ciphertext"))
	withUnknownField = append(withUnknownField, 0x18, 0x01) // field 3, varint 1
	withUnknownField = append(withUnknownField, trailer...)
	parsed, err := parseMessage(withUnknownField)
	if err != nil {
		t.Fatalf("message with unknown field: %v", err)
	}
	if parsed.index != 7 || string(parsed.ciphertext) != "ciphertext" {
		t.Errorf("parsed index %d ciphertext %q", parsed.index, parsed.ciphertext)
	}
}

func TestMessageIndex(t *testing.T) {
	t.Parallel()
	outbound := newTestOutbound(t)
	for range 3 {
		encrypt(t, outbound, "x")
	}
	index, err := MessageIndex(encrypt(t, outbound, "fourth"))
	if err != nil {
		t.Fatalf("MessageIndex: %v", err)
	}
	if index != 3 {
		t.Errorf("MessageIndex = %d, want 3", index)
	}
}

func TestSessionKeyValidation(t *testing.T) {
	t.Parallel()
	outbound := newTestOutbound(t)
	raw, err := decodeBase64(outbound.SessionKey())
	if err != nil {
		t.Fatalf("decodeBase64: %v", err)
	}

	badSignature := append([]byte(nil), raw...)
	badSignature[10] ^= 0xff
	if _, err := NewInboundSession(encodeBase64(badSignature)); !errors.Is(err, ErrBadSignature) {
		t.Errorf("altered ratchet error = %v, want ErrBadSignature", err)
	}

	wrongVersion := append([]byte(nil), raw...)
	wrongVersion[0] = 9
	if _, err := NewInboundSession(encodeBase64(wrongVersion)); !errors.Is(err, ErrBadSessionKey) {
		t.Errorf("wrong version error = %v, want ErrBadSessionKey", err)
	}

	if _, err := NewInboundSession(encodeBase64(raw[:50])); !errors.Is(err, ErrBadSessionKey) {
		t.Errorf("truncated key error = %v, want ErrBadSessionKey", err)
	}

	// Padded base64 is accepted.
	if _, err := NewInboundSession(outbound.SessionKey() + "="); err != nil {
		t.Errorf("padded session key: %v", err)
	}
}

func TestExportImport(t *testing.T) {
	t.Parallel()
	outbound := newTestOutbound(t)
	inbound := newTestInbound(t, outbound)

	var messages []string
	for i := range 5 {
		messages = append(messages, encrypt(t, outbound, fmt.Sprintf("message %d", i)))
	}

	exported, err := inbound.Export(2)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	imported, err := ImportInboundSession(exported)
	if err != nil {
		t.Fatalf("ImportInboundSession: %v", err)
	}
	if imported.FirstKnownIndex() != 2 {
		t.Errorf("imported FirstKnownIndex = %d, want 2", imported.FirstKnownIndex())
	}
	if _, _, err := imported.Decrypt(messages[1]); !errors.Is(err, ErrUnknownIndex) {
		t.Errorf("Decrypt before export index error = %v, want ErrUnknownIndex", err)
	}
	plaintext, _, err := imported.Decrypt(messages[4])
	if err != nil || string(plaintext) != "message 4" {
		t.Errorf("Decrypt after import = %q, %v", plaintext, err)
	}

	if _, err := imported.Export(0); !errors.Is(err, ErrUnknownIndex) {
		t.Errorf("Export before first index error = %v, want ErrUnknownIndex", err)
	}
	if _, err := ImportInboundSession(outbound.SessionKey()); !errors.Is(err, ErrBadSessionKey) {
		t.Errorf("importing a v2 session key as an export error = %v, want ErrBadSessionKey", err)
	}
}

func TestPickle(t *testing.T) {
	t.Parallel()
	outbound := newTestOutbound(t)
	inbound := newTestInbound(t, outbound)
	encrypt(t, outbound, "one")

	pickled, err := outbound.Pickle()
	if err != nil {
		t.Fatalf("Pickle: %v", err)
	}
	restored, err := UnpickleOutboundSession(pickled)
	if err != nil {
		t.Fatalf("UnpickleOutboundSession: %v", err)
	}
	if restored.SessionID() != outbound.SessionID() {
		t.Errorf("restored SessionID = %q, want %q", restored.SessionID(), outbound.SessionID())
	}
	if restored.MessageIndex() != 1 {
		t.Errorf("restored MessageIndex = %d, want 1", restored.MessageIndex())
	}

	plaintext, index, err := inbound.Decrypt(encrypt(t, restored, "two"))
	if err != nil || string(plaintext) != "two" || index != 1 {
		t.Errorf("Decrypt after unpickle = %q at %d, %v", plaintext, index, err)
	}

	if _, err := UnpickleOutboundSession([]byte{0xa0}); err == nil {
		t.Error("UnpickleOutboundSession of an empty map succeeded")
	}
}
