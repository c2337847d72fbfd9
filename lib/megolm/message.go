// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package megolm

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"
)

const messageVersion = 3

// Protobuf field numbers of the message body.
const (
	fieldMessageIndex protowire.Number = 1
	fieldCiphertext   protowire.Number = 2
)

var (
	// ErrBadMessage reports a message that cannot be parsed or whose
	// MAC does not verify.
	ErrBadMessage = errors.New("malformed megolm message")

	// ErrBadSignature reports a message or session key whose Ed25519
	// signature does not verify.
	ErrBadSignature = errors.New("bad megolm signature")

	// ErrUnknownIndex reports a message older than the first index an
	// inbound session holds keys for.
	ErrUnknownIndex = errors.New("unknown megolm message index")

	// ErrBadSessionKey reports a session key that cannot be parsed.
	ErrBadSessionKey = errors.New("malformed megolm session key")
)

// encodeBase64 uses the unpadded standard alphabet.
func encodeBase64(data []byte) string {
	return base64.RawStdEncoding.EncodeToString(data)
}

// decodeBase64 accepts padded and unpadded input.
func decodeBase64(text string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(text, "="))
}

// message is a parsed v3 group message.
type message struct {
	index      uint32
	ciphertext []byte

	// authenticated is everything the MAC covers; signed is everything
	// the signature covers.
	authenticated []byte
	signed        []byte
	mac           []byte
	signature     []byte
}

// appendMessageBody writes the version byte and protobuf body.
func appendMessageBody(buffer []byte, index uint32, ciphertext []byte) []byte {
	buffer = append(buffer, messageVersion)
	buffer = protowire.AppendTag(buffer, fieldMessageIndex, protowire.VarintType)
	buffer = protowire.AppendVarint(buffer, uint64(index))
	buffer = protowire.AppendTag(buffer, fieldCiphertext, protowire.BytesType)
	buffer = protowire.AppendBytes(buffer, ciphertext)
	return buffer
}

// parseMessage splits a raw message into its parts. It does not verify
// the MAC or signature.
func parseMessage(raw []byte) (*message, error) {
	if len(raw) < 1+macLength+ed25519.SignatureSize {
		return nil, fmt.Errorf("message of %d bytes is too short: %w", len(raw), ErrBadMessage)
	}
	if raw[0] != messageVersion {
		return nil, fmt.Errorf("message version %d, want %d: %w", raw[0], messageVersion, ErrBadMessage)
	}

	signatureStart := len(raw) - ed25519.SignatureSize
	macStart := signatureStart - macLength
	parsed := &message{
		authenticated: raw[:macStart],
		signed:        raw[:signatureStart],
		mac:           raw[macStart:signatureStart],
		signature:     raw[signatureStart:],
	}

	var haveIndex, haveCiphertext bool
	body := raw[1:macStart]
	for len(body) > 0 {
		number, wireType, n := protowire.ConsumeTag(body)
		if n < 0 {
			return nil, fmt.Errorf("message body: %v: %w", protowire.ParseError(n), ErrBadMessage)
		}
		body = body[n:]

		switch {
		case number == fieldMessageIndex && wireType == protowire.VarintType:
			value, n := protowire.ConsumeVarint(body)
			if n < 0 {
				return nil, fmt.Errorf("message index: %v: %w", protowire.ParseError(n), ErrBadMessage)
			}
			if value > math.MaxUint32 {
				return nil, fmt.Errorf("message index %d overflows: %w", value, ErrBadMessage)
			}
			parsed.index = uint32(value)
			haveIndex = true
			body = body[n:]
		case number == fieldCiphertext && wireType == protowire.BytesType:
			value, n := protowire.ConsumeBytes(body)
			if n < 0 {
				return nil, fmt.Errorf("ciphertext: %v: %w", protowire.ParseError(n), ErrBadMessage)
			}
			parsed.ciphertext = value
			haveCiphertext = true
			body = body[n:]
		default:
			// Unknown fields are skipped for forward compatibility.
			n := protowire.ConsumeFieldValue(number, wireType, body)
			if n < 0 {
				return nil, fmt.Errorf("field %d: %v: %w", number, protowire.ParseError(n), ErrBadMessage)
			}
			body = body[n:]
		}
	}

	if !haveIndex || !haveCiphertext {
		return nil, fmt.Errorf("message lacks index or ciphertext: %w", ErrBadMessage)
	}
	return parsed, nil
}

// MessageIndex extracts the ratchet index from a base64 message
// without decrypting it.
func MessageIndex(encoded string) (uint32, error) {
	raw, err := decodeBase64(encoded)
	if err != nil {
		return 0, fmt.Errorf("decoding message: %v: %w", err, ErrBadMessage)
	}
	parsed, err := parseMessage(raw)
	if err != nil {
		return 0, err
	}
	return parsed.index, nil
}
