// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package megolm

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// macLength is the truncated HMAC-SHA256 length carried in messages.
const macLength = 8

// hkdfInfoMessageKeys separates message key derivation from any other
// use of the ratchet state.
var hkdfInfoMessageKeys = []byte("MEGOLM_KEYS")

type messageKeys struct {
	aesKey  [32]byte
	hmacKey [32]byte
	iv      [aes.BlockSize]byte
}

// deriveMessageKeys expands the ratchet state into the AES-256 key,
// HMAC key, and CBC IV for one message.
func deriveMessageKeys(state *ratchet) (*messageKeys, error) {
	reader := hkdf.New(sha256.New, state.data[:], nil, hkdfInfoMessageKeys)
	var keys messageKeys
	for _, destination := range [][]byte{keys.aesKey[:], keys.hmacKey[:], keys.iv[:]} {
		if _, err := io.ReadFull(reader, destination); err != nil {
			return nil, fmt.Errorf("deriving megolm message keys: %w", err)
		}
	}
	return &keys, nil
}

func (k *messageKeys) encrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(k.aesKey[:])
	if err != nil {
		return nil, fmt.Errorf("creating AES cipher: %w", err)
	}
	padding := aes.BlockSize - len(plaintext)%aes.BlockSize
	padded := make([]byte, len(plaintext)+padding)
	copy(padded, plaintext)
	copy(padded[len(plaintext):], bytes.Repeat([]byte{byte(padding)}, padding))

	cipher.NewCBCEncrypter(block, k.iv[:]).CryptBlocks(padded, padded)
	return padded, nil
}

func (k *messageKeys) decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("ciphertext length %d is not a positive multiple of the block size: %w",
			len(ciphertext), ErrBadMessage)
	}
	block, err := aes.NewCipher(k.aesKey[:])
	if err != nil {
		return nil, fmt.Errorf("creating AES cipher: %w", err)
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, k.iv[:]).CryptBlocks(plaintext, ciphertext)

	padding := int(plaintext[len(plaintext)-1])
	if padding == 0 || padding > aes.BlockSize || padding > len(plaintext) {
		return nil, fmt.Errorf("invalid padding: %w", ErrBadMessage)
	}
	for _, b := range plaintext[len(plaintext)-padding:] {
		if int(b) != padding {
			return nil, fmt.Errorf("invalid padding: %w", ErrBadMessage)
		}
	}
	return plaintext[:len(plaintext)-padding], nil
}

// mac returns the truncated HMAC of data.
func (k *messageKeys) mac(data []byte) []byte {
	mac := hmac.New(sha256.New, k.hmacKey[:])
	mac.Write(data)
	return mac.Sum(nil)[:macLength]
}
