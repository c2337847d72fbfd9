// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package megolm implements the Megolm group ratchet used to encrypt
// Matrix room messages (algorithm m.megolm.v1.aes-sha2).
//
// A sender holds an [OutboundSession]: a four-part hash ratchet plus an
// Ed25519 signing key. Each message is encrypted with keys derived
// from the current ratchet state, then the ratchet advances, so a
// recipient that learns the state at index i can decrypt messages i
// and later but never earlier ones. The session key exported by
// [OutboundSession.SessionKey] carries the ratchet state at the
// current index and is distributed to each recipient device over a
// pairwise channel.
//
// A recipient holds an [InboundSession] created from that key.
// [InboundSession.Decrypt] verifies the message signature, advances a
// copy of the ratchet to the message's index, checks the MAC, and
// decrypts.
//
// Wire formats:
//
//	session key (v2): 0x02 | counter u32be | ratchet 128B | public key 32B | signature 64B
//	exported key (v1): 0x01 | counter u32be | ratchet 128B | public key 32B
//	message (v3):     0x03 | protobuf{1: index varint, 2: ciphertext bytes} | mac 8B | signature 64B
//
// All three are carried as unpadded standard base64.
//
// The session ID is the unpadded base64 of the Ed25519 public key.
package megolm
