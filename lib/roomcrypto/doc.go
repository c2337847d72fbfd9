// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package roomcrypto encrypts outgoing room events with Megolm,
// rotating and distributing outbound sessions as room membership and
// usage change.
//
// [Encryptor] keeps one live outbound session per room. On every
// [Encryptor.Encrypt] it:
//
//  1. asks the [MembershipProvider] for the room's current devices;
//  2. replaces the session if there is none, if it was shared with a
//     device no longer in the room, or if it has reached its
//     [RotationPolicy] limits;
//  3. sends the session key to every current device that does not yet
//     hold it, through the [KeyDistributor];
//  4. encrypts the event and counts the use.
//
// Encryption in one room is serialized; different rooms proceed in
// parallel. Share bookkeeping is delegated to lib/outbound and the
// ratchet to lib/megolm.
package roomcrypto
