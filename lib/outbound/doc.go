// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package outbound tracks the lifecycle of a room's megolm outbound
// session: when it was created, how many messages it has encrypted,
// and which devices have received its key.
//
// [SessionInfo] answers the two questions a room encryptor asks before
// every outgoing message:
//
//   - NeedsRotation: has the session exceeded its message budget or
//     its lifetime? Bounding both limits how much history a single
//     leaked session key exposes.
//   - SharedWithExcessDevices: has the key been given to any device
//     that is no longer in the room? A user who left, or a device that
//     was removed, must not be able to read messages sent after the
//     change, so the session has to be replaced.
//
// SessionInfo holds no policy for what happens on a positive answer.
// Discarding the session, creating a new one, and distributing its key
// belong to the caller (see lib/roomcrypto). A session is never reset
// in place: rotation constructs a new SessionInfo with an empty share
// record and drops the old one.
//
// [DeviceSnapshot] is the set of devices currently in the room. It is
// supplied fresh by the caller's membership tracker on each check and
// never retained.
//
// # Concurrency
//
// The owning encryptor serializes writers (MarkShared,
// IncrementUseCount) per room. Readers may run concurrently with each
// other and with a writer; an internal RWMutex ensures every read
// observes a consistent use count, creation time, and share record.
package outbound
