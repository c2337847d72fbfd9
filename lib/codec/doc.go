// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the module's CBOR encoding configuration.
//
// JSON is used for everything that touches the Matrix wire format
// (events, power levels, push rules). CBOR is used for the opaque
// snapshots roomkeys hands to its embedding application: outbound
// session bookkeeping that the application stores alongside its own
// crypto state and restores on restart. The application owns the
// storage; this package only fixes the encoding.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2):
// sorted map keys, smallest integer encoding, no indefinite-length
// items. The same session state always produces identical bytes, so
// callers can skip redundant writes by comparing snapshots.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// Snapshot types use `cbor` struct tags; they are never marshaled to
// JSON.
package codec
