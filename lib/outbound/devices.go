// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package outbound

import (
	"cmp"
	"slices"

	"github.com/bureau-foundation/roomkeys/lib/ref"
)

// DeviceSnapshot is the set of devices, grouped by user, that are
// currently members of a room for encryption purposes.
type DeviceSnapshot map[ref.UserID]map[ref.DeviceID]struct{}

// Add records a device, creating the user's entry if needed.
func (snapshot DeviceSnapshot) Add(userID ref.UserID, deviceIDs ...ref.DeviceID) {
	devices, ok := snapshot[userID]
	if !ok {
		devices = make(map[ref.DeviceID]struct{}, len(deviceIDs))
		snapshot[userID] = devices
	}
	for _, deviceID := range deviceIDs {
		devices[deviceID] = struct{}{}
	}
}

// HasUser reports whether the user has an entry, even one with no
// devices.
func (snapshot DeviceSnapshot) HasUser(userID ref.UserID) bool {
	_, ok := snapshot[userID]
	return ok
}

// Has reports whether the device is present under the user.
func (snapshot DeviceSnapshot) Has(userID ref.UserID, deviceID ref.DeviceID) bool {
	_, ok := snapshot[userID][deviceID]
	return ok
}

// Len returns the total number of devices across all users.
func (snapshot DeviceSnapshot) Len() int {
	total := 0
	for _, devices := range snapshot {
		total += len(devices)
	}
	return total
}

// DeviceKey names one device of one user.
type DeviceKey struct {
	UserID   ref.UserID
	DeviceID ref.DeviceID
}

// Devices returns every device in the snapshot, sorted by user then
// device for stable output.
func (snapshot DeviceSnapshot) Devices() []DeviceKey {
	keys := make([]DeviceKey, 0, snapshot.Len())
	for userID, devices := range snapshot {
		for deviceID := range devices {
			keys = append(keys, DeviceKey{UserID: userID, DeviceID: deviceID})
		}
	}
	sortDeviceKeys(keys)
	return keys
}

func sortDeviceKeys(keys []DeviceKey) {
	slices.SortFunc(keys, func(a, b DeviceKey) int {
		return cmp.Or(
			cmp.Compare(a.UserID.String(), b.UserID.String()),
			cmp.Compare(a.DeviceID.String(), b.DeviceID.String()),
		)
	})
}
