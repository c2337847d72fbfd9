// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package megolm

import (
	"crypto/hmac"
	"crypto/sha256"
)

const (
	ratchetParts      = 4
	ratchetPartLength = sha256.Size
	ratchetLength     = ratchetParts * ratchetPartLength
)

// ratchet is the Megolm hash ratchet R(0)..R(3) at counter i. R(0)
// changes every 2^24 steps, R(1) every 2^16, R(2) every 2^8, and R(3)
// on every step. Rekeying R(j) reseeds R(j+1)..R(3) from it.
type ratchet struct {
	data    [ratchetLength]byte
	counter uint32
}

func (r *ratchet) part(index int) []byte {
	return r.data[index*ratchetPartLength : (index+1)*ratchetPartLength]
}

// rehash sets R(to) = HMAC-SHA256(R(from), to).
func (r *ratchet) rehash(from, to int) {
	mac := hmac.New(sha256.New, r.part(from))
	mac.Write([]byte{byte(to)})
	copy(r.part(to), mac.Sum(nil))
}

// advance steps the ratchet by one.
func (r *ratchet) advance() {
	r.counter++

	// Find the most significant part whose byte of the counter rolled
	// over.
	mask := uint32(0x00FFFFFF)
	h := 0
	for h < ratchetParts {
		if r.counter&mask == 0 {
			break
		}
		h++
		mask >>= 8
	}

	// R(h) must be rehashed last since it keys the others.
	for i := ratchetParts - 1; i >= h; i-- {
		r.rehash(h, i)
	}
}

// advanceTo moves the ratchet forward to target in at most
// 4 * 255 rehashes. A target below the current counter wraps around
// the 32-bit counter space.
func (r *ratchet) advanceTo(target uint32) {
	for j := 0; j < ratchetParts; j++ {
		shift := uint((ratchetParts - j - 1) * 8)
		mask := ^uint32(0) << shift

		steps := ((target >> shift) - (r.counter >> shift)) & 0xff
		if steps == 0 {
			// The byte already matches, but a lower byte may still need
			// to wrap all the way round.
			if target < r.counter {
				steps = 0x100
			} else {
				continue
			}
		}

		// All but the last step only bump R(j).
		for ; steps > 1; steps-- {
			r.rehash(j, j)
		}
		// The last step also reseeds R(j+1)..R(3).
		for k := ratchetParts - 1; k >= j; k-- {
			r.rehash(j, k)
		}
		r.counter = target & mask
	}
}
