// Copyright 2024 The salloc Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package salloc

import "unsafe"

// place carves a block of exactly words words out of the free block b
// (found by segList.findFit, still listed at this point) and returns the
// block whose payload should be handed back to the caller.
//
// When the leftover is at least minWords, b is split: the free remainder is
// kept at the low address and reinserted into whichever bucket its new,
// smaller size maps to, and the high end of the block is marked used and
// returned. b is always removed from its current bucket first — even when
// it is only being shrunk, not fully consumed — since its size (and so its
// bucket) is about to change; leaving a stale list membership behind would
// violate the "a free block is listed under the bucket matching its size"
// invariant.
func (a *Allocator) place(b unsafe.Pointer, words int) unsafe.Pointer {
	c := header(b).words()
	remove(nodeOf(b))

	if c-words >= minWords {
		markFree(b, c-words)
		a.free.insert(b, c-words)
		used := wordAt(b, c-words)
		markUsed(used, words)
		return used
	}

	markUsed(b, c)
	return b
}
