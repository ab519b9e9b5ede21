// Copyright 2024 The salloc Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package salloc

import "unsafe"

// coalesce merges the just-freed, not-yet-listed block b with whichever of
// its neighbors are also free, restoring the no-adjacent-free-blocks
// invariant, and inserts the (possibly grown) result into the segregated
// index. It returns the resulting block's address, which may differ from b
// if the left neighbor absorbed it.
//
// Both neighbor tags are read before any mutation, exactly once, since
// marking b's own neighbors free below changes what nextHeader/prevFooter
// would report if read again mid-way through.
func (a *Allocator) coalesce(b unsafe.Pointer) unsafe.Pointer {
	prevUsed := prevFooter(b).used()
	nextUsed := nextHeader(b).used()
	words := header(b).words()

	switch {
	case prevUsed && nextUsed:
		a.free.insert(b, words)
		return b

	case prevUsed && !nextUsed:
		nb := nextBlk(b)
		remove(nodeOf(nb))
		words += header(nb).words()
		markFree(b, words)
		a.free.insert(b, words)
		return b

	case !prevUsed && nextUsed:
		pb := prevBlk(b)
		remove(nodeOf(pb))
		words += header(pb).words()
		markFree(pb, words)
		a.free.insert(pb, words)
		return pb

	default: // free, free
		pb := prevBlk(b)
		nb := nextBlk(b)
		remove(nodeOf(pb))
		remove(nodeOf(nb))
		words += header(pb).words() + header(nb).words()
		markFree(pb, words)
		a.free.insert(pb, words)
		return pb
	}
}
