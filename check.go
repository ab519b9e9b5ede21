// Copyright 2024 The salloc Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package salloc

import (
	"fmt"
	"unsafe"
)

// Check walks the heap and the segregated free lists, running four
// independent consistency sweeps, and returns the first violation found, or
// nil if the heap is consistent. It does not attempt repair. Check is O(n)
// in the number of blocks plus free-list entries and is meant for tests and
// debug builds, not the hot allocation path.
func (a *Allocator) Check() error {
	if !a.free.initialized() {
		return nil
	}
	if err := a.checkFreeListMarkedFree(); err != nil {
		return err
	}
	if err := a.checkNoMissedCoalesce(); err != nil {
		return err
	}
	if err := a.checkFreeBlockIsListed(); err != nil {
		return err
	}
	return a.checkHeapIsContiguous()
}

// checkFreeListMarkedFree verifies every block reachable through any
// segregated list reports inuse == false.
func (a *Allocator) checkFreeListMarkedFree() error {
	for k := 0; k < nLists; k++ {
		l := &a.free.lists[k]
		for e := l.begin(); e != l.end(); e = next(e) {
			if header(blockOfNode(e)).used() {
				return fmt.Errorf("salloc: check: block in free list %d is marked used", k)
			}
		}
	}
	return nil
}

// checkNoMissedCoalesce verifies that for every listed free block, both
// neighbor tags report inuse == true — i.e. no two adjacent free blocks
// escaped coalescing.
func (a *Allocator) checkNoMissedCoalesce() error {
	for k := 0; k < nLists; k++ {
		l := &a.free.lists[k]
		for e := l.begin(); e != l.end(); e = next(e) {
			b := blockOfNode(e)
			if !prevFooter(b).used() || !nextHeader(b).used() {
				return fmt.Errorf("salloc: check: adjacent free blocks escaped coalescing near %p", b)
			}
		}
	}
	return nil
}

// checkFreeBlockIsListed walks the heap linearly from the opening FENCE to
// the epilogue and verifies every inuse == false block has non-nil
// list-linkage pointers.
func (a *Allocator) checkFreeBlockIsListed() error {
	return a.walk(func(b unsafe.Pointer) error {
		if header(b).used() {
			return nil
		}
		n := nodeOf(b)
		if n.prev == nil || n.next == nil {
			return fmt.Errorf("salloc: check: free block at %p is missing list linkage", b)
		}
		return nil
	})
}

// checkHeapIsContiguous walks the heap linearly and verifies the blocks
// tile it exactly: every block is within the committed region, every block
// is at least minWords, and the walk lands exactly on the epilogue FENCE
// with no gap or overrun.
func (a *Allocator) checkHeapIsContiguous() error {
	lo := uintptr(a.region.heapLo())
	hi := uintptr(a.region.heapHi())
	end := wordAt(a.region.heapLo(), 1)
	err := a.walk(func(b unsafe.Pointer) error {
		addr := uintptr(b)
		if addr < lo || addr > hi {
			return fmt.Errorf("salloc: check: block at %p is outside the heap [%#x, %#x]", b, lo, hi)
		}
		if w := header(b).words(); w < minWords {
			return fmt.Errorf("salloc: check: block at %p has size %d words, below minimum %d", b, w, minWords)
		}
		end = nextBlk(b)
		return nil
	})
	if err != nil {
		return err
	}
	if epilogue := unsafe.Pointer(&a.region.arena[a.region.brk-wordBytes]); end != epilogue {
		return fmt.Errorf("salloc: check: heap walk stopped at %p, not at the epilogue FENCE %p", end, epilogue)
	}
	return nil
}

// walk calls f for every real block between the opening and closing
// FENCEs, in address order, stopping at (and not visiting) the epilogue.
func (a *Allocator) walk(f func(unsafe.Pointer) error) error {
	b := wordAt(a.region.heapLo(), 1)
	for !isFence(*header(b)) {
		if err := f(b); err != nil {
			return err
		}
		b = nextBlk(b)
	}
	return nil
}
