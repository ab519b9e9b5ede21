// Copyright 2024 The salloc Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package salloc

import (
	"fmt"
	"unsafe"
)

// defaultArenaBytes is the virtual address space reserved for a region on
// first use, when the caller did not configure a different cap via
// WithMaxHeap. Reserving it costs address space, not RAM: the backing pages
// are anonymous and demand-paged, so only the bytes actually sbrk'd into use
// are ever touched.
const defaultArenaBytes = 1 << 28 // 256 MiB

// region is the Region Provider external collaborator: it exposes a single,
// contiguous, growing heap arena in the manner of a host sbrk/brk brick
// allocator. sbrk never moves previously vended bytes and never shrinks; the
// region has no notion of giving memory back to the OS, matching the
// allocator's own "heap only grows" Non-goal.
type region struct {
	arena []byte // reserved backing store, mmap'd lazily
	brk   int    // bytes committed so far, 0 <= brk <= len(arena)
	max   int    // reservation size requested for this region
}

func (r *region) reserve() error {
	if r.arena != nil {
		return nil
	}
	max := r.max
	if max <= 0 {
		max = defaultArenaBytes
	}
	b, err := mmap(max)
	if err != nil {
		return fmt.Errorf("salloc: reserving %d byte heap arena: %w", max, err)
	}
	r.arena = b
	return nil
}

// sbrk commits n more bytes contiguous with the previous call's result and
// returns a pointer to their first byte. It fails once the region's
// reservation is exhausted; the caller (extendHeap) surfaces this as OOM.
func (r *region) sbrk(n int) (unsafe.Pointer, error) {
	if err := r.reserve(); err != nil {
		return nil, err
	}
	if n < 0 {
		panic("salloc: negative sbrk request")
	}
	if r.brk+n > len(r.arena) {
		return nil, fmt.Errorf("salloc: heap exhausted: %d of %d bytes committed, %d requested", r.brk, len(r.arena), n)
	}
	p := unsafe.Pointer(&r.arena[r.brk])
	r.brk += n
	return p, nil
}

// heapLo returns the first committed byte of the region, or nil if sbrk has
// never been called.
func (r *region) heapLo() unsafe.Pointer {
	if r.brk == 0 {
		return nil
	}
	return unsafe.Pointer(&r.arena[0])
}

// heapHi returns the last committed byte of the region, or nil if sbrk has
// never been called.
func (r *region) heapHi() unsafe.Pointer {
	if r.brk == 0 {
		return nil
	}
	return unsafe.Pointer(&r.arena[r.brk-1])
}

// close releases the region's reservation back to the OS. It exists for
// tests and long-lived processes that want to recycle an Allocator's
// address space; it is not part of the allocator's public contract (there
// is no teardown in spec terms) and must not be called while any payload
// handed out by the Allocator is still in use.
func (r *region) close() error {
	if r.arena == nil {
		return nil
	}
	err := unmap(r.arena)
	*r = region{}
	return err
}
