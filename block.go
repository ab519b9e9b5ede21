// Copyright 2024 The salloc Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package salloc

import "unsafe"

const (
	wordBytes  = 4 // a word, the allocator's internal unit of size
	dwordBytes = 8 // alignment granularity for payloads
	minWords   = 4 // MIN: smallest legal block, in words
)

// tag is a boundary tag: the low bit carries inuse, the remaining 31 bits
// carry the block size in words (header and footer included). Go has no
// C-style bitfields, so the packing is explicit here instead of left to the
// compiler; the invariant that bit 0 is the allocation status is the part
// spec.md requires external readers of the heap to be able to rely on.
type tag uint32

func packTag(words int, used bool) tag {
	t := tag(words) << 1
	if used {
		t |= 1
	}
	return t
}

func (t tag) used() bool { return t&1 != 0 }
func (t tag) words() int { return int(t >> 1) }

// fenceTag is the sentinel boundary tag placed at both ends of the heap:
// inuse=1, size=0. Its inuse bit is what stops coalesce from ever walking
// past the ends of the heap; it is never rewritten in place, only
// overwritten wholesale when extendHeap grows the heap past it.
const fenceTag = tag(1)

func isFence(t tag) bool { return t == fenceTag }

// wordAt returns the address n words away from p. n may be negative. This
// is the one arithmetic primitive every other accessor in this file is
// built from; p always points into the region's mmap'd arena, which the Go
// garbage collector never moves, so converting through uintptr here is
// sound (see the unsafe.Pointer package docs, case 3).
func wordAt(p unsafe.Pointer, n int) unsafe.Pointer {
	return unsafe.Pointer(uintptr(p) + uintptr(n*wordBytes))
}

// header returns the boundary tag at the start of the block at b.
func header(b unsafe.Pointer) *tag { return (*tag)(b) }

// footer returns the boundary tag at the end of a block of the given size.
func footer(b unsafe.Pointer, words int) *tag { return (*tag)(wordAt(b, words-1)) }

// prevFooter returns the boundary tag of whatever immediately precedes b:
// either a real block's footer or the opening FENCE. Well-defined even for
// the leftmost real block, since the heap always begins with a FENCE.
func prevFooter(b unsafe.Pointer) *tag { return (*tag)(wordAt(b, -1)) }

// nextHeader returns the boundary tag of whatever immediately follows b:
// either a real block's header or the epilogue FENCE. Well-defined even for
// the rightmost real block.
func nextHeader(b unsafe.Pointer) *tag {
	return (*tag)(wordAt(b, header(b).words()))
}

// prevBlk returns the block immediately preceding b. The caller must know
// that block is a real (non-FENCE) block; calling this when prevFooter(b)
// is the opening FENCE is a usage bug, which this function reports by
// panicking; coalesce only calls it after the inuse bit has been checked.
func prevBlk(b unsafe.Pointer) unsafe.Pointer {
	pf := prevFooter(b)
	if pf.words() == 0 {
		panic("salloc: prevBlk called at the left edge of the heap")
	}
	return wordAt(b, -pf.words())
}

// nextBlk returns the block immediately following b. The caller must know
// b is not itself the epilogue FENCE (size 0).
func nextBlk(b unsafe.Pointer) unsafe.Pointer {
	w := header(b).words()
	if w == 0 {
		panic("salloc: nextBlk called on a zero-size block")
	}
	return wordAt(b, w)
}

// markUsed writes an inuse boundary tag of the given size to both the
// header and footer of the block at b.
func markUsed(b unsafe.Pointer, words int) {
	t := packTag(words, true)
	*header(b) = t
	*footer(b, words) = t
}

// markFree writes a free boundary tag of the given size to both the header
// and footer of the block at b.
func markFree(b unsafe.Pointer, words int) {
	t := packTag(words, false)
	*header(b) = t
	*footer(b, words) = t
}

// payload returns the address of the payload inside an allocated block, or
// equivalently the address of the list node inside a free one — both sit
// one word past the header.
func payload(b unsafe.Pointer) unsafe.Pointer { return wordAt(b, 1) }

// blockOf recovers a block's base address from a payload (or free-list
// node) pointer returned by payload.
func blockOf(p unsafe.Pointer) unsafe.Pointer { return wordAt(p, -1) }

// nodeOf returns the free-list node embedded in the block at b.
func nodeOf(b unsafe.Pointer) *node { return (*node)(payload(b)) }

// blockOfNode is the inverse of nodeOf.
func blockOfNode(n *node) unsafe.Pointer { return blockOf(unsafe.Pointer(n)) }
