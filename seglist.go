// Copyright 2024 The salloc Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package salloc

import (
	"unsafe"

	"github.com/cznic/mathutil"
)

// nLists is NLISTS: list k holds free blocks with word-size in
// [2^k, 2^(k+1)); the top list absorbs everything larger.
const nLists = 20

// segList is the segregated free-list index: one bucket per power-of-two
// size class, each bucket itself size-ordered so that first-fit within a
// bucket approximates best-fit across the whole heap.
type segList struct {
	lists [nLists]list
}

func (s *segList) init() {
	for i := range s.lists {
		s.lists[i].init()
	}
}

// initialized reports whether init has run. Mirrors the teacher's own
// "zeroed sentinel" lazy-init probe: a fresh segList's bucket 0 has a zero
// list, whose head.next is nil.
func (s *segList) initialized() bool { return s.lists[0].head.next != nil }

// bucket returns the largest k < nLists with 2^k <= words. mathutil.BitLen
// reports the number of bits needed to represent words (so BitLen(words)-1
// is the position of its highest set bit), the same call shape the teacher
// uses to size-class its own allocations.
func bucket(words int) int {
	k := mathutil.BitLen(words) - 1
	if k < 0 {
		k = 0
	}
	if k > nLists-1 {
		k = nLists - 1
	}
	return k
}

// insert adds the free block b (of the given word size) into its bucket, in
// non-decreasing size order: pushed to the front of an empty bucket,
// otherwise spliced in just before the first element whose size is >= b's,
// so a front-to-back scan finds the tightest fit first.
func (s *segList) insert(b unsafe.Pointer, words int) {
	l := &s.lists[bucket(words)]
	n := nodeOf(b)
	if l.empty() {
		l.pushFront(n)
		return
	}
	for e := l.begin(); e != l.end(); e = next(e) {
		if header(blockOfNode(e)).words() >= words {
			l.insertBefore(e, n)
			return
		}
	}
	l.insertBefore(l.end(), n)
}

// findFit returns the first free block with word size >= words, searching
// from bucket(words) upward through larger buckets as fallbacks, or nil if
// none exists. Because each bucket is size-ordered, the first hit within
// the starting bucket is the tightest fit available there.
func (s *segList) findFit(words int) unsafe.Pointer {
	for k := bucket(words); k < nLists; k++ {
		l := &s.lists[k]
		for e := l.begin(); e != l.end(); e = next(e) {
			b := blockOfNode(e)
			if header(b).words() >= words {
				return b
			}
		}
	}
	return nil
}
