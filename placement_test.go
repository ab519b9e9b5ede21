// Copyright 2024 The salloc Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package salloc

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// soleFreeBlock returns the single free block a freshly initialized
// Allocator's heap starts with, and its size in words.
func soleFreeBlock(t *testing.T, a *Allocator) (unsafe.Pointer, int) {
	t.Helper()
	require.NoError(t, a.ensureInit())
	blocks := a.blocksSnapshot()
	require.Len(t, blocks, 1)
	require.False(t, blocks[0].used)
	b := wordAt(a.region.heapLo(), 1)
	return b, header(b).words()
}

// TestPlace_SplitsWhenRemainderIsAtLeastMinWords exercises place's split
// branch directly: carving off fewer words than the free block holds, with
// enough left over to form a legal remainder, must produce a free block at
// the low address and a used block at the high address.
func TestPlace_SplitsWhenRemainderIsAtLeastMinWords(t *testing.T) {
	var a Allocator
	b, total := soleFreeBlock(t, &a)
	require.GreaterOrEqual(t, total-minWords, minWords, "fixture block too small to exercise a split")

	want := minWords // leaves exactly total-minWords words, >= minWords, as remainder
	used := a.place(b, want)

	assert.Equal(t, wordAt(b, total-want), used, "used block must land at the high end of the original block")
	assert.True(t, header(used).used())
	assert.Equal(t, want, header(used).words())

	assert.False(t, header(b).used(), "remainder must stay at the original (low) address")
	assert.Equal(t, total-want, header(b).words())
	assert.Equal(t, *header(b), *footer(b, total-want))

	n := a.free.findFit(total - want)
	assert.Equal(t, b, n, "split remainder must be reinserted into the free index under its new size")
}

// TestPlace_UsesWholeBlockWhenRemainderWouldBeTooSmall exercises place's
// no-split branch: requesting (close to) the entire free block leaves no
// room for a legal remainder, so the whole block is marked used and
// returned unchanged in address and size.
func TestPlace_UsesWholeBlockWhenRemainderWouldBeTooSmall(t *testing.T) {
	var a Allocator
	b, total := soleFreeBlock(t, &a)

	used := a.place(b, total)

	assert.Equal(t, b, used, "whole-block placement must return the original address")
	assert.True(t, header(used).used())
	assert.Equal(t, total, header(used).words())
	assert.Equal(t, *header(used), *footer(used, total))
}

// TestPlace_AlwaysUnlistsFirst verifies place removes b from its free list
// before doing anything else. Using the whole-block branch keeps this
// observable: nothing reinserts a node at b's address afterward, so the
// unlink set up by remove must still hold once place returns.
func TestPlace_AlwaysUnlistsFirst(t *testing.T) {
	var a Allocator
	b, total := soleFreeBlock(t, &a)

	n := nodeOf(b)
	a.place(b, total)

	assert.Nil(t, n.prev, "original node must be unlinked from its bucket")
	assert.Nil(t, n.next)
}
