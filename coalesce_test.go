// Copyright 2024 The salloc Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package salloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCoalesce_UsedUsed frees a block with both neighbors allocated: the
// freed block is listed as-is, at its own address, with no growth.
func TestCoalesce_UsedUsed(t *testing.T) {
	var a Allocator
	_, err := a.Malloc(32) // right neighbor (place carves from the high end), stays allocated
	require.NoError(t, err)
	p, err := a.Malloc(32)
	require.NoError(t, err)
	_, err = a.Malloc(32) // left neighbor, stays allocated
	require.NoError(t, err)

	b := blockOf(p)
	words := header(b).words()
	a.Free(p)

	assert.False(t, header(b).used())
	assert.Equal(t, words, header(b).words(), "used/used coalesce must not change the block's size")
	assert.NoError(t, a.Check())
}

// TestCoalesce_UsedFree frees a block whose right neighbor is already free:
// the two must merge into one block at the freed block's own address.
func TestCoalesce_UsedFree(t *testing.T) {
	var a Allocator
	q, err := a.Malloc(32) // right neighbor of p
	require.NoError(t, err)
	p, err := a.Malloc(32)
	require.NoError(t, err)
	_, err = a.Malloc(32) // left neighbor of p, stays allocated
	require.NoError(t, err)

	a.Free(q) // right neighbor of p is now free
	pWords := header(blockOf(p)).words()
	qWords := header(blockOf(q)).words()

	a.Free(p)

	b := blockOf(p)
	assert.False(t, header(b).used())
	assert.Equal(t, pWords+qWords, header(b).words(), "used/free coalesce must absorb the right neighbor")
	assert.NoError(t, a.Check())
}

// TestCoalesce_FreeUsed frees a block whose left neighbor is already free:
// the merged block's address must be the left neighbor's, not the freed
// block's own.
func TestCoalesce_FreeUsed(t *testing.T) {
	var a Allocator
	_, err := a.Malloc(32) // right neighbor of q, stays allocated
	require.NoError(t, err)
	q, err := a.Malloc(32)
	require.NoError(t, err)
	p, err := a.Malloc(32) // left neighbor of q
	require.NoError(t, err)
	_, err = a.Malloc(32) // left neighbor of p, stays allocated
	require.NoError(t, err)

	pAddr := blockOf(p)
	pWords := header(pAddr).words()
	a.Free(p) // left neighbor of q is now free
	qWords := header(blockOf(q)).words()

	a.Free(q)

	// free remainder, left guard, merged p+q, right neighbor
	blocks := a.blocksSnapshot()
	require.Len(t, blocks, 4)
	assert.False(t, header(pAddr).used())
	assert.Equal(t, pWords+qWords, header(pAddr).words(), "free/used coalesce must absorb into the left neighbor")
	assert.NoError(t, a.Check())
}

// TestCoalesce_FreeFree frees a block with both neighbors already free: all
// three must merge into a single block anchored at the left neighbor.
func TestCoalesce_FreeFree(t *testing.T) {
	var a Allocator
	r, err := a.Malloc(32) // right neighbor of q
	require.NoError(t, err)
	q, err := a.Malloc(32)
	require.NoError(t, err)
	p, err := a.Malloc(32) // left neighbor of q
	require.NoError(t, err)
	_, err = a.Malloc(32) // left neighbor of p, stays allocated
	require.NoError(t, err)

	pAddr := blockOf(p)
	pWords := header(pAddr).words()
	a.Free(p)
	qWords := header(blockOf(q)).words()
	a.Free(r)
	rWords := header(blockOf(r)).words()

	a.Free(q) // both neighbors of q are now free

	// free remainder, left guard, merged p+q+r
	blocks := a.blocksSnapshot()
	require.Len(t, blocks, 3)
	assert.False(t, header(pAddr).used())
	assert.Equal(t, pWords+qWords+rWords, header(pAddr).words(), "free/free coalesce must absorb both neighbors")
	assert.NoError(t, a.Check())
}
