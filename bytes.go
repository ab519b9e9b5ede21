// Copyright 2024 The salloc Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package salloc

import "unsafe"

// MallocBytes is like Malloc except it returns a []byte view of the
// allocated memory instead of an unsafe.Pointer, in the manner of
// cznic/memory's Malloc/UnsafeMalloc pairing. The slice must not outlive a
// Free/ReallocBytes of its backing block, and appending to it may silently
// reallocate onto unmanaged memory that Free cannot recognize — same
// caveat as cznic/memory's Malloc.
func (a *Allocator) MallocBytes(size int) ([]byte, error) {
	p, err := a.Malloc(size)
	if err != nil || p == nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(p), size), nil
}

// FreeBytes is like Free except its argument must have been returned by
// MallocBytes or ReallocBytes.
func (a *Allocator) FreeBytes(b []byte) {
	if len(b) == 0 {
		return
	}
	a.Free(unsafe.Pointer(&b[0]))
}

// ReallocBytes is like Realloc except its argument and return value are
// []byte views, as with MallocBytes.
func (a *Allocator) ReallocBytes(b []byte, size int) ([]byte, error) {
	var p unsafe.Pointer
	if len(b) != 0 {
		p = unsafe.Pointer(&b[0])
	}
	np, err := a.Realloc(p, size)
	if err != nil || np == nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(np), size), nil
}
