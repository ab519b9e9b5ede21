// Copyright 2024 The salloc Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package salloc implements a segregated-fit dynamic memory allocator over
// a single, contiguous, growing heap arena.
//
// The allocator is single-threaded: an *Allocator carries no locking of its
// own, and concurrent calls from multiple goroutines on the same value are
// a data race, same as libc malloc without a wrapping arena lock. Callers
// that need concurrent access should serialize it themselves (a
// sync.Mutex per Allocator is the usual choice).
//
// Changelog
//
// 2024-01-01 Initial segregated-fit allocator, ported from a single-file C
// implementation to an unsafe.Pointer-based Go API in the manner of
// github.com/cznic/memory.
package salloc

import (
	"fmt"
	"os"
	"unsafe"
)

// trace gates a one-line stderr report on every mutating call. It is a
// plain build-time constant, not a logging framework, in the manner of the
// teacher package this one is modeled on: flip it to true and rebuild to
// get a call trace.
const trace = false

// chunkWords is CHUNKSIZE, the default number of words extendHeap requests
// from the region provider when no free block is large enough. The final
// revision of the source this allocator is modeled on settles on 256 words;
// earlier revisions used 1024, which this implementation does not carry
// forward.
const chunkWords = 256

// Allocator allocates and frees memory from its own private heap region.
// Its zero value is ready for use: the first Malloc or Free call triggers
// lazy initialization, same as calling Init explicitly. An Allocator value
// must not be copied after first use.
type Allocator struct {
	region region
	free   segList

	allocs int // outstanding Malloc calls not yet Free'd, for diagnostics
}

// Option configures an Allocator constructed with NewAllocator.
type Option func(*Allocator)

// Outstanding reports the number of Malloc/Realloc(-to-new-pointer) calls
// not yet balanced by a Free, for diagnostics and leak-checking tests.
func (a *Allocator) Outstanding() int { return a.allocs }

// WithMaxHeap caps the virtual address space a region reserves for this
// Allocator's heap. Exceeding it surfaces as an OOM error from Malloc or
// Realloc, exactly like running out of a real sbrk-backed heap.
func WithMaxHeap(bytes int) Option {
	return func(a *Allocator) { a.region.max = bytes }
}

// NewAllocator returns an Allocator configured by opts. It is equivalent to
// a zero-valued &Allocator{} when no options are given; it exists for
// callers who want a non-default heap cap without reaching into
// unexported fields.
func NewAllocator(opts ...Option) *Allocator {
	a := &Allocator{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Init initializes the allocator: it sets up the segregated free lists,
// lays down the opening and closing FENCE sentinels, and extends the heap
// by one chunk. It is not idempotent: calling it again on an
// already-initialized Allocator re-does all of this against the *existing*
// region, which is almost never what a caller wants — Init is normally left
// to lazy initialization inside Malloc/Free instead.
func (a *Allocator) Init() (err error) {
	if trace {
		defer func() { fmt.Fprintf(os.Stderr, "Init() %v\n", err) }()
	}
	a.free.init()

	p, err := a.region.sbrk(2 * wordBytes)
	if err != nil {
		return err
	}
	*header(p) = fenceTag      // prologue footer
	*header(wordAt(p, 1)) = fenceTag // epilogue header

	_, err = a.extendHeap(chunkWords)
	return err
}

func (a *Allocator) ensureInit() error {
	if a.free.initialized() {
		return nil
	}
	return a.Init()
}

// adjustWords turns a requested payload size in bytes into the word count
// malloc/realloc actually carve out: room for header and footer, rounded up
// to a double word, floored at minWords.
func adjustWords(size int) int {
	total := size + 2*wordBytes
	total = roundup(total, dwordBytes)
	words := total / wordBytes
	if words < minWords {
		words = minWords
	}
	return words
}

// extendHeap grows the heap by at least words words (rounded up to an even
// count, floored at minWords), overlaying the old epilogue FENCE with the
// new block's header, writing a fresh epilogue past it, and running the
// result through coalesce so an existing trailing free block absorbs it.
func (a *Allocator) extendHeap(words int) (unsafe.Pointer, error) {
	words = (words + 1) &^ 1
	if words < minWords {
		words = minWords
	}

	p, err := a.region.sbrk(words * wordBytes)
	if err != nil {
		return nil, err
	}

	b := wordAt(p, -1) // scoop up the old epilogue header
	markFree(b, words)
	*nextHeader(b) = fenceTag // new epilogue

	return a.coalesce(b), nil
}

// Malloc allocates size bytes and returns a pointer to uninitialized
// memory, or (nil, nil) for size == 0, matching spec.md's "reject 0-size
// requests silently" rule. A non-nil error means the region provider could
// not grow the heap any further.
func (a *Allocator) Malloc(size int) (r unsafe.Pointer, err error) {
	if trace {
		defer func() { fmt.Fprintf(os.Stderr, "Malloc(%#x) %p, %v\n", size, r, err) }()
	}
	if size < 0 {
		panic("salloc: negative Malloc size")
	}
	if err := a.ensureInit(); err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, nil
	}

	words := adjustWords(size)
	a.allocs++

	if b := a.free.findFit(words); b != nil {
		return payload(a.place(b, words)), nil
	}

	extend := words
	if extend < chunkWords {
		extend = chunkWords
	}
	b, err := a.extendHeap(extend)
	if err != nil {
		a.allocs--
		return nil, err
	}
	return payload(a.place(b, words)), nil
}

// Free releases memory obtained from Malloc or Realloc. Freeing nil is a
// no-op. Freeing a pointer not currently allocated by this Allocator (a
// double-free, or a foreign pointer) is undefined behavior, not detected
// here — Check is the only diagnostic for that class of bug.
func (a *Allocator) Free(p unsafe.Pointer) {
	if trace {
		defer func() { fmt.Fprintf(os.Stderr, "Free(%p)\n", p) }()
	}
	if p == nil {
		return
	}
	if err := a.ensureInit(); err != nil {
		return
	}

	b := blockOf(p)
	words := header(b).words()
	markFree(b, words)
	a.coalesce(b)
	a.allocs--
}

// Realloc changes the size of the allocation at p to size bytes, preserving
// the first min(oldSize, size) bytes of its contents. realloc(nil, size) is
// equivalent to Malloc(size); Realloc(p, 0) is equivalent to Free(p)
// returning nil. Four no-copy fast paths (shrink in place; grow onto the
// epilogue; grow into a large-enough free neighbor; grow into a too-small
// free neighbor by extending the heap) are tried before falling back to
// allocate + copy + free. On OOM during the fallback or during a growing
// fast path, p is left valid and untouched.
func (a *Allocator) Realloc(p unsafe.Pointer, size int) (r unsafe.Pointer, err error) {
	if trace {
		defer func() { fmt.Fprintf(os.Stderr, "Realloc(%p, %#x) %p, %v\n", p, size, r, err) }()
	}
	if size < 0 {
		panic("salloc: negative Realloc size")
	}
	if p == nil {
		return a.Malloc(size)
	}
	if size == 0 {
		a.Free(p)
		return nil, nil
	}

	old := blockOf(p)
	oldWords := header(old).words()
	need := adjustWords(size)

	// Case A: shrink (or no-op) in place.
	if need <= oldWords {
		if oldWords-need >= minWords {
			markUsed(old, need)
			tail := wordAt(old, need)
			markFree(tail, oldWords-need)
			a.coalesce(tail)
		}
		return p, nil
	}

	nb := wordAt(old, oldWords)

	// Case B: next is the epilogue FENCE — extend the heap and absorb it.
	if isFence(*header(nb)) {
		extend := need - oldWords
		if extend < chunkWords {
			extend = chunkWords
		}
		if _, err := a.extendHeap(extend); err != nil {
			return nil, err
		}
		remove(nodeOf(nb))
		markUsed(old, oldWords+header(nb).words())
		return p, nil
	}

	if !header(nb).used() {
		nbWords := header(nb).words()

		// Case C: next is free and big enough by itself.
		if oldWords+nbWords >= need {
			remove(nodeOf(nb))
			if oldWords+nbWords-need >= minWords {
				markUsed(old, need)
				tail := wordAt(old, need)
				markFree(tail, oldWords+nbWords-need)
				a.free.insert(tail, oldWords+nbWords-need)
			} else {
				markUsed(old, oldWords+nbWords)
			}
			return p, nil
		}

		// Case D: next is free but too small, and it ends the heap —
		// extend past it and absorb both.
		afterNb := wordAt(nb, nbWords)
		if isFence(*header(afterNb)) {
			shortfall := need - oldWords - nbWords
			if shortfall < chunkWords {
				shortfall = chunkWords
			}
			if _, err := a.extendHeap(shortfall); err != nil {
				return nil, err
			}
			remove(nodeOf(nb))
			markUsed(old, oldWords+header(nb).words())
			return p, nil
		}
	}

	// Fallback: allocate fresh, copy what fits, free the old block.
	np, err := a.Malloc(size)
	if err != nil {
		return nil, err
	}
	oldPayloadBytes := oldWords*wordBytes - 2*wordBytes
	n := size
	if oldPayloadBytes < n {
		n = oldPayloadBytes
	}
	copyBytes(np, p, n)
	a.Free(p)
	return np, nil
}

// copyBytes copies n bytes from src to dst. Both must point into the
// region's mmap'd arena (never GC-managed memory), so viewing them as
// byte slices through unsafe.Slice is safe for as long as the copy takes.
func copyBytes(dst, src unsafe.Pointer, n int) {
	if n <= 0 {
		return
	}
	copy(unsafe.Slice((*byte)(dst), n), unsafe.Slice((*byte)(src), n))
}
