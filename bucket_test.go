// Copyright 2024 The salloc Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package salloc

import "testing"

// TestBucketBoundaries checks bucket against the spec's definition
// directly: bucket(n) is the largest k < nLists with 2^k <= n.
func TestBucketBoundaries(t *testing.T) {
	cases := []struct {
		words int
		want  int
	}{
		{1, 0},
		{2, 1},
		{3, 1},
		{4, 2},
		{5, 2},
		{7, 2},
		{8, 3},
		{1023, 9},
		{1024, 10},
		{1 << 18, 18},
		{1 << 19, 19},
		{1 << 30, nLists - 1}, // clamps to the top bucket
	}
	for _, c := range cases {
		if got := bucket(c.words); got != c.want {
			t.Errorf("bucket(%d) = %d, want %d", c.words, got, c.want)
		}
	}
}

// TestBucketIterativeAgreesWithBitLen cross-checks the mathutil.BitLen-based
// implementation against the shift-loop algorithm spec.md describes
// directly, for every word count up to a generous ceiling.
func TestBucketIterativeAgreesWithBitLen(t *testing.T) {
	iterative := func(n int) int {
		k := 0
		for k < nLists-1 && n > 1 {
			n >>= 1
			k++
		}
		return k
	}
	for n := 1; n < 1<<20; n++ {
		if got, want := bucket(n), iterative(n); got != want {
			t.Fatalf("bucket(%d) = %d, iterative = %d", n, got, want)
		}
	}
}

// TestListLazyInitSentinel verifies the zero-valued list's head.next == nil
// probe malloc/free rely on for lazy initialization.
func TestListLazyInitSentinel(t *testing.T) {
	var l list
	if l.head.next != nil {
		t.Fatalf("zero-valued list has non-nil head.next")
	}
	l.init()
	if !l.empty() {
		t.Fatalf("freshly initialized list is not empty")
	}
}
