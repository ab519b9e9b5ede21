// Copyright 2024 The salloc Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package salloc

import "os"

var (
	osPageSize = os.Getpagesize()
	osPageMask = osPageSize - 1
)

// if n%m != 0 { n += m-n%m }. m must be a power of 2.
func roundup(n, m int) int { return (n + m - 1) &^ (m - 1) }

// mmap reserves size bytes of OS memory, rounded up to a whole number of
// pages, via the platform-specific mmap0.
func mmap(size int) ([]byte, error) {
	return mmap0(roundup(size, osPageSize))
}
