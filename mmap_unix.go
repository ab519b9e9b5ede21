// Copyright 2011 Evan Shaw. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE-MMAP-GO file.

//go:build darwin || dragonfly || freebsd || linux || openbsd || solaris || netbsd

// Modifications (c) 2024 The salloc Authors.

package salloc

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// mmap0 reserves size bytes of anonymous, zero-filled memory for the heap
// arena. The pages are demand-paged by the OS: reserving a large arena costs
// address space, not physical memory, until the region provider's sbrk
// actually advances the break into it.
func mmap0(size int) ([]byte, error) {
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_ANON)
	if err != nil {
		return nil, err
	}

	if uintptr(unsafe.Pointer(&b[0]))&uintptr(osPageMask) != 0 {
		panic("salloc: mmap returned a misaligned page")
	}

	return b, nil
}

func unmap(b []byte) error {
	return unix.Munmap(b)
}
