// Copyright 2024 The salloc Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package salloc

// node is the intrusive doubly linked list element. It lives inside the
// unused payload of a free block (see block.go), at the exact offset an
// allocated block's payload would start at — the list costs nothing beyond
// what the block already has to spare while it is free.
type node struct {
	prev, next *node
}

// list is a small circular intrusive list with a sentinel head, one per
// segregated-list bucket. A zero-valued list has head.next == nil; malloc
// and free probe exactly that field on bucket 0 to decide whether the
// allocator still needs lazy initialization.
type list struct {
	head node
}

func (l *list) init() {
	l.head.prev = &l.head
	l.head.next = &l.head
}

func (l *list) empty() bool { return l.head.next == &l.head }

func (l *list) begin() *node { return l.head.next }
func (l *list) end() *node   { return &l.head }

// next walks to n's successor. It is a free function rather than a method
// on *node so that end-of-list sentinels (which are list.head, not a real
// element) can be passed through the same loop idiom as real elements.
func next(n *node) *node { return n.next }

func (l *list) pushFront(n *node) { l.insertBefore(l.begin(), n) }

// insertBefore splices n into the list immediately before pos. pos may be
// l.end() to append.
func (l *list) insertBefore(pos, n *node) {
	n.prev = pos.prev
	n.next = pos
	pos.prev.next = n
	pos.prev = n
}

// remove unlinks n from whatever list it is currently a member of, in O(1),
// without needing a reference to that list.
func remove(n *node) {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev = nil
	n.next = nil
}
