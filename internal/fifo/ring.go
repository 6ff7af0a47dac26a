// SPDX-License-Identifier: MIT
/*
Package fifo implements the lock-free single-producer/single-consumer queues
that carry data between the real-time audio callback and the analysis side.

Ring is a bounded queue of fixed-shape blocks ([]E). Every slot is
allocated once by Prepare; Push and Pull copy element data in and out of the
slots so neither side ever retains a reference into the other's memory.

Thread Safety:
  - Exactly one goroutine may call Push and exactly one may call Pull.
  - The write and read cursors only ever increase. The producer fills a slot
    before publishing the advanced write cursor, and the consumer copies a
    slot out before publishing the advanced read cursor, so a reader never
    observes a half-written slot.
  - No mutexes: Push is callable from the audio callback.
*/
package fifo

import (
	"errors"
	"sync/atomic"
)

// ErrFull is reported by TryPush when the ring has no free slot. Push itself
// drops the block and counts the overflow instead.
var ErrFull = errors.New("fifo: ring is full")

// Ring is a fixed-capacity SPSC queue of blocks. The zero value is unusable
// until Prepare is called.
type Ring[E any] struct {
	slots     [][]E
	blockSize int

	write     atomic.Uint64 // total blocks ever pushed
	read      atomic.Uint64 // total blocks ever pulled
	overflows atomic.Uint64 // blocks dropped because the ring was full
}

// NewRing returns a prepared ring of capacity blocks, each able to hold
// blockSize elements without reallocation.
func NewRing[E any](capacity, blockSize int) *Ring[E] {
	r := &Ring[E]{}
	r.Prepare(capacity, blockSize)
	return r
}

// Prepare resets both cursors and allocates capacity slots of blockSize
// elements. It must not run while either end is in use.
func (r *Ring[E]) Prepare(capacity, blockSize int) {
	if capacity < 1 {
		capacity = 1
	}
	if blockSize < 0 {
		blockSize = 0
	}

	r.slots = make([][]E, capacity)
	for i := range r.slots {
		r.slots[i] = make([]E, 0, blockSize)
	}
	r.blockSize = blockSize

	r.write.Store(0)
	r.read.Store(0)
	r.overflows.Store(0)
}

// Push copies block into the next free slot. When the ring is full the
// block is dropped (the queued data stays intact), the overflow counter is
// incremented and false is returned. Push never blocks and does not
// allocate as long as len(block) <= blockSize.
func (r *Ring[E]) Push(block []E) bool {
	if err := r.TryPush(block); err != nil {
		r.overflows.Add(1)
		return false
	}
	return true
}

// TryPush is Push without the overflow accounting.
func (r *Ring[E]) TryPush(block []E) error {
	w := r.write.Load()
	if w-r.read.Load() >= uint64(len(r.slots)) {
		return ErrFull
	}

	i := w % uint64(len(r.slots))
	r.slots[i] = append(r.slots[i][:0], block...)

	r.write.Store(w + 1)
	return nil
}

// Pull appends the oldest unread block to dst[:0] and returns it. When the
// ring is empty it returns dst unchanged and false.
func (r *Ring[E]) Pull(dst []E) ([]E, bool) {
	rd := r.read.Load()
	if r.write.Load() == rd {
		return dst, false
	}

	i := rd % uint64(len(r.slots))
	dst = append(dst[:0], r.slots[i]...)

	r.read.Store(rd + 1)
	return dst, true
}

// Discard drops up to n unread blocks without copying them and returns how
// many were dropped. Consumer side only.
func (r *Ring[E]) Discard(n int) int {
	rd := r.read.Load()
	avail := int(r.write.Load() - rd)
	if n > avail {
		n = avail
	}
	if n > 0 {
		r.read.Store(rd + uint64(n))
	}
	return n
}

// NumAvailableForReading is a best-effort snapshot of the number of queued
// blocks, always within [0, Capacity()].
func (r *Ring[E]) NumAvailableForReading() int {
	rd := r.read.Load()
	w := r.write.Load()
	// Both cursors may move between the two loads; w >= rd always holds
	// because rd is loaded first, but the difference can exceed capacity.
	if n := int(w - rd); n < len(r.slots) {
		return n
	}
	return len(r.slots)
}

// Capacity returns the number of slots.
func (r *Ring[E]) Capacity() int {
	return len(r.slots)
}

// BlockSize returns the preallocated size of each slot.
func (r *Ring[E]) BlockSize() int {
	return r.blockSize
}

// Overflows returns how many blocks Push has dropped since Prepare.
func (r *Ring[E]) Overflows() uint64 {
	return r.overflows.Load()
}
