// SPDX-License-Identifier: MIT
package fifo

import (
	"errors"
	"slices"
	"sync"
	"testing"
)

func TestRingFIFOOrder(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		pushes   int
	}{
		{"Single", 4, 1},
		{"Partial", 8, 5},
		{"Full", 8, 8},
		{"CapacityOne", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRing[int](tt.capacity, 3)

			for i := range tt.pushes {
				if !r.Push([]int{i, i + 1, i + 2}) {
					t.Fatalf("Push(%d) returned false", i)
				}
			}
			if got := r.NumAvailableForReading(); got != tt.pushes {
				t.Errorf("NumAvailableForReading() = %d, want %d", got, tt.pushes)
			}

			var dst []int
			for i := range tt.pushes {
				var ok bool
				dst, ok = r.Pull(dst)
				if !ok {
					t.Fatalf("Pull(%d) returned false", i)
				}
				if want := []int{i, i + 1, i + 2}; !slices.Equal(dst, want) {
					t.Errorf("Pull(%d) = %v, want %v", i, dst, want)
				}
			}

			if got := r.NumAvailableForReading(); got != 0 {
				t.Errorf("NumAvailableForReading() after drain = %d, want 0", got)
			}
		})
	}
}

func TestRingPullEmptyLeavesStateUntouched(t *testing.T) {
	r := NewRing[float32](4, 2)

	dst := []float32{7, 8}
	got, ok := r.Pull(dst)
	if ok {
		t.Fatal("Pull on empty ring returned true")
	}
	if !slices.Equal(got, []float32{7, 8}) {
		t.Errorf("Pull on empty ring modified dst: %v", got)
	}
	if r.NumAvailableForReading() != 0 {
		t.Errorf("NumAvailableForReading() = %d, want 0", r.NumAvailableForReading())
	}

	// The cursors must still line up for subsequent traffic.
	r.Push([]float32{1, 2})
	got, ok = r.Pull(nil)
	if !ok || !slices.Equal(got, []float32{1, 2}) {
		t.Errorf("Pull after empty pull = %v, %v", got, ok)
	}
}

func TestRingOverflowDropsNewest(t *testing.T) {
	r := NewRing[int](2, 1)

	r.Push([]int{1})
	r.Push([]int{2})
	if r.Push([]int{3}) {
		t.Error("Push on full ring returned true")
	}
	if err := r.TryPush([]int{4}); !errors.Is(err, ErrFull) {
		t.Errorf("TryPush on full ring = %v, want ErrFull", err)
	}
	if r.Overflows() != 1 {
		t.Errorf("Overflows() = %d, want 1", r.Overflows())
	}

	var dst []int
	for _, want := range []int{1, 2} {
		dst, _ = r.Pull(dst)
		if dst[0] != want {
			t.Errorf("Pull() = %v, want [%d]", dst, want)
		}
	}
}

func TestRingCopiesBlocks(t *testing.T) {
	r := NewRing[int](2, 2)

	src := []int{1, 2}
	r.Push(src)
	src[0] = 99

	got, _ := r.Pull(nil)
	if got[0] != 1 {
		t.Errorf("ring retained a reference to the pushed block: got %v", got)
	}
}

func TestRingVariableLengthBlocks(t *testing.T) {
	r := NewRing[int](3, 4)

	r.Push([]int{1})
	r.Push([]int{1, 2, 3, 4})
	r.Push(nil)

	for _, want := range []int{1, 4, 0} {
		got, ok := r.Pull(nil)
		if !ok || len(got) != want {
			t.Errorf("Pull() len = %d (ok=%v), want %d", len(got), ok, want)
		}
	}
}

func TestRingDiscard(t *testing.T) {
	r := NewRing[int](4, 1)
	for i := range 3 {
		r.Push([]int{i})
	}

	if n := r.Discard(2); n != 2 {
		t.Errorf("Discard(2) = %d, want 2", n)
	}
	got, _ := r.Pull(nil)
	if got[0] != 2 {
		t.Errorf("Pull() after Discard = %v, want [2]", got)
	}
	if n := r.Discard(5); n != 0 {
		t.Errorf("Discard on empty ring = %d, want 0", n)
	}
}

func TestRingPrepareResets(t *testing.T) {
	r := NewRing[int](2, 1)
	r.Push([]int{1})
	r.Push([]int{2})
	r.Push([]int{3})

	r.Prepare(4, 8)
	if r.NumAvailableForReading() != 0 || r.Overflows() != 0 {
		t.Errorf("Prepare did not reset: available=%d overflows=%d",
			r.NumAvailableForReading(), r.Overflows())
	}
	if r.Capacity() != 4 || r.BlockSize() != 8 {
		t.Errorf("Capacity/BlockSize = %d/%d, want 4/8", r.Capacity(), r.BlockSize())
	}
}

func TestRingConcurrentSPSC(t *testing.T) {
	const blocks = 20000
	r := NewRing[int](16, 2)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < blocks; {
			if r.TryPush([]int{i, -i}) == nil {
				i++
			}
		}
	}()

	var dst []int
	for next := 0; next < blocks; {
		var ok bool
		dst, ok = r.Pull(dst)
		if !ok {
			continue
		}
		if dst[0] != next || dst[1] != -next {
			t.Fatalf("Pull() = %v, want [%d %d]", dst, next, -next)
		}
		next++
	}
	wg.Wait()

	if r.Overflows() != 0 {
		t.Errorf("Overflows() = %d, want 0 (TryPush does not count)", r.Overflows())
	}
}

func TestRingHotPathZeroAllocs(t *testing.T) {
	r := NewRing[float32](4, 512)
	block := make([]float32, 512)
	dst := make([]float32, 0, 512)

	allocs := testing.AllocsPerRun(100, func() {
		r.Push(block)
		dst, _ = r.Pull(dst)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in Push/Pull, got %.1f", allocs)
	}
}

func BenchmarkRingPushPull(b *testing.B) {
	r := NewRing[float32](8, 512)
	block := make([]float32, 512)
	dst := make([]float32, 0, 512)

	b.ReportAllocs()
	for b.Loop() {
		r.Push(block)
		dst, _ = r.Pull(dst)
	}
}
