// SPDX-License-Identifier: MIT
package fifo

import "testing"

func ramp(start, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(start + i)
	}
	return out
}

func TestSampleFifoReblocks(t *testing.T) {
	tests := []struct {
		name      string
		blockSize int
		hostBlock int
		total     int
	}{
		{"HostSmallerThanBlock", 8, 3, 24},
		{"HostEqualsBlock", 8, 8, 32},
		{"HostLargerThanBlock", 4, 10, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewSampleFifo(0)
			f.Prepare(tt.blockSize, 64)

			for start := 0; start < tt.total; start += tt.hostBlock {
				n := min(tt.hostBlock, tt.total-start)
				f.Update(ramp(start, n))
			}

			want := tt.total / tt.blockSize
			if got := f.NumCompleteBuffersAvailable(); got != want {
				t.Fatalf("NumCompleteBuffersAvailable() = %d, want %d", got, want)
			}

			var block []float32
			next := float32(0)
			for range want {
				var ok bool
				block, ok = f.GetAudioBuffer(block)
				if !ok || len(block) != tt.blockSize {
					t.Fatalf("GetAudioBuffer() = len %d ok=%v", len(block), ok)
				}
				for i, s := range block {
					if s != next {
						t.Fatalf("sample %d = %f, want %f", i, s, next)
					}
					next++
				}
			}
		})
	}
}

func TestSampleFifoUnpreparedIsNoop(t *testing.T) {
	f := NewSampleFifo(1)
	f.Update(ramp(0, 16))

	if f.IsPrepared() {
		t.Error("IsPrepared() = true before Prepare")
	}
	if f.NumCompleteBuffersAvailable() != 0 {
		t.Error("unprepared fifo reports available buffers")
	}
	if _, ok := f.GetAudioBuffer(nil); ok {
		t.Error("GetAudioBuffer() on unprepared fifo returned true")
	}
	if f.Channel() != 1 {
		t.Errorf("Channel() = %d, want 1", f.Channel())
	}
}

func TestSampleFifoOverflowIsCounted(t *testing.T) {
	f := NewSampleFifo(0)
	f.Prepare(4, 2)

	f.Update(ramp(0, 16)) // four blocks into a two-slot ring

	if f.NumCompleteBuffersAvailable() != 2 {
		t.Errorf("NumCompleteBuffersAvailable() = %d, want 2", f.NumCompleteBuffersAvailable())
	}
	if f.Overflows() != 2 {
		t.Errorf("Overflows() = %d, want 2", f.Overflows())
	}

	block, _ := f.GetAudioBuffer(nil)
	if block[0] != 0 {
		t.Errorf("oldest block starts at %f, want 0", block[0])
	}
}

func TestSampleFifoUpdateZeroAllocs(t *testing.T) {
	f := NewSampleFifo(0)
	f.Prepare(2048, DefaultCapacity)
	host := make([]float32, 512)
	var dst []float32 = make([]float32, 0, 2048)

	allocs := testing.AllocsPerRun(200, func() {
		f.Update(host)
		if f.NumCompleteBuffersAvailable() > 0 {
			dst, _ = f.GetAudioBuffer(dst)
		}
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in SampleFifo.Update, got %.1f", allocs)
	}
}
