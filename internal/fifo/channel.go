// SPDX-License-Identifier: MIT
package fifo

import "sync/atomic"

// DefaultCapacity is the number of complete blocks a SampleFifo can hold
// before the consumer has to drain it. At 48 kHz with 2048-sample blocks
// this covers well over a second of audio, far more than one poll period.
const DefaultCapacity = 30

// SampleFifo accumulates the samples of one audio channel into fixed-size
// blocks and queues every completed block on a Ring. The audio callback
// calls Update with whatever block size the host delivers; the consumer
// always pulls blocks of exactly BlockSize samples.
type SampleFifo struct {
	channel  int
	ring     Ring[float32]
	pending  []float32 // block being filled, producer side only
	index    int
	prepared atomic.Bool
}

// NewSampleFifo returns an unprepared fifo for the given channel index.
func NewSampleFifo(channel int) *SampleFifo {
	return &SampleFifo{channel: channel}
}

// Prepare allocates the accumulation block and the ring. It must be called
// before the audio stream starts and never concurrently with Update.
func (f *SampleFifo) Prepare(blockSize, capacity int) {
	f.prepared.Store(false)

	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	f.pending = make([]float32, blockSize)
	f.index = 0
	f.ring.Prepare(capacity, blockSize)

	f.prepared.Store(true)
}

// Update appends samples to the pending block, publishing each block as it
// fills. Real-time safe: no allocation, no locking. Calls before Prepare are
// ignored.
func (f *SampleFifo) Update(samples []float32) {
	if !f.prepared.Load() || len(f.pending) == 0 {
		return
	}

	for len(samples) > 0 {
		n := copy(f.pending[f.index:], samples)
		f.index += n
		samples = samples[n:]

		if f.index == len(f.pending) {
			f.ring.Push(f.pending)
			f.index = 0
		}
	}
}

// NumCompleteBuffersAvailable returns the number of blocks ready to pull.
func (f *SampleFifo) NumCompleteBuffersAvailable() int {
	if !f.prepared.Load() {
		return 0
	}
	return f.ring.NumAvailableForReading()
}

// GetAudioBuffer copies the oldest complete block into dst[:0].
func (f *SampleFifo) GetAudioBuffer(dst []float32) ([]float32, bool) {
	if !f.prepared.Load() {
		return dst, false
	}
	return f.ring.Pull(dst)
}

// IsPrepared reports whether Prepare has completed.
func (f *SampleFifo) IsPrepared() bool {
	return f.prepared.Load()
}

// BlockSize returns the size of the blocks handed to the consumer.
func (f *SampleFifo) BlockSize() int {
	return len(f.pending)
}

// Channel returns the channel index this fifo was created for.
func (f *SampleFifo) Channel() int {
	return f.channel
}

// Overflows returns the number of blocks dropped because the consumer fell
// behind.
func (f *SampleFifo) Overflows() uint64 {
	return f.ring.Overflows()
}
