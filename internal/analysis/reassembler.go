// SPDX-License-Identifier: MIT
package analysis

// Reassembler keeps the most recent Size() samples of one channel. Each
// pushed block shifts the window left by the block length and lands at the
// end, so the transform always sees an overlapping view of the latest audio
// regardless of the block size the fifo delivers.
type Reassembler struct {
	window []float32
}

// NewReassembler returns a silent window of size samples.
func NewReassembler(size int) *Reassembler {
	return &Reassembler{window: make([]float32, size)}
}

// Push appends block to the window, discarding the len(block) oldest
// samples. Blocks longer than the window keep only their tail. Zero-alloc.
func (r *Reassembler) Push(block []float32) {
	n := len(r.window)
	if len(block) >= n {
		copy(r.window, block[len(block)-n:])
		return
	}
	copy(r.window, r.window[len(block):])
	copy(r.window[n-len(block):], block)
}

// Window returns the current window. The slice is owned by the
// Reassembler and changes on the next Push.
func (r *Reassembler) Window() []float32 {
	return r.window
}

// Size returns the window length.
func (r *Reassembler) Size() int {
	return len(r.window)
}

// Resize reallocates a silent window of size samples.
func (r *Reassembler) Resize(size int) {
	r.window = make([]float32, size)
}

// Reset silences the window.
func (r *Reassembler) Reset() {
	clear(r.window)
}
