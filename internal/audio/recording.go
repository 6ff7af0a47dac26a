// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"paraeq/internal/fifo"
	applog "paraeq/internal/log"
)

var ErrAlreadyRecording = errors.New("already recording")

// recorderBlocks is the ring depth between the callback and the writer.
const recorderBlocks = 64

// Recorder writes processed audio to a WAV file. The audio callback only
// interleaves into a preallocated block and pushes it onto a ring; a writer
// goroutine owns the file and the encoder.
type Recorder struct {
	path       string
	channels   int
	sampleRate int
	bitDepth   int

	ring       *fifo.Ring[float32]
	interleave []float32 // callback side only

	file    *os.File
	encoder *wav.Encoder
	intBuf  *audio.IntBuffer
	pull    []float32

	frames  atomic.Uint64
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
	err     error // set by the writer goroutine, read after wg.Wait
	closing atomic.Bool
}

// NewRecorder creates path (and its directory) and starts the writer
// goroutine. framesPerBuffer bounds the block size Write accepts without
// dropping data.
func NewRecorder(path string, channels int, sampleRate float64, bitDepth, framesPerBuffer int) (*Recorder, error) {
	if channels < 1 || framesPerBuffer < 1 {
		return nil, fmt.Errorf("recorder: invalid shape %d channels x %d frames", channels, framesPerBuffer)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("recorder: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	block := framesPerBuffer * channels
	r := &Recorder{
		path:       path,
		channels:   channels,
		sampleRate: int(sampleRate),
		bitDepth:   bitDepth,
		ring:       fifo.NewRing[float32](recorderBlocks, block),
		interleave: make([]float32, block),
		file:       file,
		encoder:    wav.NewEncoder(file, int(sampleRate), bitDepth, channels, 1),
		intBuf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: channels, SampleRate: int(sampleRate)},
			Data:           make([]int, block),
			SourceBitDepth: bitDepth,
		},
		pull: make([]float32, 0, block),
		done: make(chan struct{}),
	}

	r.wg.Add(1)
	go r.writeLoop()

	applog.Infof("Recorder: Writing %d-bit %d Hz %d-channel WAV to %s", bitDepth, r.sampleRate, channels, path)
	return r, nil
}

// Write queues one callback's worth of non-interleaved buffers. Real-time
// safe; frames beyond framesPerBuffer and blocks arriving while the ring is
// full are dropped and counted.
func (r *Recorder) Write(buffers [][]float32) {
	if r.closing.Load() || len(buffers) == 0 {
		return
	}

	frames := min(len(buffers[0]), len(r.interleave)/r.channels)
	n := 0
	for i := range frames {
		for ch := range r.channels {
			var s float32
			if ch < len(buffers) && i < len(buffers[ch]) {
				s = buffers[ch][i]
			}
			r.interleave[n] = s
			n++
		}
	}
	r.ring.Push(r.interleave[:n])
}

func (r *Recorder) writeLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.drain()
		case <-r.done:
			r.drain()
			return
		}
	}
}

func (r *Recorder) drain() {
	for {
		var ok bool
		r.pull, ok = r.ring.Pull(r.pull)
		if !ok {
			return
		}
		if r.err != nil {
			continue
		}
		if err := r.encode(r.pull); err != nil {
			r.err = err
			applog.Errorf("Recorder: Error writing to WAV file: %v", err)
		}
	}
}

func (r *Recorder) encode(samples []float32) error {
	scale := float64(int64(1)<<(r.bitDepth-1) - 1)
	r.intBuf.Data = r.intBuf.Data[:len(samples)]
	for i, s := range samples {
		v := math.Max(-1, math.Min(1, float64(s)))
		r.intBuf.Data[i] = int(math.Round(v * scale))
	}
	if err := r.encoder.Write(r.intBuf); err != nil {
		return err
	}
	r.frames.Add(uint64(len(samples) / r.channels))
	return nil
}

// Close stops the writer, flushes queued blocks and finalises the file.
// It is safe to call more than once.
func (r *Recorder) Close() error {
	var err error
	r.once.Do(func() {
		r.closing.Store(true)
		close(r.done)
		r.wg.Wait()

		err = r.err
		if cerr := r.encoder.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if cerr := r.file.Close(); cerr != nil && err == nil {
			err = cerr
		}
		applog.Infof("Recorder: Saved %d frames to %s (%d blocks dropped)", r.Frames(), r.path, r.Dropped())
	})
	return err
}

// Path returns the output file path.
func (r *Recorder) Path() string {
	return r.path
}

// Frames returns the number of frames written to the file so far.
func (r *Recorder) Frames() uint64 {
	return r.frames.Load()
}

// Dropped returns the number of blocks lost because the writer fell behind.
func (r *Recorder) Dropped() uint64 {
	return r.ring.Overflows()
}

// DefaultRecordingName returns a timestamped file name inside dir.
func DefaultRecordingName(dir string, now time.Time) string {
	return filepath.Join(dir, "recording-"+now.UTC().Format("02-01-2006-150405")+".wav")
}
