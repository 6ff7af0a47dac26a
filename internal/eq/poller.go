// SPDX-License-Identifier: MIT
package eq

import (
	"sync"
	"time"

	applog "paraeq/internal/log"
	"paraeq/internal/transport"
)

// DefaultPollRate is the analysis tick rate in Hz.
const DefaultPollRate = 60

// Poller drives Controller.Tick from a ticker goroutine and sends every
// resulting frame to its transports. Nothing else calls Tick while a Poller
// is running.
type Poller struct {
	controller *Controller
	transports []transport.Transport
	interval   time.Duration

	// OnFrame, if set before Start, receives every frame after it is sent.
	OnFrame func(*transport.Frame)

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // protects ticker and doneChan during Start/Stop
}

// NewPoller ticks at rateHz; values <= 0 select DefaultPollRate.
func NewPoller(controller *Controller, rateHz float64, transports ...transport.Transport) *Poller {
	if rateHz <= 0 {
		applog.Warnf("EQ: Invalid poll rate %.1f Hz, defaulting to %d Hz", rateHz, DefaultPollRate)
		rateHz = DefaultPollRate
	}
	return &Poller{
		controller: controller,
		transports: transports,
		interval:   time.Duration(float64(time.Second) / rateHz),
	}
}

// Interval returns the tick period.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Start launches the tick goroutine. Calling Start while running is a no-op.
func (p *Poller) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("EQ: Poller Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	// Captured so the goroutine never reads the fields Stop resets.
	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Infof("EQ: Poller started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.Poll()
			case <-doneChan:
				return
			}
		}
	}()
}

// Poll runs one tick synchronously and publishes the frame, if any. It
// reports whether a frame was produced.
func (p *Poller) Poll() bool {
	f, ok := p.controller.Tick()
	if !ok {
		return false
	}
	for _, t := range p.transports {
		if err := t.Send(f); err != nil {
			applog.Debugf("EQ: Transport send failed for frame %d: %v", f.Seq, err)
		}
	}
	if p.OnFrame != nil {
		p.OnFrame(f)
	}
	return true
}

// Stop halts the tick goroutine and waits for it to exit. Transports stay
// open; see Close.
func (p *Poller) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	applog.Infof("EQ: Poller stopped.")
	return nil
}

// Close stops the poller and closes every transport.
func (p *Poller) Close() error {
	err := p.Stop()
	for _, t := range p.transports {
		if cerr := t.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
