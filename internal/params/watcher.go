// SPDX-License-Identifier: MIT
package params

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	applog "paraeq/internal/log"
)

// Watcher reloads a preset file into a Store whenever it is written or
// re-created. The parent directory is watched rather than the file so
// editors that save via rename keep working.
type Watcher struct {
	path  string
	store *Store
	w     *fsnotify.Watcher

	// OnReload, if set before Start, is called after every reload attempt.
	OnReload func(err error)

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewWatcher prepares a watcher for path. Call Start to begin watching.
func NewWatcher(path string, store *Store) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve preset path %s: %w", path, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create preset watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{
		path:  abs,
		store: store,
		w:     fw,
		done:  make(chan struct{}),
	}, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Start launches the event loop. Subsequent calls are no-ops.
func (w *Watcher) Start() {
	w.startOnce.Do(func() {
		applog.Infof("Params: watching preset %s", w.path)
		w.wg.Add(1)
		go w.loop()
	})
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.w.Errors:
			if !ok {
				return
			}
			applog.Warnf("Params: preset watcher error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	err := LoadFile(w.path, w.store)
	if err != nil {
		applog.Warnf("Params: preset reload failed: %v", err)
	} else {
		applog.Debugf("Params: reloaded preset %s", w.path)
	}
	if w.OnReload != nil {
		w.OnReload(err)
	}
}

// Close stops the loop and releases the OS watch.
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.w.Close()
		w.wg.Wait()
	})
	return err
}
