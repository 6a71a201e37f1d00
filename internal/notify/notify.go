// Package notify watches the project's signal directory so an operator can
// stop a pipeline run from outside the process. The orchestrator polls
// ShouldStop between steps; an already-dispatched step is never interrupted.
package notify

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// stopFile is the signal filename; touching it stops the run after the
// current step.
const stopFile = "stop"

// Manager watches .maestro/signals for stop requests.
type Manager struct {
	signalsDir string

	mu         sync.RWMutex
	stopSignal bool

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewManager creates a signal manager for the given project root. When the
// filesystem watcher cannot be created the manager falls back to checking
// the signal file on every poll.
func NewManager(projectRoot string) (*Manager, error) {
	signalsDir := filepath.Join(projectRoot, ".maestro", "signals")
	if err := os.MkdirAll(signalsDir, 0755); err != nil {
		return nil, err
	}

	m := &Manager{
		signalsDir: signalsDir,
		done:       make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return m, nil
	}
	if err := watcher.Add(signalsDir); err != nil {
		watcher.Close()
		return m, nil
	}
	m.watcher = watcher

	go m.watchSignals()

	return m, nil
}

// watchSignals monitors the signals directory for the stop file.
func (m *Manager) watchSignals() {
	for {
		select {
		case <-m.done:
			return
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) == stopFile && (event.Op&fsnotify.Create != 0 || event.Op&fsnotify.Write != 0) {
				m.mu.Lock()
				m.stopSignal = true
				m.mu.Unlock()
			}
		case <-m.watcher.Errors:
			// Ignore errors, keep watching
		}
	}
}

// ShouldStop reports whether a stop has been requested.
func (m *Manager) ShouldStop() bool {
	m.mu.RLock()
	stopped := m.stopSignal
	m.mu.RUnlock()
	if stopped {
		return true
	}

	// Polling fallback when the watcher is unavailable.
	if m.watcher == nil {
		if _, err := os.Stat(filepath.Join(m.signalsDir, stopFile)); err == nil {
			m.mu.Lock()
			m.stopSignal = true
			m.mu.Unlock()
			return true
		}
	}
	return false
}

// RequestStop creates the stop signal file.
func (m *Manager) RequestStop() error {
	return os.WriteFile(filepath.Join(m.signalsDir, stopFile), nil, 0644)
}

// ClearSignals removes any pending signal files.
func (m *Manager) ClearSignals() error {
	m.mu.Lock()
	m.stopSignal = false
	m.mu.Unlock()
	err := os.Remove(filepath.Join(m.signalsDir, stopFile))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Close stops the watcher.
func (m *Manager) Close() error {
	close(m.done)
	if m.watcher != nil {
		return m.watcher.Close()
	}
	return nil
}
