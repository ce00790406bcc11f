package inventory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mudler/xlog"
)

const defaultDebounce = 300 * time.Millisecond

// Store holds the current testbed and swaps it when the file changes.
// A reload that fails keeps the previous testbed.
type Store struct {
	path     string
	debounce time.Duration

	mu      sync.RWMutex
	testbed *Testbed
	timer   *time.Timer
	stopped chan struct{}
}

func NewStore(path string) (*Store, error) {
	tb, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Store{
		path:     path,
		testbed:  tb,
		debounce: defaultDebounce,
	}, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Testbed() *Testbed {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.testbed
}

func (s *Store) Device(name string) (Endpoint, error) {
	return s.Testbed().Device(name)
}

// Reload reads the file again.
func (s *Store) Reload() error {
	tb, err := Load(s.path)
	if err != nil {
		xlog.Error("Failed to reload testbed, keeping previous", "path", s.path, "error", err.Error())
		return err
	}
	s.mu.Lock()
	s.testbed = tb
	s.mu.Unlock()
	xlog.Info("Testbed reloaded", "path", s.path, "devices", len(tb.Devices))
	return nil
}

// Watch reloads the testbed on file changes until ctx is done. It returns
// once the watcher is installed.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	if err := watcher.Add(s.path); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %w", s.path, err)
	}

	s.stopped = make(chan struct{})
	go s.watchLoop(ctx, watcher)
	return nil
}

// Done is closed when the watch loop exits.
func (s *Store) Done() <-chan struct{} {
	return s.stopped
}

func (s *Store) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer close(s.stopped)
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			if s.timer != nil {
				s.timer.Stop()
			}
			s.mu.Unlock()
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			// editors replace the file on save, the watch has to follow the new inode
			if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				time.Sleep(50 * time.Millisecond)
				if err := watcher.Add(s.path); err != nil {
					xlog.Warn("Failed to re-add testbed watch", "path", s.path, "error", err.Error())
				}
			}
			s.scheduleReload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			xlog.Error("Testbed watcher error", "error", err.Error())
		}
	}
}

func (s *Store) scheduleReload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		_ = s.Reload()
	})
}
