// Package mirror keeps a local copy of a database file that lives on slow or
// remote storage.
package mirror

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/natefinch/atomic"
	"github.com/rubiojr/fanfic/pkg/log"
)

var logger = log.ForService("mirror")

// DefaultDebounce is how long Watch waits after the last change event before
// syncing. Copying a large database produces a burst of write events.
const DefaultDebounce = 2 * time.Second

// Mirror copies Source to Destination.
type Mirror struct {
	Source      string
	Destination string
	Debounce    time.Duration
}

func New(source, destination string) *Mirror {
	return &Mirror{Source: source, Destination: destination, Debounce: DefaultDebounce}
}

// UpToDate reports whether Destination already holds the current Source:
// same size and a modification time not older than the source's.
func (m *Mirror) UpToDate() (bool, error) {
	src, err := os.Stat(m.Source)
	if err != nil {
		return false, fmt.Errorf("stat source: %w", err)
	}
	dst, err := os.Stat(m.Destination)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat destination: %w", err)
	}
	return src.Size() == dst.Size() && !dst.ModTime().Before(src.ModTime()), nil
}

// Sync copies the source over the destination unless it is up to date. The
// destination is replaced atomically so readers never see a partial file.
// It reports whether a copy happened.
func (m *Mirror) Sync() (bool, error) {
	if m.Source == "" || m.Destination == "" {
		return false, fmt.Errorf("mirror source and destination are required")
	}
	if same, err := sameFile(m.Source, m.Destination); err == nil && same {
		return false, fmt.Errorf("mirror source and destination are the same file")
	}

	fresh, err := m.UpToDate()
	if err != nil {
		return false, err
	}
	if fresh {
		logger.Debugf("%s is up to date", m.Destination)
		return false, nil
	}

	src, err := os.Open(m.Source)
	if err != nil {
		return false, fmt.Errorf("opening source: %w", err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			logger.Warnf("failed to close %s: %v", m.Source, err)
		}
	}()

	info, err := src.Stat()
	if err != nil {
		return false, fmt.Errorf("stat source: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.Destination), 0755); err != nil {
		return false, fmt.Errorf("creating destination directory: %w", err)
	}

	start := time.Now()
	if err := atomic.WriteFile(m.Destination, src); err != nil {
		return false, fmt.Errorf("copying %s: %w", m.Source, err)
	}
	if err := os.Chtimes(m.Destination, info.ModTime(), info.ModTime()); err != nil {
		return false, fmt.Errorf("setting destination times: %w", err)
	}

	logger.Infof("copied %s to %s (%d bytes in %s)", m.Source, m.Destination, info.Size(), time.Since(start).Round(time.Millisecond))
	return true, nil
}

// Watch syncs whenever the source changes and calls onSync after every copy.
// The parent directory is watched so atomic replacements of the source are
// seen too. It blocks until ctx is done.
func (m *Mirror) Watch(ctx context.Context, onSync func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			logger.Warnf("failed to close watcher: %v", err)
		}
	}()

	dir := filepath.Dir(m.Source)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	logger.Infof("watching %s for changes", m.Source)

	debounce := m.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	name := filepath.Clean(m.Source)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				logger.Debugf("source changed (%s)", event.Op)
				timer.Reset(debounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("watcher error: %v", err)

		case <-timer.C:
			copied, err := m.Sync()
			if err != nil {
				logger.Errorf("sync failed: %v", err)
				continue
			}
			if copied && onSync != nil {
				onSync()
			}
		}
	}
}

func sameFile(a, b string) (bool, error) {
	ai, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false, err
	}
	return os.SameFile(ai, bi), nil
}
