// Package watcher re-triggers resolution when a unit or include file that
// fed the last run changes on disk.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sloanyang/gyp/pkg/logging"
)

// ChangeEvent represents a batch of file system changes
type ChangeEvent struct {
	Paths     []string
	Timestamp time.Time
}

// FileWatcher watches the directories holding the files of the last
// resolution. fsnotify reports per directory, so events are filtered
// down to tracked files before they are forwarded.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	events  chan ChangeEvent
	log     *slog.Logger

	mu      sync.Mutex
	tracked *fileSet
	dirs    map[string]bool
}

// NewFileWatcher creates a new file system watcher
func NewFileWatcher() (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	return &FileWatcher{
		watcher: w,
		events:  make(chan ChangeEvent, 100),
		log:     logging.New("watcher"),
		tracked: newFileSet(nil),
		dirs:    make(map[string]bool),
	}, nil
}

// SetFiles replaces the tracked file set, adding and removing directory
// watches as needed
func (fw *FileWatcher) SetFiles(files []string) {
	next := newFileSet(files)

	fw.mu.Lock()
	defer fw.mu.Unlock()

	for dir := range fw.dirs {
		if next.dirs[dir] {
			continue
		}
		if err := fw.watcher.Remove(dir); err != nil {
			fw.log.Debug("failed to unwatch directory", "path", dir, "error", err)
		}
		delete(fw.dirs, dir)
	}
	for dir := range next.dirs {
		if fw.dirs[dir] {
			continue
		}
		if err := fw.watcher.Add(dir); err != nil {
			fw.log.Warn("failed to watch directory", "path", dir, "error", err)
			continue
		}
		fw.dirs[dir] = true
	}
	fw.tracked = next

	fw.log.Info("monitoring files", "files", len(next.files), "directories", len(fw.dirs))
}

// Start begins forwarding relevant changes until ctx is done
func (fw *FileWatcher) Start(ctx context.Context) {
	go fw.processEvents(ctx)
}

func (fw *FileWatcher) processEvents(ctx context.Context) {
	defer close(fw.events)
	defer fw.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.mu.Lock()
			relevant := fw.tracked.relevant(event)
			fw.mu.Unlock()
			if !relevant {
				continue
			}
			fw.log.Debug("file changed", "path", event.Name, "op", event.Op.String())
			select {
			case fw.events <- ChangeEvent{Paths: []string{event.Name}, Timestamp: time.Now()}:
			case <-ctx.Done():
				return
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.log.Error("watcher error", "error", err)
		}
	}
}

// Events returns the channel of change events
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}
