package regtest

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// LogWatcher tails the node's debug.log and delivers appended lines
// on a channel. The watcher survives log rotation: when the file
// shrinks or is recreated it re-reads from the start.
type LogWatcher struct {
	path    string
	watcher *fsnotify.Watcher
	logger  *zap.Logger

	lines   chan string
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool

	offset  int64
	partial string
}

// NewLogWatcher creates a watcher for the given debug.log path.
func NewLogWatcher(path string, logger *zap.Logger) (*LogWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogWatcher{
		path:    path,
		watcher: watcher,
		logger:  logger,
		lines:   make(chan string, 256),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}, nil
}

// Lines returns the channel carrying appended log lines. The channel
// closes when the watcher stops.
func (w *LogWatcher) Lines() <-chan string {
	return w.lines
}

// Start begins tailing from the current end of the file. It is
// non-blocking; lines arrive on Lines().
func (w *LogWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	// Skip history: start from the current end of the file.
	if info, err := os.Stat(w.path); err == nil {
		w.offset = info.Size()
	}

	// Watch the directory rather than the file so recreation after
	// rotation is observed.
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and closes the lines channel.
func (w *LogWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		w.logger.Warn("error closing watcher", zap.Error(err))
	}
}

func (w *LogWatcher) run(ctx context.Context) {
	defer close(w.doneCh)
	defer close(w.lines)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				w.offset = 0
				w.partial = ""
			}
			w.readNew(ctx)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

// readNew reads everything appended since the last offset and emits
// complete lines.
func (w *LogWatcher) readNew(ctx context.Context) {
	f, err := os.Open(w.path)
	if err != nil {
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return
	}
	if info.Size() < w.offset {
		// Rotated or truncated.
		w.offset = 0
		w.partial = ""
	}

	if _, err := f.Seek(w.offset, io.SeekStart); err != nil {
		return
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return
	}
	w.offset += int64(len(data))

	chunk := w.partial + string(data)
	lines := strings.Split(chunk, "\n")
	w.partial = lines[len(lines)-1]
	for _, line := range lines[:len(lines)-1] {
		if line == "" {
			continue
		}
		select {
		case w.lines <- line:
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		}
	}
}
