package document

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/obelisk-rag/obelisk/internal/log"
)

// flushInterval bounds how long a filesystem event waits before the changed
// file is reprocessed.
const flushInterval = 500 * time.Millisecond

// Watcher monitors a vault directory tree and reprocesses markdown files as
// they change. Rapid successive writes to the same file (editor save
// patterns) coalesce into a single reprocess, and overall reprocessing is
// rate limited so a bulk sync cannot saturate the embedding backend.
// Deletions are ignored; stored chunks for removed files stay behind until
// the next full reindex.
type Watcher struct {
	processor *Processor
	logger    log.Logger
	limiter   *rate.Limiter

	mu      sync.Mutex
	pending map[string]struct{}

	fsw    *fsnotify.Watcher
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher creates a watcher over the processor.
func NewWatcher(processor *Processor, logger log.Logger) *Watcher {
	return &Watcher{
		processor: processor,
		logger:    logger,
		limiter:   rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
		pending:   map[string]struct{}{},
	}
}

// Start begins watching dir and all its subdirectories. It returns once the
// watch is established; processing happens on a background goroutine until
// Stop is called or ctx is cancelled.
func (w *Watcher) Start(ctx context.Context, dir string) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// Watch the full tree; fsnotify is not recursive by itself.
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
	if err != nil {
		fsw.Close()
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	w.fsw = fsw
	w.cancel = cancel
	w.done = make(chan struct{})

	go w.run(ctx)
	w.logger.Info("watching vault", "dir", dir)
	return nil
}

// Stop halts watching and waits for in-flight processing to finish.
// Stopping a watcher that was never started is a no-op.
func (w *Watcher) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	w.fsw.Close()
	<-w.done
	w.cancel = nil
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)

		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op.Has(fsnotify.Create) {
		// New subdirectories join the watch.
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.fsw.Add(event.Name); err != nil {
				w.logger.Warn("cannot watch new directory", "dir", event.Name, "error", err)
			}
			return
		}
	}
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
		return
	}
	if !isMarkdown(event.Name) {
		return
	}

	w.mu.Lock()
	w.pending[event.Name] = struct{}{}
	w.mu.Unlock()
}

func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = map[string]struct{}{}
	w.mu.Unlock()

	for _, path := range paths {
		if err := w.limiter.Wait(ctx); err != nil {
			return
		}
		if _, err := w.processor.ProcessFile(ctx, path); err != nil {
			w.logger.Warn("reprocess failed", "path", path, "error", err)
		}
	}
}
