// Package watch subtitles media files as they appear in a directory.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/legendai/legendai/internal/logging"
	"github.com/legendai/legendai/internal/media"
	"github.com/legendai/legendai/internal/subtitle"
)

const defaultSettleDelay = 2 * time.Second

// Handler produces subtitles for one media file.
type Handler func(ctx context.Context, mediaPath string) error

type Options struct {
	Format       subtitle.Format
	SettleDelay  time.Duration // quiet period after the last write before a file is handled
	ScanExisting bool          // also handle media already in the directory at startup
}

type Watcher struct {
	dir    string
	opts   Options
	handle Handler
	logger *logging.Logger

	mu       sync.Mutex
	timers   map[string]*time.Timer
	inFlight map[string]bool
	redo     map[string]bool // changed while its handler ran
	stopped  bool
	wg       sync.WaitGroup
}

func New(dir string, handle Handler, opts Options, logger *logging.Logger) *Watcher {
	if opts.Format == "" {
		opts.Format = subtitle.FormatSRT
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = defaultSettleDelay
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Watcher{
		dir:      dir,
		opts:     opts,
		handle:   handle,
		logger:   logger,
		timers:   make(map[string]*time.Timer),
		inFlight: make(map[string]bool),
		redo:     make(map[string]bool),
	}
}

// SubtitlePath is where the subtitles for mediaPath are written.
func SubtitlePath(mediaPath string, format subtitle.Format) string {
	base := strings.TrimSuffix(mediaPath, filepath.Ext(mediaPath))
	return base + subtitle.ExtensionForFormat(format)
}

// ShouldHandle reports whether path is a visible media file without
// subtitles next to it.
func (w *Watcher) ShouldHandle(path string) bool {
	return isMediaFile(path) && !w.hasSubtitles(path)
}

func isMediaFile(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || !media.IsMediaFile(name) {
		return false
	}

	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func (w *Watcher) hasSubtitles(path string) bool {
	_, err := os.Stat(SubtitlePath(path, w.opts.Format))
	return err == nil
}

// Run watches the directory until ctx is canceled. Handlers still running
// at that point are waited for.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		if err := fsw.Close(); err != nil {
			w.logger.Warnw("Failed to close watcher", "error", err)
		}
	}()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	w.logger.Infow("Watching directory", "dir", w.dir, "format", w.opts.Format)

	if w.opts.ScanExisting {
		w.scan(ctx)
	}

	defer w.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				w.schedule(ctx, event.Name)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warnw("Watcher error", "error", err)
		}
	}
}

func (w *Watcher) scan(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warnw("Failed to scan directory", "dir", w.dir, "error", err)
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			w.schedule(ctx, filepath.Join(w.dir, entry.Name()))
		}
	}
}

// schedule restarts the settle timer for path; the handler runs once the
// file has been quiet for the settle delay.
func (w *Watcher) schedule(ctx context.Context, path string) {
	if !media.IsMediaFile(path) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.armLocked(ctx, path)
}

// armLocked starts or resets the settle timer for path. w.mu must be held.
func (w *Watcher) armLocked(ctx context.Context, path string) {
	if w.stopped {
		return
	}
	if t, ok := w.timers[path]; ok {
		t.Reset(w.opts.SettleDelay)
		return
	}
	w.timers[path] = time.AfterFunc(w.opts.SettleDelay, func() {
		w.fire(ctx, path)
	})
}

// fire handles path after its settle delay. A file that changed while its
// handler was running is handled again once that run ends, replacing the
// subtitles made from the older content.
func (w *Watcher) fire(ctx context.Context, path string) {
	w.mu.Lock()
	delete(w.timers, path)
	if w.stopped || ctx.Err() != nil {
		w.mu.Unlock()
		return
	}
	if w.inFlight[path] {
		w.redo[path] = true
		w.mu.Unlock()
		return
	}
	rerun := w.redo[path]
	delete(w.redo, path)
	w.inFlight[path] = true
	w.wg.Add(1)
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		delete(w.inFlight, path)
		if w.redo[path] {
			w.armLocked(ctx, path)
		}
		w.mu.Unlock()
		w.wg.Done()
	}()

	w.process(ctx, path, rerun)
}

func (w *Watcher) process(ctx context.Context, path string, rerun bool) {
	if !isMediaFile(path) || (!rerun && w.hasSubtitles(path)) {
		w.logger.Debugw("Skipping file", "path", path)
		return
	}

	w.logger.Infow("Generating subtitles", "path", path)
	start := time.Now()
	if err := w.handle(ctx, path); err != nil {
		w.logger.Errorw("Failed to generate subtitles", "path", path, "error", err)
		return
	}
	w.logger.Infow("Subtitles written",
		"path", SubtitlePath(path, w.opts.Format),
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
	)
}

func (w *Watcher) stop() {
	w.mu.Lock()
	w.stopped = true
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
	w.mu.Unlock()

	w.wg.Wait()
}
