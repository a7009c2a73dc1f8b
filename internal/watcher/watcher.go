// Package watcher ingests PDFs dropped into inbox directories, using fsnotify with debouncing.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hyperjump/cognidocs/internal/extract"
	"github.com/hyperjump/cognidocs/internal/fileid"
	"github.com/hyperjump/cognidocs/internal/models"
)

const defaultDebounce = 400 * time.Millisecond

// Ingester ingests the document at path under filename.
type Ingester interface {
	IngestFile(ctx context.Context, path, filename string) (*models.DocumentRecord, error)
	// Ingested reports whether filename is already processed from the version with fingerprint.
	Ingested(ctx context.Context, filename, fingerprint string) bool
}

// Watcher watches inbox directories and ingests each new or changed PDF once per version.
// Removing a file from an inbox does not remove its chunks; the knowledge base is append-only.
type Watcher struct {
	ingester  Ingester
	recursive bool
	debounce  time.Duration
	logger    *zap.Logger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	ctx     context.Context
	roots   map[string][]string // root -> directories registered with fsnotify
	pending map[string]*time.Timer
	seen    map[string]string // path -> fingerprint of the version last handed to the ingester
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDebounce sets how long a file must stay quiet before it is ingested.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher that hands PDFs to ingester.
func NewWatcher(ingester Ingester, recursive bool, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		ingester:  ingester,
		recursive: recursive,
		debounce:  defaultDebounce,
		logger:    zap.NewNop(),
		roots:     make(map[string][]string),
		pending:   make(map[string]*time.Timer),
		seen:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching roots (created when missing) and ingests PDFs already present.
// It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context, roots []string) error {
	w.mu.Lock()
	if w.fsw != nil {
		w.mu.Unlock()
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.fsw = fsw
	w.ctx = ctx
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err == nil {
			err = w.addRootLocked(abs)
		}
		if err != nil {
			_ = fsw.Close()
			w.fsw = nil
			w.roots = make(map[string][]string)
			w.mu.Unlock()
			return err
		}
	}
	w.mu.Unlock()

	w.logger.Info("watching inbox directories", zap.Strings("directories", w.Directories()), zap.Bool("recursive", w.recursive))
	go w.loop(ctx, fsw)
	go w.SyncExistingFiles()
	return nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Debug("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if !w.underRoot(path) {
		return
	}
	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if info.IsDir() {
			w.handleNewDirectory(path)
			return
		}
		if isPDF(path) {
			w.schedule(path)
		}
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		w.cancel(path)
		if isPDF(path) {
			w.logger.Debug("file left inbox; stored chunks are kept", zap.String("path", path))
		}
	}
}

// handleNewDirectory watches a directory created (or moved) under a recursive root and
// ingests the PDFs already inside it.
func (w *Watcher) handleNewDirectory(dir string) {
	w.mu.Lock()
	fsw := w.fsw
	w.mu.Unlock()
	if fsw == nil || !w.recursive {
		return
	}
	var added []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := fsw.Add(path); err != nil {
				w.logger.Debug("failed to watch directory", zap.String("path", path), zap.Error(err))
				return nil
			}
			added = append(added, path)
		}
		return nil
	})
	w.mu.Lock()
	for root, dirs := range w.roots {
		if inDir(root, dir) {
			w.roots[root] = append(dirs, added...)
			break
		}
	}
	w.mu.Unlock()
	w.syncDirectory(dir)
}

func (w *Watcher) underRoot(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for root := range w.roots {
		if inDir(root, path) {
			return true
		}
	}
	return false
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func isPDF(path string) bool {
	return extract.Supported(path) && !strings.HasPrefix(filepath.Base(path), ".")
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.ingest(path)
	})
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

// ingest hands path to the ingester unless this exact version was already handed over,
// in this process or, per the ingester's records, in an earlier one.
func (w *Watcher) ingest(path string) {
	fp, err := fileid.Fingerprint(path)
	if err != nil {
		return
	}
	w.mu.Lock()
	if w.seen[path] == fp {
		w.mu.Unlock()
		return
	}
	w.seen[path] = fp
	ctx := w.ctx
	w.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	if w.ingester.Ingested(ctx, filepath.Base(path), fp) {
		w.logger.Debug("inbox document unchanged", zap.String("path", path))
		return
	}
	rec, err := w.ingester.IngestFile(ctx, path, filepath.Base(path))
	if err != nil {
		// Leave the version unseen so a later write retries it.
		w.mu.Lock()
		if w.seen[path] == fp {
			delete(w.seen, path)
		}
		w.mu.Unlock()
		w.logger.Warn("inbox ingestion failed", zap.String("path", path), zap.Error(err))
		return
	}
	w.logger.Info("inbox document ingested", zap.String("path", path), zap.Int("chunks", rec.Chunks))
}

// AddDirectory adds an inbox root and optionally ingests the PDFs already in it.
func (w *Watcher) AddDirectory(root string, syncExisting bool) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	w.mu.Lock()
	if w.fsw == nil {
		w.mu.Unlock()
		return nil
	}
	if _, ok := w.roots[abs]; ok {
		w.mu.Unlock()
		return nil
	}
	if err := w.addRootLocked(abs); err != nil {
		w.mu.Unlock()
		return err
	}
	w.mu.Unlock()
	w.logger.Debug("inbox directory added", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if syncExisting {
		go w.syncDirectory(abs)
	}
	return nil
}

func (w *Watcher) addRootLocked(root string) error {
	root = filepath.Clean(root)
	if err := os.MkdirAll(root, 0755); err != nil {
		return err
	}
	var dirs []string
	if !w.recursive {
		if err := w.fsw.Add(root); err != nil {
			return err
		}
		w.roots[root] = []string{root}
		return nil
	}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return err
		}
		dirs = append(dirs, path)
		return nil
	})
	if err != nil {
		for _, d := range dirs {
			_ = w.fsw.Remove(d)
		}
		return err
	}
	w.roots[root] = dirs
	return nil
}

func (w *Watcher) syncDirectory(root string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && !w.recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if isPDF(path) {
			w.ingest(filepath.Clean(path))
		}
		return nil
	})
}

// RemoveDirectory stops watching root. Documents already ingested stay in the knowledge base.
func (w *Watcher) RemoveDirectory(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	w.mu.Lock()
	defer w.mu.Unlock()
	dirs, ok := w.roots[abs]
	if !ok || w.fsw == nil {
		return nil
	}
	for _, d := range dirs {
		_ = w.fsw.Remove(d)
	}
	delete(w.roots, abs)
	for path, t := range w.pending {
		if inDir(abs, path) {
			t.Stop()
			delete(w.pending, path)
		}
	}
	w.logger.Debug("inbox directory removed", zap.String("path", abs))
	return nil
}

// Directories returns the watched inbox roots in sorted order.
func (w *Watcher) Directories() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.roots))
	for root := range w.roots {
		out = append(out, root)
	}
	sort.Strings(out)
	return out
}

// SyncExistingFiles ingests every PDF currently in the watched roots that has not been ingested
// in its current version.
func (w *Watcher) SyncExistingFiles() {
	for _, root := range w.Directories() {
		w.syncDirectory(root)
	}
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw == nil {
		return
	}
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	_ = w.fsw.Close()
	w.fsw = nil
}
