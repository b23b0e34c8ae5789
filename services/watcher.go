package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"webpagegenie/internal/config"
	"webpagegenie/internal/ingest"
	"webpagegenie/internal/logger"

	"github.com/fsnotify/fsnotify"
)

const debounceWindow = 500 * time.Millisecond

// Notifier pushes live-reload events to connected pages.
type Notifier interface {
	BroadcastReload(slug string)
}

// Watcher re-ingests pages the moment their markup changes on disk, so
// edits made in an external editor land in the index and in open
// browser tabs without a restart. Bursts of events for the same file
// are debounced.
type Watcher struct {
	cfg      *config.Config
	ingester *ingest.Service
	notifier Notifier

	mu      sync.Mutex
	pending map[string]*time.Timer

	watcher *fsnotify.Watcher
	done    chan struct{}
}

func NewWatcher(cfg *config.Config, ingester *ingest.Service, notifier Notifier) *Watcher {
	return &Watcher{
		cfg:      cfg,
		ingester: ingester,
		notifier: notifier,
		pending:  map[string]*time.Timer{},
		done:     make(chan struct{}),
	}
}

// Start begins watching the pages tree. New page directories are picked
// up as they appear.
func (w *Watcher) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = fw

	if err := os.MkdirAll(w.cfg.PagesDir, 0o755); err != nil {
		fw.Close()
		return err
	}
	if err := w.addRecursive(w.cfg.PagesDir); err != nil {
		fw.Close()
		return err
	}

	go w.loop()
	logger.Info("Page watcher started", "dir", w.cfg.PagesDir)
	return nil
}

func (w *Watcher) Stop() {
	close(w.done)
	if w.watcher != nil {
		w.watcher.Close()
	}
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && filepath.Base(path) != "versions" && filepath.Base(path) != "assets" {
			return w.watcher.Add(path)
		}
		return nil
	})
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// A new page directory needs its own watch before its index.html
	// shows up.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			base := filepath.Base(event.Name)
			if base != "versions" && base != "assets" {
				_ = w.watcher.Add(event.Name)
			}
			return
		}
	}

	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
		return
	}
	name := filepath.Base(event.Name)
	if !strings.HasSuffix(strings.ToLower(name), ".html") || strings.HasPrefix(name, ".") {
		return
	}
	if strings.Contains(event.Name, string(filepath.Separator)+"versions"+string(filepath.Separator)) {
		return
	}

	w.debounce(event.Name)
}

// debounce coalesces the event burst a single save produces into one
// ingest per file.
func (w *Watcher) debounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Stop()
	}
	w.pending[path] = time.AfterFunc(debounceWindow, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.reingest(path)
	})
}

func (w *Watcher) reingest(path string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	slug, n, err := w.ingester.IngestFile(ctx, path)
	if err != nil {
		logger.Error("Watcher re-ingest failed", "path", path, "error", err)
		return
	}
	logger.Info("Watcher re-ingested page", "slug", slug, "chunks", n)
	if w.notifier != nil {
		w.notifier.BroadcastReload(slug)
	}
}
