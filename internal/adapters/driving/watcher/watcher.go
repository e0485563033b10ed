// Package watcher ingests documents dropped into a directory tree laid out
// as <root>/<subject>/<file>.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/sercha-edu/internal/core/domain"
	"github.com/custodia-labs/sercha-edu/internal/core/ports/driving"
)

// Config holds watcher configuration
type Config struct {
	Root      string
	Ingestion driving.IngestionService
	// Formats lists the file extensions (without dot) worth ingesting
	Formats []string
	// Debounce is how long a file must stay quiet before it is ingested
	Debounce time.Duration
	// InitialScan ingests files already present when Run starts
	InitialScan bool
	Logger      *slog.Logger
}

// Watcher turns file system events into ingestions
type Watcher struct {
	root      string
	ingestion driving.IngestionService
	formats   map[string]bool
	debounce  time.Duration
	scan      bool
	logger    *slog.Logger
}

// New creates a watcher for cfg.Root
func New(cfg Config) (*Watcher, error) {
	if cfg.Ingestion == nil {
		return nil, fmt.Errorf("%w: an ingestion service is required", domain.ErrInvalidInput)
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: root %q: %w", domain.ErrInvalidInput, cfg.Root, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: root %q: %w", domain.ErrInvalidInput, cfg.Root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: root %q is not a directory", domain.ErrInvalidInput, cfg.Root)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	formats := make(map[string]bool, len(cfg.Formats))
	for _, f := range cfg.Formats {
		formats[strings.ToLower(strings.TrimPrefix(f, "."))] = true
	}

	return &Watcher{
		root:      root,
		ingestion: cfg.Ingestion,
		formats:   formats,
		debounce:  debounce,
		scan:      cfg.InitialScan,
		logger:    logger.With("root", root),
	}, nil
}

// Run watches the tree until ctx is cancelled. Subject directories created
// while running are picked up.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.root); err != nil {
		return fmt.Errorf("watch %s: %w", w.root, err)
	}
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return fmt.Errorf("read %s: %w", w.root, err)
	}
	for _, e := range entries {
		if e.IsDir() && !hidden(e.Name()) {
			w.addSubject(fsw, filepath.Join(w.root, e.Name()))
		}
	}

	if w.scan {
		w.Scan(ctx)
	}

	w.logger.Info("watching for documents")

	ready := make(chan string, 64)
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopped")
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, fsw, event, timers, ready)

		case path := <-ready:
			delete(timers, path)
			w.ingest(ctx, path)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, fsw *fsnotify.Watcher, event fsnotify.Event, timers map[string]*time.Timer, ready chan<- string) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	// a new subject directory
	if filepath.Dir(event.Name) == w.root {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !hidden(info.Name()) {
			w.addSubject(fsw, event.Name)
		}
		return
	}

	if _, ok := w.subjectFor(event.Name); !ok || !w.accepts(event.Name) {
		return
	}

	path := event.Name
	if t, ok := timers[path]; ok {
		t.Reset(w.debounce)
		return
	}
	timers[path] = time.AfterFunc(w.debounce, func() {
		select {
		case ready <- path:
		case <-ctx.Done():
		}
	})
}

func (w *Watcher) addSubject(fsw *fsnotify.Watcher, dir string) {
	if err := fsw.Add(dir); err != nil {
		w.logger.Warn("failed to watch subject directory", "dir", dir, "error", err)
		return
	}
	w.logger.Debug("watching subject", "subject", filepath.Base(dir))
}

// Scan ingests every accepted file already in the tree and returns how many
// were ingested
func (w *Watcher) Scan(ctx context.Context) int {
	subjects, err := os.ReadDir(w.root)
	if err != nil {
		w.logger.Warn("failed to scan root", "error", err)
		return 0
	}

	count := 0
	for _, s := range subjects {
		if !s.IsDir() || hidden(s.Name()) {
			continue
		}
		dir := filepath.Join(w.root, s.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			w.logger.Warn("failed to scan subject", "subject", s.Name(), "error", err)
			continue
		}
		for _, f := range files {
			if ctx.Err() != nil {
				return count
			}
			path := filepath.Join(dir, f.Name())
			if f.IsDir() || !w.accepts(path) {
				continue
			}
			if w.ingest(ctx, path) {
				count++
			}
		}
	}
	return count
}

func (w *Watcher) ingest(ctx context.Context, path string) bool {
	subject, ok := w.subjectFor(path)
	if !ok {
		return false
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return false
	}

	logger := w.logger.With("path", path, "subject", subject)
	result, err := w.ingestion.Ingest(ctx, driving.IngestRequest{Path: path, Subject: subject})
	if err != nil {
		if errors.Is(err, domain.ErrIngestInProgress) {
			logger.Info("document is already being ingested, skipping")
		} else {
			logger.Error("failed to ingest document", "error", err)
		}
		return false
	}

	logger.Info("document ingested from watch directory",
		"title", result.Title,
		"chunk_count", result.ChunkCount,
	)
	return true
}

// subjectFor returns the subject of a file at <root>/<subject>/<file>
func (w *Watcher) subjectFor(path string) (string, bool) {
	return SubjectFor(w.root, path)
}

func (w *Watcher) accepts(path string) bool {
	name := filepath.Base(path)
	if hidden(name) {
		return false
	}
	if len(w.formats) == 0 {
		return true
	}
	return w.formats[domain.FormatFromPath(path)]
}

// SubjectFor returns the subject directory a file sits in when path has the
// shape <root>/<subject>/<file>
func SubjectFor(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 2 || parts[0] == ".." || parts[0] == "." || parts[1] == "" {
		return "", false
	}
	if hidden(parts[0]) {
		return "", false
	}
	return parts[0], true
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
