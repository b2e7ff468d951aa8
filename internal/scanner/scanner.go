// Package scanner watches directories for document changes and keeps the
// index in sync: new files are ingested, changed files replaced, removed
// files deleted.
package scanner

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alexandria-kb/alexandria/internal/document"
)

// Ingestor is the slice of the pipeline the scanner drives.
type Ingestor interface {
	IngestFile(ctx context.Context, path string) (*document.Document, bool, error)
	Reprocess(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID, hard bool, reason string) error
}

// DocumentLookup resolves a content fingerprint to its document.
type DocumentLookup interface {
	GetDocumentByHash(ctx context.Context, hash string) (*document.Document, error)
}

// Config holds scanner settings.
type Config struct {
	Interval   time.Duration
	HardDelete bool
	Dirs       []string
}

// Status is a point-in-time view of the scanner for the admin API.
type Status struct {
	Running          bool      `json:"running"`
	WatchDirectories []string  `json:"watch_directories"`
	KnownFiles       int       `json:"known_files"`
	LastScan         time.Time `json:"last_scan"`
	LastScanChanges  int       `json:"last_scan_changes"`
}

// Scanner periodically fingerprints watched trees and reconciles the diff
// against the index. The previous snapshot is owned by the scanner
// instance; it is swapped in before dispatching so a crashed dispatch never
// replays work for files already accounted for.
type Scanner struct {
	ingestor Ingestor
	lookup   DocumentLookup
	logger   *slog.Logger

	interval   time.Duration
	hardDelete bool

	mu       sync.Mutex
	dirs     []string
	prev     Snapshot
	running  bool
	lastScan time.Time
	lastDiff int
}

// New creates a Scanner. Run starts the periodic loop; ScanCycle can also
// be invoked directly.
func New(ingestor Ingestor, lookup DocumentLookup, cfg Config, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	dirs := make([]string, len(cfg.Dirs))
	copy(dirs, cfg.Dirs)
	return &Scanner{
		ingestor:   ingestor,
		lookup:     lookup,
		logger:     logger,
		interval:   cfg.Interval,
		hardDelete: cfg.HardDelete,
		dirs:       dirs,
		prev:       Snapshot{},
	}
}

// Run executes scan cycles until ctx is cancelled. Cancellation is honored
// at the sleep boundary; an in-progress cycle finishes first.
func (s *Scanner) Run(ctx context.Context) {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.ScanCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scanner stopped")
			return
		case <-ticker.C:
			s.ScanCycle(ctx)
		}
	}
}

// ScanCycle walks the watched directories once and reconciles changes.
func (s *Scanner) ScanCycle(ctx context.Context) {
	s.mu.Lock()
	dirs := slices.Clone(s.dirs)
	prev := s.prev
	s.mu.Unlock()

	curr := s.takeSnapshot(dirs)
	diff := DiffSnapshots(prev, curr)

	// Swap state before dispatch: per-file failures are logged and retried
	// naturally on the next content change, not replayed every cycle.
	changes := len(diff.New) + len(diff.Modified) + len(diff.Deleted)
	s.mu.Lock()
	s.prev = curr
	s.lastScan = time.Now()
	s.lastDiff = changes
	s.mu.Unlock()

	if diff.Empty() {
		return
	}
	s.logger.Info("scan cycle found changes",
		"new", len(diff.New), "modified", len(diff.Modified), "deleted", len(diff.Deleted))

	for _, path := range diff.New {
		if _, _, err := s.ingestor.IngestFile(ctx, path); err != nil {
			s.logger.Warn("ingesting new file", "path", path, "error", err)
		}
	}
	for _, path := range diff.Modified {
		s.replaceFile(ctx, prev[path], path)
	}
	for _, path := range diff.Deleted {
		s.removeByHash(ctx, prev[path], path)
	}
}

// replaceFile routes a changed file back through its existing document:
// the row found by the previous fingerprint is reprocessed in place, so
// document identity survives edits. When the old fingerprint resolves to
// nothing the content is ingested as new.
func (s *Scanner) replaceFile(ctx context.Context, oldHash, path string) {
	doc, err := s.lookup.GetDocumentByHash(ctx, oldHash)
	if err != nil {
		if _, _, err := s.ingestor.IngestFile(ctx, path); err != nil {
			s.logger.Warn("ingesting modified file", "path", path, "error", err)
		}
		return
	}
	if err := s.ingestor.Reprocess(ctx, doc.ID); err != nil {
		s.logger.Warn("reprocessing modified file", "path", path, "id", doc.ID, "error", err)
	}
}

func (s *Scanner) removeByHash(ctx context.Context, hash, path string) {
	doc, err := s.lookup.GetDocumentByHash(ctx, hash)
	if err != nil {
		// Already gone, or was never successfully registered.
		s.logger.Debug("no document for removed file", "path", path, "error", err)
		return
	}
	if err := s.ingestor.Delete(ctx, doc.ID, s.hardDelete, path); err != nil {
		s.logger.Warn("deleting document for removed file", "path", path, "id", doc.ID, "error", err)
	}
}

// takeSnapshot fingerprints every supported file under the watched
// directories. Unreadable files are skipped; they will be picked up on a
// later cycle once readable.
func (s *Scanner) takeSnapshot(dirs []string) Snapshot {
	snap := Snapshot{}
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				s.logger.Debug("walking", "path", path, "error", err)
				return nil
			}
			if d.IsDir() {
				return nil
			}
			ext := strings.ToLower(filepath.Ext(path))
			if _, ok := document.TypeForExtension(ext); !ok {
				return nil
			}
			hash, err := document.FingerprintFile(path)
			if err != nil {
				s.logger.Debug("fingerprinting", "path", path, "error", err)
				return nil
			}
			snap[path] = hash
			return nil
		})
		if err != nil {
			s.logger.Warn("scanning directory", "dir", dir, "error", err)
		}
	}
	return snap
}

// ForceReindex forgets the previous snapshot and scans immediately, so
// every present file is treated as new. Existing documents deduplicate by
// fingerprint, making this safe to call at any time.
func (s *Scanner) ForceReindex(ctx context.Context) {
	s.mu.Lock()
	s.prev = Snapshot{}
	s.mu.Unlock()
	s.ScanCycle(ctx)
}

// AddWatchDirectory adds a directory to the watch set. Takes effect on the
// next cycle.
func (s *Scanner) AddWatchDirectory(dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Contains(s.dirs, dir) {
		return
	}
	s.dirs = append(s.dirs, dir)
}

// RemoveWatchDirectory stops watching a directory. Documents already
// indexed from it are kept; only future change tracking stops.
func (s *Scanner) RemoveWatchDirectory(dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirs = slices.DeleteFunc(s.dirs, func(d string) bool { return d == dir })

	// Drop snapshot entries under the removed directory so its files are
	// not reported as deleted on the next cycle.
	prefix := dir + string(filepath.Separator)
	for path := range s.prev {
		if path == dir || strings.HasPrefix(path, prefix) {
			delete(s.prev, path)
		}
	}
}

// Status reports the current scanner state.
func (s *Scanner) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	dirs := slices.Clone(s.dirs)
	sort.Strings(dirs)
	return Status{
		Running:          s.running,
		WatchDirectories: dirs,
		KnownFiles:       len(s.prev),
		LastScan:         s.lastScan,
		LastScanChanges:  s.lastDiff,
	}
}
