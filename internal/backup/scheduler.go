package backup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// snapshotNameRegex validates snapshot file names before retention deletes
// anything. Only files this package created are ever removed.
var snapshotNameRegex = regexp.MustCompile(`^arcana-ledger-\d{8}-\d{6}\.db(\.manifest\.json)?$`)

// Scheduler takes periodic snapshots of the ledger database and prunes old
// ones. When an uploader is configured, each snapshot and its manifest are
// also shipped off-host.
type Scheduler struct {
	dbPath    string
	dir       string
	interval  time.Duration
	retention time.Duration // 0 means keep everything
	uploader  *Uploader     // nil means local snapshots only

	mu      sync.Mutex
	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler. retentionDays of 0 disables pruning and
// uploader may be nil.
func NewScheduler(dbPath, dir string, interval time.Duration, retentionDays int, uploader *Uploader) *Scheduler {
	return &Scheduler{
		dbPath:    dbPath,
		dir:       dir,
		interval:  interval,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		uploader:  uploader,
	}
}

// Start begins the scheduler's background goroutine. Non-blocking.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return fmt.Errorf("scheduler already running")
	}

	s.stopCh = make(chan struct{})
	s.running.Store(true)

	s.wg.Add(1)
	go s.run(ctx)

	slog.Info("backup scheduler started", "interval", s.interval, "dir", s.dir)
	return nil
}

// Stop gracefully stops the scheduler, waiting for a snapshot in progress.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running.Load() {
		s.mu.Unlock()
		return
	}
	s.running.Store(false)
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	slog.Info("backup scheduler stopped")
}

// IsRunning returns whether the scheduler is currently running.
func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// RunOnce takes one snapshot, uploads it when configured, and prunes.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	snapshot, err := Create(s.dbPath, s.dir)
	if err != nil {
		return fmt.Errorf("snapshot failed: %w", err)
	}

	slog.Info("ledger snapshot created",
		"path", snapshot.Path,
		"size_bytes", snapshot.Manifest.SizeBytes,
		"transactions", snapshot.Manifest.Transactions,
	)

	if s.uploader != nil {
		if err := s.upload(ctx, snapshot); err != nil {
			return fmt.Errorf("snapshot upload failed: %w", err)
		}
	}

	if s.retention > 0 {
		s.prune(time.Now().Add(-s.retention))
	}

	return nil
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if err := s.RunOnce(ctx); err != nil {
		slog.Error("scheduled backup failed", "error", err)
	}
}

func (s *Scheduler) upload(ctx context.Context, snapshot *Snapshot) error {
	for _, local := range []string{snapshot.Path, snapshot.Path + manifestSuffix} {
		f, err := os.Open(local)
		if err != nil {
			return err
		}

		key := path.Join("snapshots", filepath.Base(local))
		err = s.uploader.Upload(ctx, key, f)
		f.Close()
		if err != nil {
			return err
		}

		slog.Info("snapshot uploaded", "key", key)
	}
	return nil
}

// prune removes snapshot files older than the cutoff. Names are validated
// strictly so nothing else in the directory is touched.
func (s *Scheduler) prune(cutoff time.Time) {
	absDir, err := filepath.Abs(s.dir)
	if err != nil {
		slog.Error("failed to resolve snapshot directory", "error", err)
		return
	}

	entries, err := os.ReadDir(absDir)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("failed to read snapshot directory", "error", err)
		}
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !snapshotNameRegex.MatchString(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		target := filepath.Join(absDir, entry.Name())
		if !strings.HasPrefix(target, absDir+string(filepath.Separator)) {
			slog.Warn("skipping prune: path escapes snapshot directory", "name", entry.Name())
			continue
		}

		if err := os.Remove(target); err != nil {
			slog.Error("failed to remove old snapshot", "path", entry.Name(), "error", err)
		} else {
			slog.Info("removed old snapshot", "path", entry.Name(),
				"age_days", int(time.Since(info.ModTime()).Hours()/24))
		}
	}
}
