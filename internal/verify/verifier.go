package verify

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"hashtools/internal/logging"
	"hashtools/internal/preflight"
	"hashtools/internal/progress"
	"hashtools/internal/store"
)

// LockName is the file in the report directory guarding concurrent runs.
const LockName = "consistency.lock"

var (
	// ErrRootUnavailable reports a storage root that is absent or unreadable.
	ErrRootUnavailable = errors.New("storage root unavailable")
	// ErrLocked reports that another run holds the report directory lock.
	ErrLocked = errors.New("another consistency run is active")
)

// Source is the part of the store the verifier reads.
type Source interface {
	StorageRoots(ctx context.Context) ([]string, error)
	CountRoot(ctx context.Context, root string) (int64, error)
	StreamRoot(ctx context.Context, root string, fn func(store.Row) error) error
}

// Options configures a verifier.
type Options struct {
	ReportDir string
	// MaxRuntime bounds the whole run; zero disables the bound.
	MaxRuntime time.Duration
	// Progress receives the status line; nil or a non-terminal disables it.
	Progress         io.Writer
	ProgressInterval time.Duration
	Logger           *slog.Logger
}

// RootReport is the outcome for one storage root.
type RootReport struct {
	Root       string
	Segment    string
	ReportPath string
	Checked    int64
	Missing    int64
	Failed     int64
}

// Verifier checks store rows against the filesystem.
type Verifier struct {
	src      Source
	opts     Options
	logger   *slog.Logger
	counters *progress.Counters
}

// New builds a verifier reading from src.
func New(src Source, opts Options) (*Verifier, error) {
	if src == nil {
		return nil, errors.New("verifier requires a store")
	}
	if strings.TrimSpace(opts.ReportDir) == "" {
		return nil, errors.New("verifier requires a report directory")
	}
	return &Verifier{
		src:      src,
		opts:     opts,
		logger:   logging.NewComponentLogger(opts.Logger, "consistency"),
		counters: progress.NewCounters(),
	}, nil
}

// Counters exposes the per-segment tallies.
func (v *Verifier) Counters() *progress.Counters { return v.counters }

// Run verifies every storage root. Reports are returned in root order.
func (v *Verifier) Run(ctx context.Context) ([]RootReport, error) {
	if err := os.MkdirAll(v.opts.ReportDir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}
	lockPath := filepath.Join(v.opts.ReportDir, LockName)
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, lockPath)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			v.logger.Warn("failed to release consistency lock", logging.Error(err))
		}
	}()

	if v.opts.MaxRuntime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.opts.MaxRuntime)
		defer cancel()
	}

	roots, err := v.src.StorageRoots(ctx)
	if err != nil {
		return nil, fmt.Errorf("list storage roots: %w", err)
	}
	sort.Strings(roots)
	if len(roots) == 0 {
		v.logger.Info("store holds no records")
		return nil, nil
	}
	if err := v.checkRoots(roots); err != nil {
		return nil, err
	}
	v.warnSharedDevices(roots)

	segments := Segments(roots)
	reports := make([]RootReport, len(roots))
	for i, root := range roots {
		reports[i] = RootReport{
			Root:       root,
			Segment:    segments[i],
			ReportPath: filepath.Join(v.opts.ReportDir, ReportName(segments[i])),
		}
		v.counters.Get(segments[i])
	}

	started := time.Now()
	v.logger.Info("consistency check started",
		logging.Int("roots", len(roots)),
		logging.String("report_dir", v.opts.ReportDir),
	)

	var reporter *progress.Reporter
	if v.opts.Progress != nil {
		reporter = progress.NewReporter(v.opts.Progress, v.opts.ProgressInterval, v.renderProgress)
		reporter.Start(ctx)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range reports {
		report := &reports[i]
		g.Go(func() error {
			return v.checkRoot(gctx, report)
		})
	}
	err = g.Wait()
	if reporter != nil {
		reporter.Stop()
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return reports, fmt.Errorf("consistency check interrupted: %w", ctxErr)
		}
		return reports, err
	}

	total := v.counters.Sum()
	v.logger.Info("consistency check finished",
		logging.Int64("checked", total.Done),
		logging.Int64("missing", total.Skipped),
		logging.Int64("failed", total.Failed),
		logging.Duration("elapsed", time.Since(started)),
	)
	return reports, nil
}

func (v *Verifier) checkRoots(roots []string) error {
	var unavailable []string
	for _, root := range roots {
		result := preflight.CheckMounted(root, root)
		if !result.Passed {
			v.logger.Error("storage root unavailable",
				logging.String(logging.FieldRoot, root),
				logging.String("detail", result.Detail),
			)
			unavailable = append(unavailable, result.Detail)
		}
	}
	if len(unavailable) > 0 {
		return fmt.Errorf("%w: %s", ErrRootUnavailable, strings.Join(unavailable, "; "))
	}
	return nil
}

func (v *Verifier) warnSharedDevices(roots []string) {
	byDevice := make(map[uint64]string, len(roots))
	for _, root := range roots {
		dev, err := preflight.DeviceID(root)
		if err != nil {
			v.logger.Debug("device lookup failed", logging.String(logging.FieldRoot, root), logging.Error(err))
			continue
		}
		if first, ok := byDevice[dev]; ok {
			logging.WarnWithImpact(v.logger, "storage roots share a device",
				"shared_device",
				"roots are scanned in parallel without extra throughput",
				logging.String(logging.FieldRoot, root),
				logging.String("shares_with", first),
			)
			continue
		}
		byDevice[dev] = root
	}
}

func (v *Verifier) checkRoot(ctx context.Context, report *RootReport) error {
	counter := v.counters.Get(report.Segment)
	logger := v.logger.With(logging.String(logging.FieldRoot, report.Root))

	if total, err := v.src.CountRoot(ctx, report.Root); err == nil {
		counter.Total.Store(total)
	} else {
		logger.Debug("row count unavailable", logging.Error(err))
	}

	f, err := os.Create(report.ReportPath)
	if err != nil {
		return fmt.Errorf("create report %s: %w", report.ReportPath, err)
	}
	w := bufio.NewWriter(f)

	streamErr := v.src.StreamRoot(ctx, report.Root, func(row store.Row) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, statErr := os.Lstat(row.FullPath)
		counter.Done.Add(1)
		switch {
		case statErr == nil:
			return nil
		case errors.Is(statErr, fs.ErrNotExist):
			counter.Skipped.Add(1)
			if _, err := fmt.Fprintf(w, "%d\t%s\n", row.ID, row.FullPath); err != nil {
				return fmt.Errorf("write report %s: %w", report.ReportPath, err)
			}
		default:
			counter.Failed.Add(1)
			logger.Warn("stat failed",
				logging.String(logging.FieldPath, row.FullPath),
				logging.Error(statErr),
			)
		}
		return nil
	})

	flushErr := w.Flush()
	closeErr := f.Close()
	report.Checked = counter.Done.Load()
	report.Missing = counter.Skipped.Load()
	report.Failed = counter.Failed.Load()

	if streamErr != nil {
		return fmt.Errorf("scan %s: %w", report.Root, streamErr)
	}
	if err := errors.Join(flushErr, closeErr); err != nil {
		return fmt.Errorf("finish report %s: %w", report.ReportPath, err)
	}
	logger.Info("root checked",
		logging.Int64("checked", report.Checked),
		logging.Int64("missing", report.Missing),
		logging.String("report", report.ReportPath),
	)
	return nil
}

func (v *Verifier) renderProgress(elapsed time.Duration) string {
	snaps := v.counters.Snapshot()
	parts := make([]string, 0, len(snaps)+1)
	for _, s := range snaps {
		part := s.Name + " " + logging.FormatCount(s.Done)
		if s.Total > 0 {
			part += "/" + logging.FormatCount(s.Total)
		}
		if s.Skipped > 0 {
			part += " missing " + logging.FormatCount(s.Skipped)
		}
		parts = append(parts, part)
	}
	parts = append(parts, logging.FormatDuration(elapsed))
	return strings.Join(parts, "  |  ")
}
