package digest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"hashtools/internal/logging"
	"hashtools/internal/progress"
	"hashtools/internal/record"
)

// Options configures a pipeline run.
type Options struct {
	Root      string
	Threads   int
	QueueSize int
	BatchSize int
	ChunkSize int
	// Types restricts scanning to these major content types when non-empty.
	Types    record.TypeFilter
	Detector Detector
	Output   io.Writer
	// Progress receives the status line; nil or a non-terminal disables it.
	Progress         io.Writer
	ProgressInterval time.Duration
	Logger           *slog.Logger
}

// Stats summarizes a finished run.
type Stats struct {
	Discovered   int64
	Processed    int64
	Skipped      int64
	Failed       int64
	Elapsed      time.Duration
	PeakInFlight int
}

// Pipeline scans one root.
type Pipeline struct {
	opts    Options
	root    string
	logger  *slog.Logger
	counter *progress.Counter
	peak    atomic.Int64
}

type job struct {
	path        string
	rel         string
	contentType string
}

// New validates opts and prepares a pipeline. The root must be an existing directory.
func New(opts Options) (*Pipeline, error) {
	root, err := filepath.Abs(strings.TrimSpace(opts.Root))
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, record.Structural(fmt.Errorf("root %s: %w", root, err))
	}
	if !info.IsDir() {
		return nil, record.Structural(fmt.Errorf("root %s: not a directory", root))
	}
	if opts.Output == nil {
		return nil, errors.New("pipeline output is required")
	}
	if opts.Threads <= 0 {
		opts.Threads = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1
	}
	if opts.Detector == nil {
		opts.Detector = MimeDetector{}
	}
	return &Pipeline{
		opts:    opts,
		root:    filepath.Clean(root),
		logger:  logging.NewComponentLogger(opts.Logger, "digest"),
		counter: &progress.Counter{},
	}, nil
}

// Root returns the absolute root being scanned.
func (p *Pipeline) Root() string { return p.root }

// Run scans, fingerprints, and persists every regular file under the root.
// It returns only after the scanner, every worker, and the writer have exited.
func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	started := time.Now()
	p.logger.Info("scan started",
		logging.String(logging.FieldRoot, p.root),
		logging.Int("threads", p.opts.Threads),
		logging.Int("queue_size", p.opts.QueueSize),
		logging.Int("batch_size", p.opts.BatchSize),
	)

	var reporter *progress.Reporter
	if p.opts.Progress != nil {
		reporter = progress.NewReporter(p.opts.Progress, p.opts.ProgressInterval, p.renderProgress)
		reporter.Start(ctx)
	}

	jobs := make(chan job, p.opts.Threads)
	queue := make(chan record.FileRecord, p.opts.QueueSize)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		return p.scan(gctx, jobs)
	})

	var workers sync.WaitGroup
	for i := 0; i < p.opts.Threads; i++ {
		workers.Add(1)
		hasher := NewHasher(p.opts.ChunkSize)
		g.Go(func() error {
			defer workers.Done()
			p.work(gctx, hasher, jobs, queue)
			return nil
		})
	}
	g.Go(func() error {
		workers.Wait()
		close(queue)
		return nil
	})
	g.Go(func() error {
		return p.write(queue)
	})

	err := g.Wait()
	if reporter != nil {
		reporter.Stop()
	}
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}

	stats := p.stats(time.Since(started))
	attrs := []logging.Attr{
		logging.String(logging.FieldRoot, p.root),
		logging.Int64("discovered", stats.Discovered),
		logging.Int64("processed", stats.Processed),
		logging.Int64("skipped", stats.Skipped),
		logging.Int64("failed", stats.Failed),
		logging.Duration("elapsed", stats.Elapsed),
	}
	switch {
	case errors.Is(err, context.Canceled):
		p.logger.Warn("scan interrupted; buffered records flushed", logging.Args(attrs...)...)
	case err != nil:
		p.logger.Error("scan aborted", logging.Args(append(attrs, logging.Error(err))...)...)
	default:
		p.logger.Info("scan finished", logging.Args(attrs...)...)
	}
	return stats, err
}

func (p *Pipeline) stats(elapsed time.Duration) Stats {
	return Stats{
		Discovered:   p.counter.Total.Load(),
		Processed:    p.counter.Done.Load(),
		Skipped:      p.counter.Skipped.Load(),
		Failed:       p.counter.Failed.Load(),
		Elapsed:      elapsed,
		PeakInFlight: int(p.peak.Load()),
	}
}

func (p *Pipeline) scan(ctx context.Context, jobs chan<- job) error {
	err := filepath.WalkDir(p.root, func(path string, d fs.DirEntry, walkErr error) error {
		if ctx.Err() != nil {
			return filepath.SkipAll
		}
		if walkErr != nil {
			if path == p.root {
				return walkErr
			}
			p.counter.Failed.Add(1)
			p.logger.Warn("walk failed", logging.String(logging.FieldPath, path), logging.Error(walkErr))
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		p.counter.Total.Add(1)

		rel, err := filepath.Rel(p.root, path)
		if err != nil {
			p.counter.Failed.Add(1)
			p.logger.Warn("relative path failed", logging.String(logging.FieldPath, path), logging.Error(err))
			return nil
		}
		j := job{path: path, rel: filepath.ToSlash(rel)}

		if len(p.opts.Types) > 0 {
			contentType, err := p.opts.Detector.Detect(path)
			if err != nil {
				p.tally(failed(path, fmt.Errorf("detect content type: %w", err)))
				return nil
			}
			contentType = record.NormalizeContentType(contentType)
			if !p.opts.Types.Allows(contentType) {
				p.tally(skipped(path, "content type "+contentType+" not included"))
				return nil
			}
			j.contentType = contentType
		}

		select {
		case jobs <- j:
			return nil
		case <-ctx.Done():
			return filepath.SkipAll
		}
	})
	if err != nil {
		return fmt.Errorf("walk %s: %w", p.root, err)
	}
	return nil
}

func (p *Pipeline) work(ctx context.Context, hasher *Hasher, jobs <-chan job, queue chan<- record.FileRecord) {
	for j := range jobs {
		if ctx.Err() != nil {
			return
		}
		outcome := p.process(hasher, j)
		if outcome.Kind != Recorded {
			p.tally(outcome)
			continue
		}
		select {
		case queue <- outcome.Record:
		case <-ctx.Done():
			return
		}
	}
}

func (p *Pipeline) process(hasher *Hasher, j job) Outcome {
	sum, info, err := hasher.SumFile(j.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return skipped(j.path, "removed before it was read")
		}
		return failed(j.path, err)
	}
	contentType := j.contentType
	if contentType == "" {
		detected, err := p.opts.Detector.Detect(j.path)
		if err != nil {
			return failed(j.path, fmt.Errorf("detect content type: %w", err))
		}
		contentType = record.NormalizeContentType(detected)
	}
	return recorded(j.path, record.FromFileInfo(p.root, j.rel, info, sum, contentType))
}

// tally counts outcomes that do not reach the writer.
func (p *Pipeline) tally(o Outcome) {
	switch o.Kind {
	case Skipped:
		p.counter.Skipped.Add(1)
		p.logger.Debug("file skipped", logging.String(logging.FieldPath, o.Path), logging.String("reason", o.Reason))
	case Failed:
		p.counter.Failed.Add(1)
		p.logger.Warn("file dropped", logging.String(logging.FieldPath, o.Path), logging.Error(o.Err))
	}
}

// write is the only goroutine touching Output. It drains the queue until it
// is closed, so records queued before a cancellation are still flushed.
func (p *Pipeline) write(queue <-chan record.FileRecord) error {
	batch := make([]record.FileRecord, 0, p.opts.BatchSize)
	var buf strings.Builder

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		buf.Reset()
		for _, rec := range batch {
			buf.WriteString(record.Format(rec))
			buf.WriteByte('\n')
		}
		if _, err := io.WriteString(p.opts.Output, buf.String()); err != nil {
			return fmt.Errorf("flush batch of %d records: %w", len(batch), err)
		}
		p.counter.Done.Add(int64(len(batch)))
		batch = batch[:0]
		return nil
	}

	for rec := range queue {
		batch = append(batch, rec)
		p.observeInFlight(len(queue) + len(batch))
		if len(batch) >= p.opts.BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

func (p *Pipeline) observeInFlight(n int) {
	for {
		current := p.peak.Load()
		if int64(n) <= current || p.peak.CompareAndSwap(current, int64(n)) {
			return
		}
	}
}

func (p *Pipeline) renderProgress(elapsed time.Duration) string {
	s := p.counter
	done, total := s.Done.Load(), s.Total.Load()-s.Skipped.Load()-s.Failed.Load()
	rate := progress.Estimate(done, total, elapsed)
	line := fmt.Sprintf("hashed %s/%s", logging.FormatCount(done), logging.FormatCount(total))
	if rate.Percent >= 0 {
		line += fmt.Sprintf(" (%.1f%%)", rate.Percent)
	}
	line += fmt.Sprintf("  %.0f files/s", rate.PerSecond)
	if rate.ETA > 0 {
		line += "  ETA " + logging.FormatDuration(rate.ETA)
	}
	if skippedCount := s.Skipped.Load(); skippedCount > 0 {
		line += fmt.Sprintf("  skipped %s", logging.FormatCount(skippedCount))
	}
	if failedCount := s.Failed.Load(); failedCount > 0 {
		line += fmt.Sprintf("  failed %s", logging.FormatCount(failedCount))
	}
	return line
}
