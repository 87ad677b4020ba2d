// Package ingest runs the read, filter, map and persist pipeline for one data
// file.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ChrisMcGann/scanmeta/pkg/core"
	"github.com/ChrisMcGann/scanmeta/pkg/filter"
	"github.com/ChrisMcGann/scanmeta/pkg/source"
)

const (
	defaultWorkers   = 4
	defaultBatchSize = 500
)

// ErrScanOrder is reported for a scan whose number does not exceed the
// previous scan's number.
var ErrScanOrder = errors.New("scan numbers must strictly increase")

// ErrorPolicy decides what happens when a single scan cannot be mapped.
type ErrorPolicy int

const (
	// Skip records the failure and continues with the next scan.
	Skip ErrorPolicy = iota
	// Abort stops the run at the first failure.
	Abort
)

func (p ErrorPolicy) String() string {
	if p == Abort {
		return "abort"
	}
	return "skip"
}

// ParseErrorPolicy parses "skip" or "abort".
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "skip", "":
		return Skip, nil
	case "abort":
		return Abort, nil
	default:
		return Skip, fmt.Errorf("invalid error policy %q (want skip or abort)", s)
	}
}

// ScanReader is a streaming source of scans.
type ScanReader interface {
	Next() bool
	Scan() *source.Scan
	Err() error
}

// ScanStore persists mapped entities. Each call must be atomic.
type ScanStore interface {
	SaveScans(ctx context.Context, scans []*core.ScanMetadata) error
}

// Options configures a run
type Options struct {
	Filter    *filter.Config // nil keeps every scan
	Workers   int            // concurrent mappers (default 4)
	BatchSize int            // scans per transaction (default 500)
	OnError   ErrorPolicy
	Logger    *zap.Logger
}

// Failure is a scan that was not stored.
type Failure struct {
	ScanNumber int
	Err        error
}

// Result counts what happened to the scans of a run.
type Result struct {
	Read     int
	Filtered int
	Stored   int
	Failures []Failure
}

// Skipped returns the number of scans dropped because of errors.
func (r *Result) Skipped() int {
	return len(r.Failures)
}

type pipeline struct {
	store      ScanStore
	dataFileID uint
	opts       Options
	log        *zap.Logger
	result     *Result
	batch      []*source.Scan
}

// Run reads every scan from reader and stores the mapped entities under
// dataFileID. Scans are persisted in batches, each in its own transaction, in
// the order they were read. The returned Result is valid even when an error
// is returned.
func Run(ctx context.Context, reader ScanReader, store ScanStore, dataFileID uint, opts Options) (*Result, error) {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	p := &pipeline{
		store:      store,
		dataFileID: dataFileID,
		opts:       opts,
		log:        log.With(zap.Uint("data_file_id", dataFileID)),
		result:     &Result{},
		batch:      make([]*source.Scan, 0, opts.BatchSize),
	}

	if err := p.run(ctx, reader); err != nil {
		return p.result, err
	}

	p.log.Info("ingest complete",
		zap.Int("read", p.result.Read),
		zap.Int("filtered", p.result.Filtered),
		zap.Int("stored", p.result.Stored),
		zap.Int("skipped", p.result.Skipped()))
	return p.result, nil
}

func (p *pipeline) run(ctx context.Context, reader ScanReader) error {
	last := 0
	for reader.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}

		scan := reader.Scan()
		p.result.Read++

		if err := scan.Validate(); err != nil {
			if err := p.fail(scan.OneBasedScanNumber, err); err != nil {
				return err
			}
			continue
		}
		if scan.OneBasedScanNumber <= last {
			err := fmt.Errorf("%w: %d follows %d", ErrScanOrder, scan.OneBasedScanNumber, last)
			if err := p.fail(scan.OneBasedScanNumber, err); err != nil {
				return err
			}
			continue
		}
		last = scan.OneBasedScanNumber

		if p.opts.Filter != nil && !p.opts.Filter.Apply(scan) {
			p.result.Filtered++
			continue
		}

		p.batch = append(p.batch, scan)
		if len(p.batch) >= p.opts.BatchSize {
			if err := p.flush(ctx); err != nil {
				return err
			}
		}
	}

	if err := reader.Err(); err != nil {
		return fmt.Errorf("failed to read scans: %w", err)
	}

	return p.flush(ctx)
}

// fail records a per-scan failure and returns an error when the run must stop.
func (p *pipeline) fail(scanNumber int, err error) error {
	p.result.Failures = append(p.result.Failures, Failure{ScanNumber: scanNumber, Err: err})
	if p.opts.OnError == Abort {
		return fmt.Errorf("aborted at scan %d: %w", scanNumber, err)
	}
	p.log.Warn("skipping scan", zap.Int("scan", scanNumber), zap.Error(err))
	return nil
}

// flush maps the pending batch concurrently and saves it in one call.
func (p *pipeline) flush(ctx context.Context) error {
	if len(p.batch) == 0 {
		return nil
	}

	entities := make([]*core.ScanMetadata, len(p.batch))
	errs := make([]error, len(p.batch))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i, scan := range p.batch {
		i, scan := i, scan
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entities[i], errs[i] = core.FromScan(p.dataFileID, scan)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	mapped := make([]*core.ScanMetadata, 0, len(entities))
	for i, err := range errs {
		if err != nil {
			if err := p.fail(p.batch[i].OneBasedScanNumber, err); err != nil {
				return err
			}
			continue
		}
		mapped = append(mapped, entities[i])
	}

	if err := p.store.SaveScans(ctx, mapped); err != nil {
		return fmt.Errorf("failed to save batch: %w", err)
	}
	p.result.Stored += len(mapped)
	p.log.Debug("stored batch", zap.Int("scans", len(mapped)))

	clear(p.batch)
	p.batch = p.batch[:0]
	return nil
}
