// Package ingest downloads grant pages for a date range and hands the mapped
// records to a patent.Store.
package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/grantsync/internal/domain/patent"
	"github.com/turtacn/grantsync/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/grantsync/internal/infrastructure/uspto"
	"github.com/turtacn/grantsync/pkg/errors"
)

const (
	DefaultRowStart       = 0
	DefaultRowCount       = 100
	DefaultFlushThreshold = 1000
)

// PageSource returns the raw body of one grants page.
type PageSource interface {
	GetPage(ctx context.Context, q uspto.Query) ([]byte, error)
}

// PageArchive stores raw page bodies.
type PageArchive interface {
	ArchivePage(ctx context.Context, start, end patent.Date, rowStart int, body []byte) error
}

// Metrics receives fetch observations.
type Metrics interface {
	ObserveRequest(outcome string, elapsed time.Duration)
	ObservePage(records int)
	ObserveFlush(records int, elapsed time.Duration)
	ObserveBuffered(records int)
	ObserveFailure(kind string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveRequest(string, time.Duration) {}
func (nopMetrics) ObservePage(int)                      {}
func (nopMetrics) ObserveFlush(int, time.Duration)      {}
func (nopMetrics) ObserveBuffered(int)                  {}
func (nopMetrics) ObserveFailure(string)                {}

// Summary describes a completed fetch run.
type Summary struct {
	RunID          string
	Pages          int
	RecordsFetched int
	RecordsFlushed int
	Flushes        int
	UpstreamTotal  int
	Duration       time.Duration
}

// Fetcher pages through the grants API for a date range.  It is
// single-threaded: one request in flight, pages strictly in order, and every
// flush blocks until the store returns.
type Fetcher struct {
	source         PageSource
	store          patent.Store
	archive        PageArchive
	metrics        Metrics
	logger         logging.Logger
	rowStart       int
	rowCount       int
	flushThreshold int
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithRowStart sets the offset of the first page request.
func WithRowStart(n int) Option {
	return func(f *Fetcher) { f.rowStart = n }
}

// WithRowCount sets the page size.
func WithRowCount(n int) Option {
	return func(f *Fetcher) { f.rowCount = n }
}

// WithFlushThreshold sets how many buffered records trigger a Save.
func WithFlushThreshold(n int) Option {
	return func(f *Fetcher) { f.flushThreshold = n }
}

// WithArchive hands every raw page body to a before it is mapped.
func WithArchive(a PageArchive) Option {
	return func(f *Fetcher) { f.archive = a }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(f *Fetcher) {
		if m != nil {
			f.metrics = m
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFetcher returns a Fetcher reading pages from source and saving into
// store.
func NewFetcher(source PageSource, store patent.Store, opts ...Option) (*Fetcher, error) {
	if source == nil {
		return nil, errors.Validation("page source is required")
	}
	if store == nil {
		return nil, errors.Validation("store is required")
	}
	f := &Fetcher{
		source:         source,
		store:          store,
		metrics:        nopMetrics{},
		logger:         logging.NewNopLogger(),
		rowStart:       DefaultRowStart,
		rowCount:       DefaultRowCount,
		flushThreshold: DefaultFlushThreshold,
	}
	for _, opt := range opts {
		opt(f)
	}
	switch {
	case f.rowStart < 0:
		return nil, errors.Validation("row start must be >= 0")
	case f.rowCount < 1:
		return nil, errors.Validation("row count must be >= 1")
	case f.flushThreshold < 1:
		return nil, errors.Validation("flush threshold must be >= 1")
	}
	f.logger = f.logger.Named("fetcher")
	return f, nil
}

// Fetch downloads every page of grants in [start, end] and saves them.
//
// Records are buffered and saved whenever the buffer reaches the flush
// threshold, then once more at the end.  If a page fails, records flushed
// before it stay in the store and buffered ones are dropped; the failing
// page and everything after it are never saved.
func (f *Fetcher) Fetch(ctx context.Context, start, end patent.Date) (*Summary, error) {
	if err := patent.ValidateRange(start, end); err != nil {
		f.metrics.ObserveFailure(failureKind(err))
		return nil, err
	}

	began := time.Now()
	sum := &Summary{RunID: uuid.New().String()}
	log := f.logger.With(
		logging.String("run_id", sum.RunID),
		logging.Stringer("start", start),
		logging.Stringer("end", end),
	)
	log.Info("fetch started", logging.Int("row_start", f.rowStart), logging.Int("row_count", f.rowCount))

	var buf []patent.Patent
	rowStart := f.rowStart
	for {
		page, err := f.fetchPage(ctx, start, end, rowStart)
		sum.Pages++
		if err != nil {
			return nil, f.fail(log, sum, rowStart, err)
		}

		sum.RecordsFetched += len(page.Patents)
		sum.UpstreamTotal = page.Total
		buf = append(buf, page.Patents...)
		f.metrics.ObserveBuffered(len(buf))

		if len(buf) >= f.flushThreshold {
			if err := f.flush(ctx, log, sum, buf); err != nil {
				return nil, f.fail(log, sum, rowStart, err)
			}
			buf = nil
			f.metrics.ObserveBuffered(0)
		}

		rowStart += f.rowCount
		if rowStart >= page.Total {
			break
		}
	}

	if err := f.flush(ctx, log, sum, buf); err != nil {
		return nil, f.fail(log, sum, rowStart, err)
	}
	f.metrics.ObserveBuffered(0)

	sum.Duration = time.Since(began)
	log.Info("fetch completed",
		logging.Int("pages", sum.Pages),
		logging.Int("records", sum.RecordsFetched),
		logging.Int("flushes", sum.Flushes),
		logging.Duration("duration", sum.Duration))
	return sum, nil
}

func (f *Fetcher) fetchPage(ctx context.Context, start, end patent.Date, rowStart int) (*uspto.Page, error) {
	q := uspto.Query{From: start, To: end, Start: rowStart, Rows: f.rowCount}

	began := time.Now()
	body, err := f.source.GetPage(ctx, q)
	if err != nil {
		f.metrics.ObserveRequest("error", time.Since(began))
		return nil, err
	}
	f.metrics.ObserveRequest("ok", time.Since(began))

	if f.archive != nil {
		if err := f.archive.ArchivePage(ctx, start, end, rowStart, body); err != nil {
			return nil, err
		}
	}

	page, err := uspto.DecodePage(body)
	if err != nil {
		return nil, err
	}
	f.metrics.ObservePage(len(page.Patents))
	return page, nil
}

func (f *Fetcher) flush(ctx context.Context, log logging.Logger, sum *Summary, buf []patent.Patent) error {
	if len(buf) == 0 {
		return nil
	}
	began := time.Now()
	if err := f.store.Save(ctx, buf); err != nil {
		return err
	}
	elapsed := time.Since(began)
	f.metrics.ObserveFlush(len(buf), elapsed)
	sum.Flushes++
	sum.RecordsFlushed += len(buf)
	log.Debug("buffer flushed", logging.Int("records", len(buf)), logging.Duration("latency", elapsed))
	return nil
}

func (f *Fetcher) fail(log logging.Logger, sum *Summary, rowStart int, err error) error {
	kind := failureKind(err)
	f.metrics.ObserveFailure(kind)
	// buffered records are dropped
	f.metrics.ObserveBuffered(0)
	log.Error("fetch failed",
		logging.String("kind", kind),
		logging.Int("row_start", rowStart),
		logging.Int("pages", sum.Pages),
		logging.Int("records_flushed", sum.RecordsFlushed),
		logging.Err(err))
	return err
}

// LoadFromStore returns the stored records granted in [start, end].
func (f *Fetcher) LoadFromStore(ctx context.Context, start, end patent.Date) ([]patent.Patent, error) {
	if err := patent.ValidateRange(start, end); err != nil {
		return nil, err
	}
	return f.store.Load(ctx, start, end)
}

func failureKind(err error) string {
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidRange:
		return "invalid_range"
	case errors.ErrCodeUpstream:
		return "upstream"
	case errors.ErrCodeParse:
		return "parse"
	case errors.ErrCodeStorage:
		return "archive"
	case errors.ErrCodeDBConnection, errors.ErrCodeDBQuery, errors.ErrCodeSerialization:
		return "store"
	case errors.ErrCodeMessaging:
		return "publish"
	default:
		return "other"
	}
}
