// Package engine answers queries over a log directory: load, filter,
// aggregate. Nothing is cached; every call reads the directory again.
package engine

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/mchurichi/logdash/internal/logger"
	"github.com/mchurichi/logdash/internal/metrics"
	"github.com/mchurichi/logdash/pkg/filter"
	"github.com/mchurichi/logdash/pkg/flow"
	"github.com/mchurichi/logdash/pkg/loader"
	"github.com/mchurichi/logdash/pkg/parser"
	"github.com/mchurichi/logdash/pkg/record"
	"github.com/mchurichi/logdash/pkg/stats"
)

// Config is everything the engine needs to know about its inputs.
type Config struct {
	LogDir string
	// MaxLineSize in bytes; zero means loader.DefaultMaxLineSize.
	MaxLineSize int
}

// Result is the answer to one query.
type Result struct {
	Logs       []*record.Record `json:"logs"`
	Statistics *stats.Bundle    `json:"statistics"`
}

// Engine is safe for concurrent use. It holds configuration only.
type Engine struct {
	loader *loader.Loader
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	parser parser.Parser
}

// WithParser replaces the default line parser.
func WithParser(p parser.Parser) Option {
	return func(o *options) {
		o.parser = p
	}
}

// New creates an Engine for cfg.
func New(cfg Config, opts ...Option) *Engine {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine{
		loader: loader.New(cfg.LogDir,
			loader.WithMaxLineSize(cfg.MaxLineSize),
			loader.WithParser(o.parser),
		),
	}
}

// LogDir returns the directory queries read from.
func (e *Engine) LogDir() string {
	return e.loader.Dir()
}

// Query loads every record, keeps those matching c and aggregates them.
// Invalid criteria fail before any file is read and wrap
// filter.ErrInvalidCriteria.
func (e *Engine) Query(ctx context.Context, c filter.Criteria) (*Result, error) {
	start := time.Now()

	records, err := e.Records(ctx, c)
	if err != nil {
		metrics.ObserveQuery(outcome(err), time.Since(start))
		return nil, err
	}

	res := &Result{
		Logs:       records,
		Statistics: stats.Compute(records),
	}
	metrics.ObserveQuery(metrics.OutcomeOK, time.Since(start))
	logger.Get(ctx).Debugw("query answered", "matched", len(records), "took", time.Since(start))
	return res, nil
}

// Records returns the records matching c, newest first. The slice is
// never nil.
func (e *Engine) Records(ctx context.Context, c filter.Criteria) ([]*record.Record, error) {
	f, err := filter.Compile(c)
	if err != nil {
		return nil, err
	}

	all, err := e.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	metrics.RecordsLoaded.Set(float64(len(all)))

	return filter.Apply(all, f), nil
}

// Stats aggregates the records matching c without returning them.
func (e *Engine) Stats(ctx context.Context, c filter.Criteria) (*stats.Bundle, error) {
	res, err := e.Query(ctx, c)
	if err != nil {
		return nil, err
	}
	return res.Statistics, nil
}

// Flow builds the call graph of the records matching c.
func (e *Engine) Flow(ctx context.Context, c filter.Criteria) (flow.Graph, error) {
	records, err := e.Records(ctx, c)
	if err != nil {
		return flow.Graph{}, err
	}
	return flow.Build(records), nil
}

// Files returns the base names of the eligible log files, sorted.
func (e *Engine) Files(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	paths, err := e.loader.Files()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	return names, nil
}

func outcome(err error) string {
	if errors.Is(err, filter.ErrInvalidCriteria) {
		return metrics.OutcomeInvalid
	}
	return metrics.OutcomeError
}
