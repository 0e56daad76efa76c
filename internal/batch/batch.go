package batch

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sitescan/internal/session"
)

// DefaultConcurrency is the number of targets scanned at once.
const DefaultConcurrency = 4

// Result is the settlement of one target.
type Result struct {
	// Index is the target's position in the input slice.
	Index int

	// Target is the raw target as given.
	Target string

	// State is the settled session state; zero when Err is set.
	State session.State

	// Err is a validation or cancellation error. Scan failures are never
	// errors; they are outcomes inside State.
	Err error
}

// Processor scans multiple targets concurrently.
type Processor struct {
	// controllerFactory creates a fresh controller for each target.
	controllerFactory func() *session.Controller

	concurrency int
	logger      *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets a custom logger for batch processing.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent scans.
func WithConcurrency(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// NewProcessor creates a Processor. controllerFactory is called once per target.
func NewProcessor(controllerFactory func() *session.Controller, opts ...Option) *Processor {
	p := &Processor{
		controllerFactory: controllerFactory,
		concurrency:       DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Concurrency returns the configured concurrency limit.
func (p *Processor) Concurrency() int {
	return p.concurrency
}

// ProcessBatch scans every target and returns the results in input order.
// The error is non-nil only when ctx was cancelled; targets not yet started
// then carry ctx.Err() in their Result.
func (p *Processor) ProcessBatch(ctx context.Context, targets []string) ([]Result, error) {
	results := make([]Result, len(targets))
	settled := make([]bool, len(targets))
	err := p.ProcessBatchWithCallback(ctx, targets, func(r Result) {
		// Each index is written by exactly one goroutine.
		results[r.Index] = r
		settled[r.Index] = true
	})
	for i := range results {
		if !settled[i] {
			results[i] = Result{Index: i, Target: targets[i], Err: err}
		}
	}
	return results, err
}

// ProcessBatchWithCallback scans every target and calls callback as each
// one settles. The callback runs on the scanning goroutine and must be safe
// for concurrent use.
func (p *Processor) ProcessBatchWithCallback(ctx context.Context, targets []string, callback func(Result)) error {
	p.logger.Info("starting batch scan",
		"total_targets", len(targets),
		"concurrency", p.concurrency,
	)
	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, target := range targets {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			p.logger.Info("scanning target", "target", target, "index", i+1, "total", len(targets))

			controller := p.controllerFactory()
			defer controller.Close()

			st, err := controller.Scan(ctx, target)
			if err != nil {
				p.logger.Warn("scan not completed", "target", target, "error", err)
			} else {
				p.logger.Info("scan settled", "target", target, "outcome", st.Outcome.Kind().String())
			}
			callback(Result{Index: i, Target: target, State: st, Err: err})
			return nil
		})
	}

	err := g.Wait()
	p.logger.Info("batch scan complete",
		"total_targets", len(targets),
		"elapsed", time.Since(startTime),
	)
	return err
}
