package batch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/sitescan/internal/model"
	"github.com/nao1215/sitescan/internal/session"
	"github.com/nao1215/sitescan/internal/transport"
)

// countingSender tracks concurrent Send calls.
type countingSender struct {
	delay   time.Duration
	active  atomic.Int32
	maxSeen atomic.Int32
	mu      sync.Mutex
	seen    []string
}

func (s *countingSender) Send(ctx context.Context, id model.ScanIdentifier) transport.RawOutcome {
	n := s.active.Add(1)
	defer s.active.Add(-1)
	for {
		m := s.maxSeen.Load()
		if n <= m || s.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}

	s.mu.Lock()
	s.seen = append(s.seen, id.String())
	s.mu.Unlock()

	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return transport.NetworkError{Kind: model.TransportUnexpected, Err: ctx.Err()}
	}
	if id.String() == "down.example" {
		return transport.NetworkError{Kind: model.TransportConnectionRefused}
	}
	return transport.HTTPOk{StatusCode: 200, Body: []byte(`{"results":{"XSS Test":false}}`)}
}

// TestNewProcessor tests the Processor constructor.
func TestNewProcessor(t *testing.T) {
	t.Parallel()

	factory := func() *session.Controller { return session.NewController(&countingSender{}) }

	t.Run("creates processor with defaults", func(t *testing.T) {
		t.Parallel()

		p := NewProcessor(factory)
		if p.Concurrency() != DefaultConcurrency {
			t.Errorf("expected default concurrency %d, got %d", DefaultConcurrency, p.Concurrency())
		}
		if p.logger == nil {
			t.Error("expected non-nil logger")
		}
	})

	t.Run("applies WithConcurrency option", func(t *testing.T) {
		t.Parallel()

		if p := NewProcessor(factory, WithConcurrency(2)); p.Concurrency() != 2 {
			t.Errorf("expected concurrency 2, got %d", p.Concurrency())
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		if p := NewProcessor(factory, WithConcurrency(0)); p.Concurrency() != DefaultConcurrency {
			t.Errorf("expected default concurrency, got %d", p.Concurrency())
		}
	})
}

// TestProcessor_ProcessBatch tests batch scanning.
func TestProcessor_ProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("scans every target in input order", func(t *testing.T) {
		t.Parallel()

		sender := &countingSender{delay: 10 * time.Millisecond}
		p := NewProcessor(func() *session.Controller { return session.NewController(sender) }, WithConcurrency(2))

		targets := []string{"a.example/", "down.example", "  ", "c.example"}
		results, err := p.ProcessBatch(context.Background(), targets)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != len(targets) {
			t.Fatalf("expected %d results, got %d", len(targets), len(results))
		}

		for i, r := range results {
			if r.Index != i || r.Target != targets[i] {
				t.Errorf("results[%d] = {Index:%d Target:%q}", i, r.Index, r.Target)
			}
		}

		if _, ok := results[0].State.Outcome.(model.Success); !ok {
			t.Errorf("results[0] outcome = %T, expected Success", results[0].State.Outcome)
		}
		if tf, ok := results[1].State.Outcome.(model.TransportFailure); !ok || tf.TransportKind != model.TransportConnectionRefused {
			t.Errorf("results[1] outcome = %#v, expected connection refused", results[1].State.Outcome)
		}
		if !errors.Is(results[2].Err, model.ErrEmptyIdentifier) {
			t.Errorf("results[2].Err = %v, expected ErrEmptyIdentifier", results[2].Err)
		}
		if results[3].Err != nil {
			t.Errorf("results[3].Err = %v", results[3].Err)
		}

		if got := sender.maxSeen.Load(); got > 2 {
			t.Errorf("observed %d concurrent scans, limit was 2", got)
		}
		if len(sender.seen) != 3 {
			t.Errorf("expected 3 sends (blank target never sent), got %v", sender.seen)
		}
	})

	t.Run("cancelled context stops the batch", func(t *testing.T) {
		t.Parallel()

		sender := &countingSender{delay: time.Second}
		p := NewProcessor(func() *session.Controller { return session.NewController(sender) }, WithConcurrency(1))

		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(20*time.Millisecond, cancel)

		results, err := p.ProcessBatch(ctx, []string{"a.example", "b.example", "c.example"})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if len(results) != 3 {
			t.Fatalf("expected 3 results, got %d", len(results))
		}
		if results[2].Err == nil {
			t.Error("expected the last target to carry the cancellation error")
		}
	})

	t.Run("callback sees every target", func(t *testing.T) {
		t.Parallel()

		sender := &countingSender{}
		p := NewProcessor(func() *session.Controller { return session.NewController(sender) })

		var count atomic.Int32
		err := p.ProcessBatchWithCallback(context.Background(), []string{"a.example", "b.example"}, func(r Result) {
			count.Add(1)
			if r.State.Kind != session.StateSettled {
				t.Errorf("target %q not settled: %v", r.Target, r.State.Kind)
			}
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if count.Load() != 2 {
			t.Errorf("callback called %d times, expected 2", count.Load())
		}
	})
}
