// Package workers resolves batches of IP/CIDR queries against the AWS IP
// Ranges with bounded concurrency and an optional rate limit. Results come
// back in input order so bulk output lines up with bulk input.
package workers

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/time/rate"

	"awsipranges/pkg/model"
)

// LookupFunc resolves a single query string. Classify failures by returning
// model.ErrInvalidPrefix (unparsable query) or model.ErrNotFound (no
// covering AWS prefix), possibly wrapped.
type LookupFunc func(ctx context.Context, query string) (*model.LookupResult, error)

// Outcome pairs a query with its lookup result or error.
type Outcome struct {
	Query  string
	Result *model.LookupResult
	Err    error
}

// Summary tallies a batch by outcome class.
type Summary struct {
	Found    int
	NotFound int
	Invalid  int
	Failed   int
}

// Config sizes a Pool.
type Config struct {
	Workers   int     // concurrent lookups; minimum 1
	RateLimit float64 // lookups per second (0 = unlimited)
}

// Pool is a reusable bulk-lookup executor.
type Pool struct {
	workers int
	limiter *rate.Limiter
}

// New creates a Pool from the given configuration.
func New(cfg Config) *Pool {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), workers)
	}
	return &Pool{workers: workers, limiter: limiter}
}

// Run resolves every query and returns the outcomes in input order along
// with a tally. Cancelling the context abandons queries that have not
// started; their outcomes carry the context error.
func (p *Pool) Run(ctx context.Context, queries []string, lookup LookupFunc) ([]Outcome, Summary) {
	outcomes := make([]Outcome, len(queries))

	// Every worker drains the same index feed; each slot in outcomes is
	// written by exactly one worker, so no lock is needed.
	feed := make(chan int, len(queries))
	for i := range queries {
		feed <- i
	}
	close(feed)

	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range feed {
				outcomes[i] = p.resolve(ctx, queries[i], lookup)
			}
		}()
	}
	wg.Wait()

	return outcomes, tally(outcomes)
}

func (p *Pool) resolve(ctx context.Context, query string, lookup LookupFunc) Outcome {
	if err := ctx.Err(); err != nil {
		return Outcome{Query: query, Err: err}
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return Outcome{Query: query, Err: err}
		}
	}
	result, err := lookup(ctx, query)
	return Outcome{Query: query, Result: result, Err: err}
}

func tally(outcomes []Outcome) Summary {
	var s Summary
	for _, o := range outcomes {
		switch {
		case o.Err == nil:
			s.Found++
		case errors.Is(o.Err, model.ErrNotFound):
			s.NotFound++
		case errors.Is(o.Err, model.ErrInvalidPrefix):
			s.Invalid++
		default:
			s.Failed++
		}
	}
	return s
}
