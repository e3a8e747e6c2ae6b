// Package readiness polls a read-only HTTP surface until a success
// predicate holds or an attempt budget is exhausted. Readiness is a
// property of the response body, never of the TCP connect alone: a
// predicate must reject well-formed but semantically empty answers.
package readiness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ErrTimeout is returned when the attempt budget is exhausted without the
// predicate ever holding.
var ErrTimeout = errors.New("readiness: attempt budget exhausted")

// Predicate decides whether a response body signals a ready service. It
// must return false for bodies that parse but carry an empty or zero
// signal.
type Predicate func(body []byte) bool

// Query describes one readiness check. It is immutable once constructed.
type Query struct {
	URL            string
	Ready          Predicate
	Interval       time.Duration // sleep between attempts
	MaxAttempts    int           // exact number of polls before ErrTimeout
	RequestTimeout time.Duration // per-request ceiling; a hung request cannot stall the budget
	OnAttempt      func(attempt int)
}

// Poller issues sequential polls with a fixed sleep between attempts. One
// Poller may be shared across queries.
type Poller struct {
	logger *slog.Logger
	client *http.Client
}

func NewPoller(logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{logger: logger, client: &http.Client{}}
}

// PollUntilReady performs up to q.MaxAttempts polls. On the first attempt
// whose response satisfies q.Ready it returns nil immediately with no
// further polls or sleeps. Connection errors and not-ready bodies both
// consume an attempt. After the final failed attempt it returns ErrTimeout
// without sleeping again.
func (p *Poller) PollUntilReady(ctx context.Context, q Query) error {
	if q.MaxAttempts <= 0 {
		return fmt.Errorf("%w: max attempts must be positive", ErrTimeout)
	}
	interval := q.Interval
	if interval <= 0 {
		interval = time.Second
	}
	for attempt := 1; attempt <= q.MaxAttempts; attempt++ {
		if q.OnAttempt != nil {
			q.OnAttempt(attempt)
		}
		body, err := p.fetch(ctx, q)
		switch {
		case err != nil:
			p.logger.Debug("poll attempt failed", "url", q.URL, "attempt", attempt, "error", err)
		case q.Ready(body):
			p.logger.Debug("target ready", "url", q.URL, "attempt", attempt)
			return nil
		default:
			p.logger.Debug("target not ready yet", "url", q.URL, "attempt", attempt)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt == q.MaxAttempts {
			break
		}
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("%w after %d attempts against %s", ErrTimeout, q.MaxAttempts, q.URL)
}

func (p *Poller) fetch(ctx context.Context, q Query) ([]byte, error) {
	rctx := ctx
	if q.RequestTimeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, q.RequestTimeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(rctx, http.MethodGet, q.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
