package clients

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/ajitpratap0/tap-dayforce/pkg/errors"
	"github.com/ajitpratap0/tap-dayforce/pkg/logger"
)

// DefaultRetryBudget bounds the total time spent retrying one call.
const DefaultRetryBudget = 180 * time.Second

// RetryAfterPadding is added to every server-requested Retry-After delay.
const RetryAfterPadding = time.Second

// RetryObserver is notified of every retry.
type RetryObserver interface {
	RecordRetry(reason string)
}

// RetryPolicy retries HTTP calls.
//
// Rate-limited responses (429) wait for Retry-After plus RetryAfterPadding.
// Connection failures, timeouts and 5xx responses back off exponentially.
// Any other 4xx fails immediately. All retries share one elapsed-time budget.
type RetryPolicy struct {
	Budget          time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	RandomizeFactor float64

	// Timer and Clock drive waits and budget accounting; tests replace them.
	Timer    backoff.Timer
	Clock    backoff.Clock
	Observer RetryObserver
}

// NewRetryPolicy creates a policy with exponential backoff bounded by budget.
func NewRetryPolicy(budget time.Duration) *RetryPolicy {
	if budget <= 0 {
		budget = DefaultRetryBudget
	}
	return &RetryPolicy{
		Budget:          budget,
		InitialInterval: 1 * time.Second,
		MaxInterval:     60 * time.Second,
		Multiplier:      2.0,
		RandomizeFactor: 0.25,
	}
}

// Call is a single HTTP attempt.
type Call func(ctx context.Context) (*http.Response, error)

// Execute runs call until it succeeds, fails permanently or the budget runs out.
// On success the caller owns the response body. Failed responses are drained
// and closed here.
func (rp *RetryPolicy) Execute(ctx context.Context, call Call) (*http.Response, error) {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = rp.InitialInterval
	exp.MaxInterval = rp.MaxInterval
	exp.Multiplier = rp.Multiplier
	exp.RandomizationFactor = rp.RandomizeFactor
	exp.MaxElapsedTime = rp.Budget
	if rp.Clock != nil {
		exp.Clock = rp.Clock
	}
	exp.Reset()

	b := &retryAfterBackOff{BackOff: exp}
	log := logger.WithContext(ctx)

	operation := func() (*http.Response, error) {
		resp, err := call(ctx)
		if err != nil {
			return nil, classifyTransportError(ctx, err)
		}
		if resp.StatusCode < 400 {
			return resp, nil
		}

		failure := statusError(resp)
		if resp.StatusCode == http.StatusTooManyRequests {
			b.next = retryAfter(resp.Header.Get("Retry-After"), rp.now()) + RetryAfterPadding
		}
		if !errors.IsRetryable(failure) {
			return nil, backoff.Permanent(failure)
		}
		return nil, failure
	}

	notify := func(err error, wait time.Duration) {
		reason := retryReason(err)
		log.Warn("retrying request",
			zap.String("reason", reason),
			zap.Duration("wait", wait),
			zap.Error(err))
		if rp.Observer != nil {
			rp.Observer.RecordRetry(reason)
		}
	}

	var resp *http.Response
	var err error
	if rp.Timer != nil {
		resp, err = backoff.RetryNotifyWithTimerAndData(operation, backoff.WithContext(b, ctx), notify, rp.Timer)
	} else {
		resp, err = backoff.RetryNotifyWithData(operation, backoff.WithContext(b, ctx), notify)
	}
	if err != nil {
		if ctx.Err() != nil && !errors.IsType(err, errors.ErrorTypeInternal) {
			return nil, errors.Wrap(ctx.Err(), errors.ErrorTypeInternal, "request cancelled")
		}
		return nil, err
	}
	return resp, nil
}

func (rp *RetryPolicy) now() time.Time {
	if rp.Clock != nil {
		return rp.Clock.Now()
	}
	return time.Now()
}

// retryAfterBackOff substitutes a server-requested delay for the next
// exponential interval while still consuming the shared budget.
type retryAfterBackOff struct {
	backoff.BackOff
	next time.Duration
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	d := b.BackOff.NextBackOff()
	if d == backoff.Stop {
		return d
	}
	if b.next > 0 {
		d = b.next
		b.next = 0
	}
	return d
}

// retryAfter parses a Retry-After header given as seconds or an HTTP date.
// A missing or malformed header yields zero.
func retryAfter(header string, now time.Time) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

func statusError(resp *http.Response) *errors.Error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()

	msg := fmt.Sprintf("request returned %d", resp.StatusCode)
	if resp.Request != nil {
		msg = fmt.Sprintf("%s %s returned %d", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode)
	}
	if len(body) > 0 {
		msg += ": " + truncate(body, 512)
	}
	return errors.FromStatus(resp.StatusCode, msg)
}

func classifyTransportError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return backoff.Permanent(errors.Wrap(ctx.Err(), errors.ErrorTypeInternal, "request cancelled"))
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.Wrap(err, errors.ErrorTypeTimeout, "request timed out")
	}
	if errors.IsType(err, errors.ErrorTypeAuthentication) {
		return backoff.Permanent(err)
	}
	if errors.IsRetryable(err) {
		return err
	}
	return errors.Wrap(err, errors.ErrorTypeConnection, "request failed")
}

func retryReason(err error) string {
	var e *errors.Error
	if errors.As(err, &e) {
		return string(e.Type)
	}
	return "unknown"
}
