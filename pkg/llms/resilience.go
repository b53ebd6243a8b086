package llms

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/fortify/timeout"
	"github.com/pkg/errors"
)

// RetryPolicy bounds how hard a generation request is tried. A ModelConfig
// with the zero RetryPolicy gets DefaultRetryPolicy: one attempt, no timeout.
type RetryPolicy struct {
	// MaxAttempts counts the first try.
	MaxAttempts int

	// InitialDelay is the wait before the second attempt; later waits back
	// off exponentially.
	InitialDelay time.Duration

	// Timeout caps each attempt. Zero means no limit.
	Timeout time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  defaultRetryAttempts,
		InitialDelay: defaultRetryInterval,
	}
}

func (p RetryPolicy) validate() error {
	if p.MaxAttempts < 1 || p.MaxAttempts > maxRequestRetries {
		return errors.Errorf("attempts must be between 1 and %d", maxRequestRetries)
	}
	if p.InitialDelay < 0 {
		return errors.New("retry delay must not be negative")
	}
	if p.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}
	return nil
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return defaultRetryAttempts
	}
	return p.MaxAttempts
}

func (p RetryPolicy) delay() time.Duration {
	if p.InitialDelay <= 0 {
		return defaultRetryInterval
	}
	return p.InitialDelay
}

// retryableStatus matches the server side failures worth another try. See
// https://ai.google.dev/gemini-api/docs/troubleshooting
func retryableStatus(code int) bool {
	return code == http.StatusInternalServerError ||
		code == http.StatusServiceUnavailable
}

// run calls `fn` until it yields a reply that is not a retryable status, or
// the attempts run out. The outcome of the last attempt is returned: either
// its reply, which may still carry a 5xx status, or a *TransportError for
// `endpoint`.
func (p RetryPolicy) run(
	ctx context.Context,
	l *log.Logger,
	endpoint string,
	fn func(context.Context) (*Reply, error),
) (*Reply, error) {
	total := p.attempts()

	r := retry.New[*Reply](
		retry.Config{
			MaxAttempts:   total,
			InitialDelay:  p.delay(),
			BackoffPolicy: retry.BackoffExponential,
		},
	)

	var (
		tries   int
		last    *Reply
		lastErr error
	)

	_, err := r.Do(
		ctx, func(ctx context.Context) (*Reply, error) {
			tries++

			last, lastErr = p.attempt(ctx, fn)
			if lastErr != nil {
				if tries < total {
					l.Warnf("Attempt %d/%d failed: %v", tries, total, lastErr)
				}
				return nil, lastErr
			}

			if retryableStatus(last.StatusCode) && tries < total {
				l.Warnf("API error: %d, attempt %d/%d", last.StatusCode, tries, total)
				return nil, errRetryableStatus
			}

			return last, nil
		},
	)

	if tries == 0 && err != nil {
		lastErr = err
	}

	if lastErr != nil {
		var te *TransportError
		if errors.As(lastErr, &te) {
			return nil, te
		}
		return nil, &TransportError{Endpoint: endpoint, Err: lastErr}
	}

	return last, nil
}

func (p RetryPolicy) attempt(
	ctx context.Context,
	fn func(context.Context) (*Reply, error),
) (*Reply, error) {
	if p.Timeout <= 0 {
		return fn(ctx)
	}

	t := timeout.New[*Reply](timeout.Config{DefaultTimeout: p.Timeout})

	return t.Execute(ctx, p.Timeout, fn)
}
