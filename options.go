package hotplug

import (
	"context"
	"time"

	"github.com/zoobzio/pipz"
)

// Option configures the notification pipeline of a Reconciler. Options wrap
// the notifier with middleware for retry, timeout, circuit breaking and
// similar patterns. None are applied by default.
//
// Instance configuration (quiet period, poll interval, clock, etc.) is
// handled via chainable methods on the Reconciler before calling Start().
type Option func(pipz.Chainable[Change]) pipz.Chainable[Change]

// Pipeline identities.
var (
	retryID          = pipz.NewIdentity("hotplug:retry", "Retries a failed notification")
	backoffID        = pipz.NewIdentity("hotplug:backoff", "Retries a failed notification with backoff")
	timeoutID        = pipz.NewIdentity("hotplug:timeout", "Bounds notification time")
	circuitBreakerID = pipz.NewIdentity("hotplug:circuit-breaker", "Stops calling a failing notifier")
	middlewareID     = pipz.NewIdentity("hotplug:middleware", "Runs middleware before the notifier")
	fallbackID       = pipz.NewIdentity("hotplug:fallback", "Tries backup notifiers in order")
	errorHandlerID   = pipz.NewIdentity("hotplug:error-handler", "Observes notification failures")
	rateLimitID      = pipz.NewIdentity("hotplug:rate-limit", "Limits the notification rate")
)

// WithRetry retries a failed notification immediately up to maxAttempts
// times.
func WithRetry(maxAttempts int) Option {
	return func(p pipz.Chainable[Change]) pipz.Chainable[Change] {
		return pipz.NewRetry(retryID, p, maxAttempts)
	}
}

// WithBackoff retries a failed notification with exponentially increasing
// delays: baseDelay, 2*baseDelay, 4*baseDelay, etc.
func WithBackoff(maxAttempts int, baseDelay time.Duration) Option {
	return func(p pipz.Chainable[Change]) pipz.Chainable[Change] {
		return pipz.NewBackoff(backoffID, p, maxAttempts, baseDelay)
	}
}

// WithTimeout bounds how long a notification may take. A slow hook script
// otherwise stalls the whole reconciliation loop.
func WithTimeout(d time.Duration) Option {
	return func(p pipz.Chainable[Change]) pipz.Chainable[Change] {
		return pipz.NewTimeout(timeoutID, p, d)
	}
}

// WithCircuitBreaker stops calling the notifier after 'failures'
// consecutive failures until 'recovery' has passed.
func WithCircuitBreaker(failures int, recovery time.Duration) Option {
	return func(p pipz.Chainable[Change]) pipz.Chainable[Change] {
		return pipz.NewCircuitBreaker(circuitBreakerID, p, failures, recovery)
	}
}

// WithRateLimit limits notifications to rate per second with the given
// burst. Changes over the limit wait for capacity, which delays them.
func WithRateLimit(rate float64, burst int) Option {
	return func(p pipz.Chainable[Change]) pipz.Chainable[Change] {
		return pipz.NewRateLimiter(rateLimitID, rate, burst, p)
	}
}

// WithRateLimitDrop is WithRateLimit that drops changes over the limit
// instead of waiting. Useful to keep a slow hook script from stalling the
// loop during a re-enumeration storm; dropped changes are not reported.
func WithRateLimitDrop(rate float64, burst int) Option {
	return func(p pipz.Chainable[Change]) pipz.Chainable[Change] {
		return pipz.NewRateLimiter(rateLimitID, rate, burst, p).SetMode("drop")
	}
}

// WithFallback tries each backup notifier in order when the primary
// notifier fails. The change counts as delivered once any of them succeeds.
func WithFallback(backups ...Notifier) Option {
	return func(p pipz.Chainable[Change]) pipz.Chainable[Change] {
		all := make([]pipz.Chainable[Change], 0, len(backups)+1)
		all = append(all, p)
		for _, b := range backups {
			all = append(all, notifierEffect(b))
		}
		return pipz.NewFallback(fallbackID, all...)
	}
}

// WithErrorHandler passes notification failures to handler. The error still
// propagates to the Reconciler.
func WithErrorHandler(handler pipz.Chainable[*pipz.Error[Change]]) Option {
	return func(p pipz.Chainable[Change]) pipz.Chainable[Change] {
		return pipz.NewHandle(errorHandlerID, p, handler)
	}
}

// WithMiddleware runs processors in order before the notifier.
//
// Example:
//
//	hotplug.New(source, controllers, notifier,
//	    hotplug.WithMiddleware(
//	        hotplug.UseEffect(auditID, auditFn),
//	    ),
//	    hotplug.WithTimeout(2*time.Second),
//	)
func WithMiddleware(processors ...pipz.Chainable[Change]) Option {
	return func(p pipz.Chainable[Change]) pipz.Chainable[Change] {
		all := make([]pipz.Chainable[Change], 0, len(processors)+1)
		all = append(all, processors...)
		all = append(all, p)
		return pipz.NewSequence(middlewareID, all...)
	}
}

// UseEffect creates a processor that performs a side effect. The change
// passes through unchanged.
func UseEffect(id pipz.Identity, fn func(context.Context, Change) error) pipz.Chainable[Change] {
	return pipz.Effect(id, fn)
}

// UseFilter runs processor only for changes matching condition.
func UseFilter(id pipz.Identity, condition func(context.Context, Change) bool, processor pipz.Chainable[Change]) pipz.Chainable[Change] {
	return pipz.NewFilter(id, condition, processor)
}
