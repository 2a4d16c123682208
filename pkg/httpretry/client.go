// Package httpretry builds standard *http.Client values that retry transient failures
// (connection errors, 429 and 5xx) with exponential backoff.
package httpretry

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Options configures NewClient. Zero values use the defaults.
type Options struct {
	// RetryMax is the number of retries after the first attempt (default 3).
	RetryMax int
	// Timeout bounds a single attempt (default 30s). Callers bound the whole call with a context.
	Timeout time.Duration
	// RetryWaitMin and RetryWaitMax bound the backoff between attempts (defaults 1s and 30s).
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// Logger receives retry attempts at debug level. Nil disables retry logging.
	Logger *slog.Logger
}

// NewClient returns an *http.Client backed by a retrying transport, suitable for SDKs that accept
// a plain http.Client.
func NewClient(opts Options) *http.Client {
	retryClient := retryablehttp.NewClient()

	retryClient.RetryMax = 3
	if opts.RetryMax > 0 {
		retryClient.RetryMax = opts.RetryMax
	}

	retryClient.HTTPClient.Timeout = 30 * time.Second
	if opts.Timeout > 0 {
		retryClient.HTTPClient.Timeout = opts.Timeout
	}

	if opts.RetryWaitMin > 0 {
		retryClient.RetryWaitMin = opts.RetryWaitMin
	}

	if opts.RetryWaitMax > 0 {
		retryClient.RetryWaitMax = opts.RetryWaitMax
	}

	retryClient.Logger = nil // requests are logged at the caller
	if opts.Logger != nil {
		logger := opts.Logger
		retryClient.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
			if attempt > 0 {
				logger.DebugContext(req.Context(), "retrying backend request",
					"host", req.URL.Host,
					"attempt", attempt,
				)
			}
		}
	}

	return retryClient.StandardClient()
}
