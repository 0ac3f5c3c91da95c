package observability

import (
	"context"
	"errors"
	"net/http"

	"github.com/baxromumarov/job-harvester/internal/httpx"
	"github.com/baxromumarov/job-harvester/internal/scraper"
)

const (
	ErrorTimeout    = "timeout"
	ErrorHTTPStatus = "http_status"
	ErrorTransport  = "transport"
	ErrorRateLimit  = "rate_limit"
	ErrorCanceled   = "canceled"
	ErrorParsing    = "parsing"
	ErrorStore      = "store"
	ErrorUnknown    = "unknown"
)

// ClassifyFetchError maps a fetch failure onto an error type label.
func ClassifyFetchError(err error) string {
	if err == nil {
		return ErrorUnknown
	}
	var fe *httpx.FetchError
	if errors.As(err, &fe) {
		switch fe.Reason {
		case httpx.ReasonHTTPStatus:
			if fe.Status == http.StatusTooManyRequests {
				return ErrorRateLimit
			}
			return ErrorHTTPStatus
		case httpx.ReasonTimeout:
			return ErrorTimeout
		case httpx.ReasonCanceled:
			return ErrorCanceled
		default:
			return ErrorTransport
		}
	}
	switch {
	case errors.Is(err, context.Canceled):
		return ErrorCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorTimeout
	}
	return ErrorUnknown
}

// ClassifyScrapeError also recognises interpreter failures.
func ClassifyScrapeError(err error) string {
	if err == nil {
		return ErrorUnknown
	}
	if errors.Is(err, scraper.ErrParse) {
		return ErrorParsing
	}
	return ClassifyFetchError(err)
}
