package httpx

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Reason labels why a fetch failed.
type Reason string

const (
	ReasonTimeout    Reason = "timeout"
	ReasonHTTPStatus Reason = "http_status"
	ReasonTransport  Reason = "transport"
	ReasonCanceled   Reason = "canceled"
)

type FetchError struct {
	URL    string
	Reason Reason
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Reason == ReasonHTTPStatus {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	}
	if e.Err == nil {
		return fmt.Sprintf("fetch %s: %s", e.URL, e.Reason)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Reason, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Outcome is the result of one fetch: a body on success, or Err describing
// the failure. Exactly one of the two is meaningful.
type Outcome struct {
	URL    string
	Status int
	Body   []byte
	Err    *FetchError
}

func (o Outcome) OK() bool {
	return o.Err == nil
}

func success(target string, status int, body []byte) Outcome {
	return Outcome{URL: target, Status: status, Body: body}
}

func failure(target string, status int, err error) Outcome {
	return Outcome{URL: target, Status: status, Err: classify(target, status, err)}
}

// classify maps a transport error or status code onto a Reason.
func classify(target string, status int, err error) *FetchError {
	fe := &FetchError{URL: target, Status: status, Err: err}
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		fe.Reason = ReasonCanceled
	case errors.Is(err, context.DeadlineExceeded):
		fe.Reason = ReasonTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		fe.Reason = ReasonTimeout
	case err == nil && status != 0 && !isSuccess(status):
		fe.Reason = ReasonHTTPStatus
	case err == nil:
		fe.Reason = ReasonTransport
		fe.Err = errors.New("empty response")
	default:
		fe.Reason = ReasonTransport
	}
	return fe
}

func isSuccess(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}
