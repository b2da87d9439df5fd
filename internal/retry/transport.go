package retry

import (
	"errors"
	"io"
	"net/http"
	"slices"
	"time"

	"golang.org/x/xerrors"
)

// Condition classifies a single round trip outcome as retryable.
type Condition struct {
	StatusCodes    []int
	ConnectFailure bool
}

// NewGatewayCondition retries 502-504, 409 and temporary transport errors.
func NewGatewayCondition() *Condition {
	return &Condition{
		StatusCodes: []int{
			http.StatusConflict,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
		ConnectFailure: true,
	}
}

func (c *Condition) retryResponse(response *http.Response) bool {
	return slices.Contains(c.StatusCodes, response.StatusCode)
}

func (c *Condition) retryError(err error) bool {
	if !c.ConnectFailure {
		return false
	}
	type temporary interface{ Temporary() bool }
	var terr temporary
	return (errors.As(err, &terr) && terr.Temporary()) || errors.Is(err, io.EOF)
}

// Transport retries requests through Base while Condition matches and
// Backoff has budget left. Requests with a body must be replayable via
// GetBody, which http.NewRequest sets up for in-memory readers.
type Transport struct {
	Base      http.RoundTripper
	Backoff   Backoff
	Condition *Condition
}

func (t *Transport) RoundTrip(request *http.Request) (*http.Response, error) {
	ctx := request.Context()
	for attempt := uint(0); ; attempt++ {
		delay, exhausted := t.backoff().Delay(attempt)

		response, err := t.base().RoundTrip(request)
		var retryable bool
		if err != nil {
			retryable = t.Condition != nil && t.Condition.retryError(err)
		} else {
			retryable = t.Condition != nil && t.Condition.retryResponse(response)
		}
		if exhausted || !retryable {
			return response, err
		}

		if response != nil {
			_, _ = io.Copy(io.Discard, response.Body)
			response.Body.Close()
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		if request.Body != nil && request.Body != http.NoBody {
			if request.GetBody == nil {
				return nil, xerrors.New("request body cannot be replayed")
			}
			body, err := request.GetBody()
			if err != nil {
				return nil, xerrors.Errorf("failed to replay request body: %w", err)
			}
			request = request.Clone(ctx)
			request.Body = body
		}
	}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) backoff() Backoff {
	if t.Backoff != nil {
		return t.Backoff
	}
	return NewNoRetry()
}
