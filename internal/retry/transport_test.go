package retry_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"visual-diff/internal/retry"

	"github.com/google/go-cmp/cmp"
)

type transportMock struct {
	fakeRoundTrip func(*http.Request) (*http.Response, error)
}

func (m *transportMock) RoundTrip(request *http.Request) (*http.Response, error) {
	return m.fakeRoundTrip(request)
}

type temporaryError struct {
	s string
}

func (te *temporaryError) Error() string {
	return te.s
}

func (te *temporaryError) Temporary() bool {
	return true
}

func sequence(responses ...func() (*http.Response, error)) *transportMock {
	var i atomic.Int64
	return &transportMock{
		fakeRoundTrip: func(request *http.Request) (*http.Response, error) {
			n := int(i.Add(1)) - 1
			if n >= len(responses) {
				n = len(responses) - 1
			}
			return responses[n]()
		},
	}
}

func status(code int) func() (*http.Response, error) {
	return func() (*http.Response, error) {
		return &http.Response{
			StatusCode: code,
			Body:       io.NopCloser(strings.NewReader("")),
		}, nil
	}
}

func failure(err error) func() (*http.Response, error) {
	return func() (*http.Response, error) {
		return nil, err
	}
}

func TestTransportRoundTrip(t *testing.T) {
	type want struct {
		statusCode      int
		wantErrorString string
	}

	tests := []struct {
		name      string
		transport *retry.Transport
		cancel    bool
		want      want
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			&retry.Transport{
				Base:      sequence(status(http.StatusOK)),
				Backoff:   retry.NewExponentialBackoff(time.Millisecond, 10*time.Millisecond, 3, nil),
				Condition: retry.NewGatewayCondition(),
			},
			false,
			want{http.StatusOK, ""},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			&retry.Transport{
				Base:      sequence(failure(errors.New("fake"))),
				Backoff:   retry.NewExponentialBackoff(time.Millisecond, 10*time.Millisecond, 3, nil),
				Condition: retry.NewGatewayCondition(),
			},
			false,
			want{0, `Get "/": fake`},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			&retry.Transport{
				Base:      sequence(failure(&temporaryError{"fake"}), status(http.StatusOK)),
				Backoff:   retry.NewExponentialBackoff(time.Millisecond, 10*time.Millisecond, 3, nil),
				Condition: retry.NewGatewayCondition(),
			},
			false,
			want{http.StatusOK, ""},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			&retry.Transport{
				Base:      sequence(failure(&temporaryError{"fake"}), status(http.StatusOK)),
				Backoff:   retry.NewExponentialBackoff(time.Millisecond, 10*time.Millisecond, 3, nil),
				Condition: &retry.Condition{StatusCodes: []int{http.StatusBadGateway}},
			},
			false,
			want{0, `Get "/": fake`},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			&retry.Transport{
				Base:      sequence(status(http.StatusServiceUnavailable), status(http.StatusOK)),
				Backoff:   retry.NewExponentialBackoff(time.Millisecond, 10*time.Millisecond, 3, nil),
				Condition: retry.NewGatewayCondition(),
			},
			false,
			want{http.StatusOK, ""},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			&retry.Transport{
				Base:      sequence(status(http.StatusServiceUnavailable)),
				Backoff:   retry.NewExponentialBackoff(time.Millisecond, 10*time.Millisecond, 2, nil),
				Condition: retry.NewGatewayCondition(),
			},
			false,
			want{http.StatusServiceUnavailable, ""},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			&retry.Transport{
				Base:      sequence(status(http.StatusServiceUnavailable), status(http.StatusOK)),
				Backoff:   retry.NewExponentialBackoff(time.Millisecond, 10*time.Millisecond, 3, nil),
				Condition: retry.NewGatewayCondition(),
			},
			true,
			want{0, `Get "/": context canceled`},
		},
	}

	for _, tt := range tests {
		name := tt.name
		transport := tt.transport
		cancel := tt.cancel
		want := tt.want
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			if cancel {
				var cancelFunc context.CancelFunc
				ctx, cancelFunc = context.WithCancel(ctx)
				cancelFunc()
			}
			request, err := http.NewRequestWithContext(ctx, http.MethodGet, "/", nil)
			if err != nil {
				t.Fatal(err)
			}

			got, err := (&http.Client{Transport: transport}).Do(request)
			if err != nil {
				if diff := cmp.Diff(want.wantErrorString, err.Error()); diff != "" {
					t.Errorf("(-want +got):\n%s", diff)
				}
				return
			}
			defer got.Body.Close()

			if diff := cmp.Diff(want.wantErrorString, ""); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(want.statusCode, got.StatusCode); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestTransportReplaysBody(t *testing.T) {
	var attempts atomic.Int64
	var mu sync.Mutex
	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(data))
		mu.Unlock()
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := &http.Client{
		Transport: &retry.Transport{
			Backoff:   retry.NewExponentialBackoff(time.Millisecond, 10*time.Millisecond, 3, nil),
			Condition: retry.NewGatewayCondition(),
		},
	}

	request, err := http.NewRequest(http.MethodPatch, server.URL, strings.NewReader(`{"diffPixels":1}`))
	if err != nil {
		t.Fatal(err)
	}
	response, err := client.Do(request)
	if err != nil {
		t.Fatal(err)
	}
	defer response.Body.Close()

	if diff := cmp.Diff(http.StatusOK, response.StatusCode); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	mu.Lock()
	defer mu.Unlock()
	if diff := cmp.Diff([]string{`{"diffPixels":1}`, `{"diffPixels":1}`}, bodies); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}
