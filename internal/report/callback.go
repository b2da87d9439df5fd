package report

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
	"visual-diff/internal/retry"

	"golang.org/x/xerrors"
)

// Notifier delivers summaries to a CI callback endpoint.
type Notifier struct {
	URL    string
	Client *http.Client
}

func NewNotifier(url string) *Notifier {
	return &Notifier{
		URL: url,
		Client: &http.Client{
			Timeout: 1 * time.Second, // retry.Transport does not have perTryTimeout
			Transport: &retry.Transport{
				Base:      http.DefaultTransport,
				Backoff:   retry.NewExponentialBackoff(10*time.Millisecond, 1*time.Second, 3, nil),
				Condition: retry.NewGatewayCondition(),
			},
		},
	}
}

func (n *Notifier) Send(ctx context.Context, summary *Summary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return xerrors.Errorf("failed to marshal summary: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPatch, n.URL, bytes.NewReader(data))
	if err != nil {
		return xerrors.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := n.Client.Do(request)
	if err != nil {
		return xerrors.Errorf("failed to send request: %w", err)
	}
	defer response.Body.Close()
	_, _ = io.Copy(io.Discard, response.Body)

	if response.StatusCode >= 400 {
		return xerrors.Errorf("callback returned %s", response.Status)
	}

	return nil
}
