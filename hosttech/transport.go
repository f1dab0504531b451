package hosttech

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Transport sends a serialized request payload and returns the response
// status and body. Timeouts belong to the transport; the API is a low-traffic
// administrative one, so the default ceiling is generous.
type Transport interface {
	Send(ctx context.Context, payload []byte) (status int, body []byte, err error)
}

const DefaultTimeout = 5 * time.Minute

// HTTPTransport posts payloads to the endpoint URL. Retries default to zero;
// the reconciliation core never retries, so opting in is the caller's call.
type HTTPTransport struct {
	url    string
	client *retryablehttp.Client
}

func NewHTTPTransport(url string, timeout time.Duration, retries int) *HTTPTransport {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := retryablehttp.NewClient()
	c.Logger = nil
	c.RetryMax = retries
	c.HTTPClient.Timeout = timeout
	// Error statuses carry a fault document that the caller must parse, so
	// only connection-level failures are retryable.
	c.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if err != nil {
			return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
		}
		return false, nil
	}
	return &HTTPTransport{url: url, client: c}
}

func (t *HTTPTransport) Send(ctx context.Context, payload []byte) (int, []byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, t.url, payload)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/xml")
	req.Header.Set("Content-Length", strconv.Itoa(len(payload)))
	resp, err := t.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}
