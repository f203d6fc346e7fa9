package aura

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
)

// ContentTypeBatch is the content type of encoded batches and responses.
const ContentTypeBatch = "application/x-aura-batch"

// maxResponseSize bounds the response body read from the server.
const maxResponseSize = 16 << 20

// HTTPTransport posts encoded batches to a server endpoint.
//
// Network errors and 5xx answers are retried with exponential backoff;
// 4xx answers and responses failing integrity checks are not. Every retry
// resends the same batch, so the server sees an action once per accepted
// attempt.
type HTTPTransport struct {
	endpoint   string
	codec      *Codec
	client     *http.Client
	maxRetries uint
	backOff    func() backoff.BackOff
	logger     zerolog.Logger
}

// HTTPOption configures an HTTPTransport.
type HTTPOption func(*HTTPTransport)

// WithHTTPClient sets the client used for requests.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(t *HTTPTransport) {
		t.client = c
	}
}

// WithMaxRetries sets how many times a failed send is retried. Zero
// disables retries.
func WithMaxRetries(n uint) HTTPOption {
	return func(t *HTTPTransport) {
		t.maxRetries = n
	}
}

// WithBackOff sets the retry schedule. The function is called once per
// Send.
func WithBackOff(fn func() backoff.BackOff) HTTPOption {
	return func(t *HTTPTransport) {
		t.backOff = fn
	}
}

// WithTransportLogger sets the transport's logger.
func WithTransportLogger(l zerolog.Logger) HTTPOption {
	return func(t *HTTPTransport) {
		t.logger = l
	}
}

// NewHTTPTransport creates a transport posting to endpoint.
func NewHTTPTransport(endpoint string, codec *Codec, opts ...HTTPOption) *HTTPTransport {
	t := &HTTPTransport{
		endpoint:   endpoint,
		codec:      codec,
		client:     &http.Client{Timeout: 30 * time.Second},
		maxRetries: 3,
		backOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Send implements Transport.
func (t *HTTPTransport) Send(ctx context.Context, batch *Batch) (*BatchResponse, error) {
	body, err := t.codec.Encode(batch)
	if err != nil {
		return nil, fmt.Errorf("encode batch: %w", err)
	}

	attempt := 0
	op := func() (*BatchResponse, error) {
		attempt++
		resp, err := t.post(ctx, body)
		if err != nil {
			t.logger.Debug().Err(err).Str("batch", batch.ID).Int("attempt", attempt).Msg("send attempt failed")
		}
		return resp, err
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(t.backOff()),
		backoff.WithMaxTries(t.maxRetries+1),
	)
}

func (t *HTTPTransport) post(ctx context.Context, body string) (*BatchResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, strings.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", ContentTypeBatch)
	req.Header.Set("Accept", ContentTypeBatch)

	res, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("server answered %s", res.Status)
	}
	if res.StatusCode != http.StatusOK {
		return nil, backoff.Permanent(fmt.Errorf("server answered %s", res.Status))
	}

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize))
	if err != nil {
		return nil, err
	}

	var br BatchResponse
	if err := t.codec.Decode(string(data), &br); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode response: %w", err))
	}
	return &br, nil
}
