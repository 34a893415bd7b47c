package race

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"

	"github.com/vultisig/swap-quote/internal/swap"
)

const maxBodyBytes = 8 << 20

type Request struct {
	Method  string
	Headers map[string]string
	Query   url.Values
	Body    []byte
}

// Response is whatever the first answering endpoint returned, including non-2xx statuses.
type Response struct {
	Endpoint   string
	StatusCode int
	Body       []byte
}

func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// StatusError describes a non-2xx response with its endpoint and body.
func (r *Response) StatusError() *swap.HTTPStatusError {
	return &swap.HTTPStatusError{
		Endpoint:   r.Endpoint,
		StatusCode: r.StatusCode,
		Body:       string(r.Body),
	}
}

type Fetcher struct {
	client *http.Client
	cfg    Config
}

func NewFetcher(client *http.Client, cfg Config) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{
		client: client,
		cfg:    cfg.withDefaults(),
	}
}

// Fetch races path across the endpoints. Only transport failures and timeouts move on to the
// next endpoint; an HTTP error status is an answer and is returned to the caller.
func (f *Fetcher) Fetch(ctx context.Context, endpoints []string, path string, req Request) (*Response, error) {
	resp, err := First(ctx, f.cfg, endpoints, func(ctx context.Context, endpoint string) (*Response, error) {
		return f.do(ctx, endpoint, path, req)
	})
	if err != nil {
		var fetchErr *swap.FetchError
		if errors.As(err, &fetchErr) {
			fetchErr.Path = path
		}
		return nil, err
	}
	return resp, nil
}

func (f *Fetcher) do(ctx context.Context, endpoint, path string, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	target := JoinURL(endpoint, path)
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", target, err)
	}
	defer func() {
		_ = httpResp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", target, err)
	}

	return &Response{
		Endpoint:   endpoint,
		StatusCode: httpResp.StatusCode,
		Body:       data,
	}, nil
}

func JoinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// Shuffled returns a randomly ordered copy so load spreads across mirrors.
func Shuffled(endpoints []string) []string {
	out := append([]string(nil), endpoints...)
	rand.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
