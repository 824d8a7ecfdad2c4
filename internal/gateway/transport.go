package gateway

import (
	"context"
	"io"
	"net/http"
	"sync/atomic"
)

type transferCounterKey struct{}

// transferCounter accumulates the response body bytes of one logical fetch.
type transferCounter struct {
	atomic.Int64
}

func withTransferCounter(ctx context.Context) (context.Context, *transferCounter) {
	counter := &transferCounter{}
	return context.WithValue(ctx, transferCounterKey{}, counter), counter
}

// countingTransport counts body bytes for requests whose context carries a
// transferCounter. Other requests pass through untouched.
type countingTransport struct {
	base http.RoundTripper
}

func (t *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if counter, ok := req.Context().Value(transferCounterKey{}).(*transferCounter); ok {
		resp.Body = &countingBody{ReadCloser: resp.Body, counter: counter}
	}
	return resp, nil
}

type countingBody struct {
	io.ReadCloser
	counter *transferCounter
}

func (b *countingBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	b.counter.Add(int64(n))
	return n, err
}
