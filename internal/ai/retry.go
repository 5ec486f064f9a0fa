package ai

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// retryingClient decorates a Client with exponential backoff around the
// two network-bound calls. Schema mismatches are permanent failures;
// retrying cannot make a missing key appear.
type retryingClient struct {
	inner      Client
	maxRetries uint64
}

// NewRetrying wraps c so Embed and Generate retry transient failures up
// to maxRetries times with exponential backoff.
func NewRetrying(c Client, maxRetries uint64) Client {
	return &retryingClient{inner: c, maxRetries: maxRetries}
}

func (r *retryingClient) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, r.maxRetries), ctx)
}

func (r *retryingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	op := func() error {
		var err error
		vec, err = r.inner.Embed(ctx, text)
		if err != nil {
			var se *SchemaError
			if errors.As(err, &se) {
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	}
	if err := backoff.Retry(op, r.policy(ctx)); err != nil {
		return nil, err
	}
	return vec, nil
}

func (r *retryingClient) Generate(ctx context.Context, prompt string) (string, error) {
	var out string
	op := func() error {
		var err error
		out, err = r.inner.Generate(ctx, prompt)
		return err
	}
	if err := backoff.Retry(op, r.policy(ctx)); err != nil {
		return "", err
	}
	return out, nil
}

func (r *retryingClient) Dim() int {
	return r.inner.Dim()
}
