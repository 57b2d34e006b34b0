package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/tinytelemetry/edetail/internal/model"
	"github.com/tinytelemetry/edetail/internal/sitemap"
)

// DocumentLoader fetches the sitemap document.
type DocumentLoader interface {
	Document(ctx context.Context, path string) (*sitemap.Document, error)
}

// RetryPolicy controls how the startup fetch is retried.
type RetryPolicy struct {
	Path    string
	Timeout time.Duration
	// MaxTries of zero retries until ctx is cancelled.
	MaxTries uint
	Initial  time.Duration
	Max      time.Duration
	Logger   *slog.Logger
}

// Bootstrap fetches the sitemap document, retrying transport failures.
// A document that cannot be decoded fails at once; running out of tries
// is a ConfigurationError.
func Bootstrap(ctx context.Context, loader DocumentLoader, p RetryPolicy) (*sitemap.Document, error) {
	if p.Path == "" {
		p.Path = model.DefaultSitemapPath
	}
	if p.Timeout <= 0 {
		p.Timeout = model.DefaultFetchTimeout
	}
	if p.Initial <= 0 {
		p.Initial = model.DefaultRetryInitial
	}
	if p.Max < p.Initial {
		p.Max = model.DefaultRetryMax
	}
	log := p.Logger
	if log == nil {
		log = slog.Default()
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Initial
	b.MaxInterval = p.Max

	op := func() (*sitemap.Document, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, p.Timeout)
		defer cancel()
		doc, err := loader.Document(attemptCtx, p.Path)
		if err == nil {
			return doc, nil
		}
		var cfgErr *model.ConfigurationError
		if errors.As(err, &cfgErr) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	doc, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(p.MaxTries),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn("session: sitemap fetch failed, retrying", "path", p.Path, "next", next, "err", err)
		}),
	)
	if err == nil {
		return doc, nil
	}
	var cfgErr *model.ConfigurationError
	if errors.As(err, &cfgErr) {
		return nil, err
	}
	return nil, &model.ConfigurationError{Reason: "fetch " + p.Path, Err: err}
}
