// Package loader retrieves and validates the base checklist dataset.
//
// A source is either a local file path or an http(s) URL. Retrieval is
// retried with exponential backoff; only the final, aggregate failure is
// fatal to the caller.
package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"stepwise/internal/checklist"
	"stepwise/internal/model"
)

const defaultAttempts = 3

// TransportError is a failed retrieval: unreachable source, missing file,
// or a non-2xx HTTP status.
type TransportError struct {
	Source string
	Status int // 0 when the failure happened below HTTP
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.Source, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// FormatError is a retrieved body that is not a valid dataset: either not
// JSON at all, or JSON the validator refuses.
type FormatError struct {
	Source string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("parse %s: dataset failed validation", e.Source)
}

func (e *FormatError) Unwrap() error { return e.Err }

// AggregateLoadError reports an exhausted retry budget. It is the only
// loader error surfaced to the user; everything else is an attempt-level
// detail wrapped inside it.
type AggregateLoadError struct {
	Attempts int
	Last     error
}

func (e *AggregateLoadError) Error() string {
	return fmt.Sprintf("loading checklist data failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *AggregateLoadError) Unwrap() error { return e.Last }

// Loader fetches the dataset with a fixed retry budget.
//
// Sleep is injectable so tests can observe backoff without waiting; the
// default honors context cancellation.
type Loader struct {
	Client   *http.Client
	Attempts int
	Sleep    func(ctx context.Context, d time.Duration) error
}

// New returns a Loader with the standard 3-attempt budget.
func New() *Loader {
	return &Loader{
		Client:   &http.Client{Timeout: 30 * time.Second},
		Attempts: defaultAttempts,
		Sleep:    sleepContext,
	}
}

// Load retrieves, parses, and validates the dataset at source.
//
// Each attempt fails with a TransportError or FormatError. Between failed
// attempts (never after the last) it waits 2^attempt seconds, attempt
// counted from 1. Exhaustion returns an AggregateLoadError naming the
// attempt count and carrying the last underlying error. Success returns the
// dataset exactly as retrieved, with step numbers and sub-step ids ensured.
func (l *Loader) Load(ctx context.Context, source string) ([]model.Group, error) {
	attempts := l.Attempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	sleep := l.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		groups, err := l.loadOnce(ctx, source)
		if err == nil {
			return groups, nil
		}
		last = err

		if attempt == attempts {
			break
		}
		// Exponential backoff: 2s after the first failure, 4s after the
		// second. A cooperative wait, not a spin; cancellation wins.
		if err := sleep(ctx, time.Duration(1<<attempt)*time.Second); err != nil {
			return nil, err
		}
	}
	return nil, &AggregateLoadError{Attempts: attempts, Last: last}
}

func (l *Loader) loadOnce(ctx context.Context, source string) ([]model.Group, error) {
	raw, err := l.fetch(ctx, source)
	if err != nil {
		return nil, err
	}

	if !checklist.ValidBytes(raw) {
		// Distinguish broken JSON from well-formed JSON of the wrong shape.
		var probe any
		if jsonErr := json.Unmarshal(raw, &probe); jsonErr != nil {
			return nil, &FormatError{Source: source, Err: jsonErr}
		}
		return nil, &FormatError{Source: source}
	}

	var groups []model.Group
	if err := json.Unmarshal(raw, &groups); err != nil {
		return nil, &FormatError{Source: source, Err: err}
	}
	return checklist.EnsureNumbers(groups), nil
}

func (l *Loader) fetch(ctx context.Context, source string) ([]byte, error) {
	if isURL(source) {
		return l.fetchHTTP(ctx, source)
	}
	b, err := os.ReadFile(source)
	if err != nil {
		return nil, &TransportError{Source: source, Err: err}
	}
	return b, nil
}

func (l *Loader) fetchHTTP(ctx context.Context, source string) ([]byte, error) {
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, &TransportError{Source: source, Err: err}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &TransportError{Source: source, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused across attempts.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		return nil, &TransportError{Source: source, Status: resp.StatusCode}
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Source: source, Err: err}
	}
	return b, nil
}

func isURL(source string) bool {
	s := strings.ToLower(strings.TrimSpace(source))
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsFatal reports whether err is the terminal aggregate failure (as opposed
// to a recoverable attempt-level error some caller wrapped).
func IsFatal(err error) bool {
	var agg *AggregateLoadError
	return errors.As(err, &agg)
}
