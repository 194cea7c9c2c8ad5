package docseq

import (
	"context"
	"errors"
	"fmt"
)

// ErrSequenceExhausted is returned when no free code was found within the
// configured number of attempts.
var ErrSequenceExhausted = errors.New("docseq: no free code within attempt budget")

// DefaultMaxAttempts bounds the collision re-check loop.
const DefaultMaxAttempts = 100

// Series binds a counter key to the table column holding issued codes.
type Series struct {
	Key    string
	Table  string
	Column string
	Format Format
}

// Store is the persistence port used by the Allocator. Implementations must run
// Bump inside the caller's transaction so the counter row stays locked until
// the document insert commits.
type Store interface {
	// Codes lists issued codes of the series. Scoped series may pre-filter by prefix.
	Codes(ctx context.Context, s Series) ([]string, error)
	// Exists reports whether code is already present in the series column.
	Exists(ctx context.Context, s Series, code string) (bool, error)
	// Bump advances the counter to max(current+1, floor) and returns it.
	Bump(ctx context.Context, key string, floor int64) (int64, error)
	// Peek returns the current counter value without advancing it.
	Peek(ctx context.Context, key string) (int64, bool, error)
}

// Option customises an Allocator.
type Option func(*Allocator)

// WithMaxAttempts overrides DefaultMaxAttempts.
func WithMaxAttempts(n int) Option {
	return func(a *Allocator) {
		if n > 0 {
			a.maxAttempts = n
		}
	}
}

// WithRetryObserver registers a callback invoked each time a candidate collides.
func WithRetryObserver(fn func(series string)) Option {
	return func(a *Allocator) {
		a.onRetry = fn
	}
}

// Allocator issues codes from a Series.
type Allocator struct {
	maxAttempts int
	onRetry     func(series string)
}

// New builds an Allocator.
func New(opts ...Option) *Allocator {
	a := &Allocator{maxAttempts: DefaultMaxAttempts}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allocate reserves the next free code of s. The counter is floored at the
// largest issued suffix so hand-entered codes are never issued twice, and every
// candidate is re-checked against the full column before it is returned.
func (a *Allocator) Allocate(ctx context.Context, store Store, s Series) (string, error) {
	if store == nil {
		return "", errors.New("docseq: store not configured")
	}
	codes, err := store.Codes(ctx, s)
	if err != nil {
		return "", fmt.Errorf("docseq: scan %s: %w", s.Key, err)
	}
	n, err := store.Bump(ctx, s.Key, s.Format.Max(codes)+1)
	if err != nil {
		return "", fmt.Errorf("docseq: bump %s: %w", s.Key, err)
	}
	for attempt := 0; attempt < a.attempts(); attempt++ {
		code := s.Format.Render(n)
		taken, err := store.Exists(ctx, s, code)
		if err != nil {
			return "", fmt.Errorf("docseq: check %s: %w", code, err)
		}
		if !taken {
			return code, nil
		}
		if a != nil && a.onRetry != nil {
			a.onRetry(s.Key)
		}
		if n, err = store.Bump(ctx, s.Key, n+1); err != nil {
			return "", fmt.Errorf("docseq: bump %s: %w", s.Key, err)
		}
	}
	return "", fmt.Errorf("%w: %s", ErrSequenceExhausted, s.Key)
}

// Preview returns the code Allocate would most likely issue next without
// reserving it.
func (a *Allocator) Preview(ctx context.Context, store Store, s Series) (string, error) {
	if store == nil {
		return "", errors.New("docseq: store not configured")
	}
	codes, err := store.Codes(ctx, s)
	if err != nil {
		return "", fmt.Errorf("docseq: scan %s: %w", s.Key, err)
	}
	n := s.Format.Max(codes) + 1
	if current, ok, err := store.Peek(ctx, s.Key); err != nil {
		return "", fmt.Errorf("docseq: peek %s: %w", s.Key, err)
	} else if ok && current+1 > n {
		n = current + 1
	}
	for attempt := 0; attempt < a.attempts(); attempt++ {
		code := s.Format.Render(n)
		taken, err := store.Exists(ctx, s, code)
		if err != nil {
			return "", fmt.Errorf("docseq: check %s: %w", code, err)
		}
		if !taken {
			return code, nil
		}
		n++
	}
	return "", fmt.Errorf("%w: %s", ErrSequenceExhausted, s.Key)
}

func (a *Allocator) attempts() int {
	if a == nil || a.maxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return a.maxAttempts
}
