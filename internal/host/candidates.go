package host

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnknown reports that every candidate probe for a fact failed.
var ErrUnknown = errors.New("unknown")

// Candidate is one way of obtaining a fact.
type Candidate[T any] struct {
	Name  string
	Probe func(ctx context.Context) (T, error)
}

// FirstSuccess tries candidates in order and returns the first value obtained
// along with the name of the candidate that produced it. Exhaustion yields an
// error wrapping ErrUnknown and every candidate failure.
func FirstSuccess[T any](ctx context.Context, candidates ...Candidate[T]) (T, string, error) {
	var zero T
	var errs []error
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return zero, "", err
		}
		v, err := c.Probe(ctx)
		if err == nil {
			return v, c.Name, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", c.Name, err))
	}
	if len(errs) == 0 {
		return zero, "", ErrUnknown
	}
	return zero, "", fmt.Errorf("%w: %w", ErrUnknown, errors.Join(errs...))
}
