// Package probe defines host readiness checks and the report they produce.
package probe

import (
	"context"

	"mailstack/internal/data"
)

type Check interface {
	ID() string
	Title() string
	Description() string

	// Dependencies declares the host facts this check reads.
	Dependencies() []data.DependencyKey

	// Evaluate runs check logic using only the DataContext.
	// Checks MUST NOT run commands or touch the filesystem.
	Evaluate(ctx context.Context, dc data.DataContext) (Result, error)
}
