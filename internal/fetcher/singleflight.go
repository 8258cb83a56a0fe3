package fetcher

import (
	"golang.org/x/sync/singleflight"
)

// Group collapses concurrent gathers of the same fact into one collaborator
// call.
type Group struct {
	g singleflight.Group
}

func (g *Group) Do(key string, fn func() (any, error)) (any, error) {
	v, err, _ := g.g.Do(key, fn)
	return v, err
}
