package checks

import (
	"fmt"

	"mailstack/internal/data"
	"mailstack/internal/probe"
)

// fact reads a declared fact of type T. When it is absent or mistyped the
// returned result is a WARN the caller should report as-is.
func fact[T any](dc data.DataContext, checkID string, key data.DependencyKey) (T, *probe.Result) {
	var zero T
	val, ok := dc.Get(key)
	if !ok {
		res := probe.Warn(checkID, fmt.Sprintf("unknown: %s not available", key)).WithCause(probe.CauseFactUnknown)
		return zero, &res
	}
	v, ok := val.(T)
	if !ok {
		res := probe.Warn(checkID, fmt.Sprintf("unknown: unexpected type %T for %s", val, key)).WithCause(probe.CauseFactUnknown)
		return zero, &res
	}
	return v, nil
}
