package engine

import "mailstack/internal/data"

// ExecutionResult is the outcome of gathering every planned fact: the facts
// that were obtained and the error for each one that was not.
type ExecutionResult struct {
	Data    data.DataContext
	DepErrs map[data.DependencyKey]error
}
