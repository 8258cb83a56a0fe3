package data

// DependencyKey uniquely identifies a host fact.
type DependencyKey string
