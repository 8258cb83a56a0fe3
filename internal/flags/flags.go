package flags

// Package flags defines canonical CLI flag names shared across the CLI and the
// output layer. Keeping these as constants helps avoid drift between Cobra
// flag wiring and the error messages that point users at a flag.
// IMPORTANT: These are flag *names* without leading dashes.
// Example usage:
//
//	cmd.Flags().StringVar(&cfg.Stack.Flavor, flags.FlagFlavor, "", "...")
//	arg := "--" + flags.FlagFlavor
const (
	// Global
	FlagConfig     = "config"
	FlagFlavor     = "flavor"
	FlagInstallDir = "install-dir"
	FlagVerbose    = "verbose"

	// Probe
	FlagChecks = "checks"

	// Output
	FlagConsoleFormat       = "console-format"
	FlagConsoleFilterStatus = "console-filter-status"
	FlagReport              = "report"
	FlagOut                 = "out"
	FlagOutFormat           = "out-format"
	FlagMetricsFile         = "metrics-file"
	FlagNoConsole           = "no-console"
	FlagNoColor             = "no-color"

	// Runtime
	FlagConcurrency = "concurrency"
	FlagTimeout     = "timeout"

	// Install
	FlagDomain   = "domain"
	FlagTimezone = "timezone"
	FlagYes      = "yes"

	// History
	FlagLimit = "limit"
)
