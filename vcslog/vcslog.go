// Package vcslog wraps go.uber.org/zap for the engine's operation-level
// tracing. The teacher repo has no logging package of its own — this
// follows the structured-logging convention demonstrated elsewhere in this
// corpus (bufbuild-buf) instead of reaching for fmt.Printf debug lines.
package vcslog

import "go.uber.org/zap"

// New builds a production logger, or a development logger with debug
// output when verbose is true.
func New(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// Nop returns a logger that discards everything, the default for library
// consumers that never configured one.
func Nop() *zap.Logger {
	return zap.NewNop()
}
