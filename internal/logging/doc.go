// Package logging provides slog setup and shared attribute helpers so log
// output uses consistent keys across the codebase.
package logging
