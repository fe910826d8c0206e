// Package state stores local files: analysis results, raw session dumps
// and the history of runs started from this machine.
package state
