// Package report records collective run results to pluggable sinks:
// console, CSV and Prometheus. Sinks are write-only; nothing in the
// run path reads results back.
package report

import (
	"errors"
	"log"

	"github.com/google/uuid"
)

// A Result is one timed collective run.
type Result struct {
	// RunID ties results from the same scenario run together.
	RunID string

	// Operation is the collective kind, e.g. "broadcast".
	Operation string

	// Algorithm is the strategy that executed it, e.g. "binomial".
	Algorithm string

	// Nodes is the rank count.
	Nodes int

	// Count is the vector length in elements.
	Count int

	// Seconds is the simulated completion time.
	Seconds float64
}

// A Reporter consumes results one at a time.
type Reporter interface {
	Report(r *Result) error
}

// NewRunID returns a fresh identifier shared by all results of a run.
func NewRunID() string {
	return uuid.NewString()
}

// A MultiReporter fans each result out to every sink. All sinks see
// the result even if an earlier one fails.
type MultiReporter []Reporter

func (m MultiReporter) Report(r *Result) error {
	var errs []error
	for _, rep := range m {
		if err := rep.Report(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// A ConsoleReporter logs each result in one line. A nil Logger uses
// the default logger.
type ConsoleReporter struct {
	Logger *log.Logger
}

func (c *ConsoleReporter) Report(r *Result) error {
	logger := c.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("run=%s op=%s alg=%s nodes=%d count=%d seconds=%.9f",
		r.RunID, r.Operation, r.Algorithm, r.Nodes, r.Count, r.Seconds)
	return nil
}
