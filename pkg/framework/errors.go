package framework

import (
	"errors"
	"fmt"
	"strings"
)

// ErrForcedExit is returned by Runner.Wait after a second stop signal.
var ErrForcedExit = errors.New("forced exit")

// RunError is the failure of one Runnable started by a Runner.
type RunError struct {
	Name string
	Err  error
}

// Error implements error.
func (e *RunError) Error() string {
	return e.Name + ": " + e.Err.Error()
}

// Unwrap returns the error of the Runnable.
func (e *RunError) Unwrap() error {
	return e.Err
}

// AggregatedError collects the failures of several Runnables.
type AggregatedError struct {
	Errors []error
}

// Error implements error. A single error reads as itself.
func (e *AggregatedError) Error() string {
	switch len(e.Errors) {
	case 0:
		return ""
	case 1:
		return e.Errors[0].Error()
	}
	msg := make([]string, len(e.Errors))
	for n, err := range e.Errors {
		msg[n] = err.Error()
	}
	return fmt.Sprintf("%d errors: %s", len(e.Errors), strings.Join(msg, "; "))
}

// Unwrap exposes every collected error to errors.Is and errors.As.
func (e *AggregatedError) Unwrap() []error {
	return e.Errors
}

// Add adds errors to be aggregated. nil will be skipped.
func (e *AggregatedError) Add(errs ...error) *AggregatedError {
	for _, err := range errs {
		if err != nil {
			e.Errors = append(e.Errors, err)
		}
	}
	return e
}

// Failed lists the names of the Runnables which failed, in order of
// failure.
func (e *AggregatedError) Failed() []string {
	var names []string
	for _, err := range e.Errors {
		var re *RunError
		if errors.As(err, &re) {
			names = append(names, re.Name)
		}
	}
	return names
}

// Aggregate returns aggregated error if any error happened.
func (e *AggregatedError) Aggregate() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}
