package main

import (
	"errors"
	"fmt"
	"os"

	"quantkit/internal/common"
)

// Exit codes for different failure modes
const (
	ExitSuccess = 0
	ExitError   = 1 // runtime, storage or remote failure
	ExitUsage   = 2 // bad flags or invalid input
)

// UsageError marks a command line the user must fix.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var usage *UsageError
	if errors.As(err, &usage) ||
		errors.Is(err, common.ErrValidation) ||
		errors.Is(err, common.ErrUnsupportedMethod) {
		return ExitUsage
	}
	return ExitError
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}
