// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes.
const (
	ExitFailure = 1
	ExitUsage   = 2
)

type usageError struct{ err error }

func (u usageError) Error() string { return u.err.Error() }
func (u usageError) Unwrap() error { return u.err }

// UsageError marks err as a command-line usage error.
func UsageError(err error) error {
	if err == nil {
		return nil
	}
	return usageError{err: err}
}

// ExitCode returns the exit code for err: 0 for nil, [ExitUsage] for
// errors wrapped by [UsageError], [ExitFailure] otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var usage usageError
	if errors.As(err, &usage) {
		return ExitUsage
	}
	return ExitFailure
}

// Fatal writes "error: err" to stderr and exits with [ExitCode]. Use it
// in main() for errors from run(), where the structured logger may not
// be initialized.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(ExitCode(err))
}
