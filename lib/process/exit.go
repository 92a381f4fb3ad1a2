// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"os"
)

// Fatal writes "error: err" to stderr and exits. Use it in main() for
// errors from run() where the structured logger may not be initialized.
//
// An error with an ExitCode() int method (cli.ExitError) exits with
// that code and prints nothing: the command already wrote its output.
func Fatal(err error) {
	if coder, ok := err.(interface{ ExitCode() int }); ok {
		os.Exit(coder.ExitCode())
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
