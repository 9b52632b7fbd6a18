package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess   = 0 // Evaluation ran and every task completed
	ExitRunFailed = 1 // The evaluation or tool ran but reported failures
	ExitError     = 2 // Configuration or runtime error
)

// RunFailureError indicates that the command itself worked, but the
// evaluation or maintenance tool it drove reported a failure.
type RunFailureError struct {
	Message string
}

func (e *RunFailureError) Error() string {
	return e.Message
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		// Check error type to determine exit code
		var runFailureErr *RunFailureError
		if errors.As(err, &runFailureErr) {
			os.Exit(ExitRunFailed)
		}

		// All other errors are configuration/runtime errors
		os.Exit(ExitError)
	}
}
