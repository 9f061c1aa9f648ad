package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gso-bench/gso-ingest/internal/ingest"
)

// Exit codes for different failure modes
const (
	ExitSuccess        = 0 // Everything uploaded
	ExitPartialFailure = 1 // One or more batches failed to upload
	ExitError          = 2 // Configuration or runtime error
)

func main() {
	os.Exit(exitCode(execute(), os.Stderr))
}

func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return ExitSuccess
	}
	fmt.Fprintln(stderr, err) //nolint:errcheck

	var partial *ingest.PartialFailureError
	if errors.As(err, &partial) {
		return ExitPartialFailure
	}

	// All other errors are configuration/runtime errors
	return ExitError
}
