package main

import (
	"fmt"
	"os"

	"github.com/cartracker/cartracker/internal/failure"
)

// version is set via ldflags during build
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		kind := failure.Classify(err)
		fmt.Fprintf(os.Stderr, "Error (%s): %v\n", kind, err)
		os.Exit(kind.ExitCode())
	}
}
