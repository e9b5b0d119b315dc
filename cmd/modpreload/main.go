package main

import (
	"fmt"
	"os"

	"github.com/modpreload/modpreload/internal/exitcode"
)

func main() {
	err := rootCmd.Execute()

	// Build errors were already printed with their code frames
	if err != nil && !exitcode.WasReported(err) {
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
	}

	os.Exit(exitcode.Get(err))
}
