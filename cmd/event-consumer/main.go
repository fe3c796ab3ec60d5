package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/Log-Tools/commerce-events-pipeline/internal/config"
)

const (
	exitOK          = 0
	exitFault       = 1
	exitConfigError = 2
)

func main() {
	os.Exit(execute())
}

// execute runs the root command and maps its error to an exit status
func execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return exitOK
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return exitCode(err)
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var cfgErr *config.ConfigError
	if errors.As(err, &cfgErr) {
		return exitConfigError
	}
	return exitFault
}
