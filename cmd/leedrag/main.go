// Package main provides the entry point for the leedrag CLI.
package main

import (
	"fmt"
	"os"

	"github.com/Aman-CERP/leedrag/cmd/leedrag/cmd"
	"github.com/Aman-CERP/leedrag/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprint(os.Stderr, errors.FormatForCLI(err))
		os.Exit(1)
	}
}
