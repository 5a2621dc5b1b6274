// Package main is the leapdplyr command.
package main

import (
	"os"

	"github.com/leapstack-labs/leapdplyr/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
