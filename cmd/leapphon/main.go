// Package main provides the leapphon command-line tool.
package main

import (
	"os"

	"github.com/leapstack-labs/leapphon/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
