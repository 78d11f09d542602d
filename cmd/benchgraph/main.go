// Package main provides the benchgraph command.
package main

import (
	"os"

	"github.com/leapstack-labs/benchgraph/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
