// Package main is the entry point for the sulu CLI tool.
package main

import (
	"os"

	"github.com/2lenet/sulu/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
