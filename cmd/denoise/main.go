// Package main provides the denoise CLI.
package main

import (
	"os"

	"github.com/born-ml/denoise/cmd/denoise/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
