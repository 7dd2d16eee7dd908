// Package main is the entry point for knotifier.
// knotifier shadows on-demand scaling groups with cheaper spot capacity.
package main

import (
	"os"

	"github.com/patoarvizu/knotifier/cmd/knotifier/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
