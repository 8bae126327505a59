// Package main is the entry point for the cflp CLI.
package main

import (
	"os"

	"cflp/cmd/cflp/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
