// Package main is the entry point for the monzo-sync CLI.
package main

import (
	"os"

	"github.com/tomharle/monzo-lunchmoney-sync/cmd/monzo-sync/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
