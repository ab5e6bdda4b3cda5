// Package main is the entry point for the ledger-import CLI.
package main

import (
	"os"

	"github.com/nottinghack/ledger-import/cmd/ledger-import/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
