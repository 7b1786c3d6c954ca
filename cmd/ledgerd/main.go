package main

import (
	"os"

	"github.com/pocketledger/ledger-core/cmd/ledgerd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
