// Command docuchat is the entry point for the DocuChat document chat backend.
// It provides a CLI interface (via Cobra) and an HTTP server that a web
// client talks to for retrieval-augmented chat over uploaded documents.
package main

import (
	"fmt"
	"os"

	"github.com/docuchat/docuchat/cmd/docuchat/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
