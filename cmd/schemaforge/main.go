package main

import (
	"os"

	"github.com/schemaforge/schemaforge/internal/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
