package main

import (
	"os"

	"github.com/Codealike/Codealike-plugins-core/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
