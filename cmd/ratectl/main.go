package main

import (
	"os"

	"github.com/damon-houk/fintrack/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
