package main

import (
	"os"

	"github.com/biocom-dev/biocom/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
