package main

import (
	"os"

	"github.com/alovak/cardflow-paycharge/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.Execute(version); err != nil {
		os.Exit(1)
	}
}
