package main

import (
	"os"

	"layercheck/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
