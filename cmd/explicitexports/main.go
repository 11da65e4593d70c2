package main

import (
	"os"

	"explicitexports/internal/cliapp"
)

func main() {
	os.Exit(cliapp.Run(os.Args[1:]))
}
