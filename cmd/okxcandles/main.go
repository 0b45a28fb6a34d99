package main

import (
	"os"

	"github.com/rustyeddy/okxcandles/cmd/okxcandles/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
