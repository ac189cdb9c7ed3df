package main

import (
	"os"

	"github.com/rustyeddy/traderagent/cmd/traderagent/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
