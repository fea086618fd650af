package main

import (
	"os"

	"fxHedgeBot/cmd/hedgectl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
