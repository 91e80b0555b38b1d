package main

import (
	"os"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/app"
)

func main() {
	if err := app.BuildRoot().Execute(); err != nil {
		os.Exit(1)
	}
}
