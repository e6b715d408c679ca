package main

import (
	"os"

	"github.com/attestor-io/attestor/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
