package main

import (
	"os"

	"github.com/link-bedside-nurses/dispatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
