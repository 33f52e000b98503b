package main

import (
	"os"

	"github.com/chaditya95/agentic-resume-picker/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
