package main

import (
	"fmt"
	"os"

	"github.com/mutantlab/mutant/cmd/mutant/app"
)

func main() {
	if err := app.NewMutantCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
