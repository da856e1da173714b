package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/syssam/traitgen/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(1)
	}
}
