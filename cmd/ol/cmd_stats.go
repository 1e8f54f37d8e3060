package main

import (
	"flag"
	"fmt"
	"os"
)

func (a *app) cmdStats(args []string) int {
	flags := flag.NewFlagSet("stats", flag.ContinueOnError)
	if err := flags.Parse(args); err != nil {
		return 1
	}

	if _, err := a.status(); err != nil {
		fmt.Fprintf(os.Stderr, "ol: stats: %v\n", err)
		return 1
	}
	if err := a.metrics.WriteText(os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "ol: stats: %v\n", err)
		return 1
	}
	return 0
}
