package main

import (
	"flag"
	"fmt"
	"os"
)

func (a *app) cmdClock(args []string) int {
	flags := flag.NewFlagSet("clock", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	c, err := a.log.Clock()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ol: clock: %v\n", err)
		return 1
	}
	if *jsonOut {
		printJSON(map[string]interface{}{"clock": c, "next": c.Tick()})
	} else {
		fmt.Printf("clock %d (next append t=%d) writer=%s\n", c.Time, c.Tick().Time, c.ID)
	}
	return 0
}
