package main

import (
	"flag"
	"fmt"
	"os"
)

func (a *app) cmdHeads(args []string) int {
	flags := flag.NewFlagSet("heads", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	hs, err := a.log.Heads()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ol: heads: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(map[string]interface{}{"heads": viewsOf(hs), "count": len(hs)})
		return 0
	}
	if len(hs) == 0 {
		fmt.Println("no heads (empty log)")
		return 0
	}
	if len(hs) > 1 {
		fmt.Printf("%d concurrent heads\n", len(hs))
	}
	for _, h := range hs {
		fmt.Printf("%s t=%d writer=%s\n", h.Hash, h.Clock.Time, shortKey(h.Clock.ID))
	}
	return 0
}
