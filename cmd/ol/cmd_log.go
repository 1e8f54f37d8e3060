package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/daviddao/merklelog/pkg/entry"
	"github.com/daviddao/merklelog/pkg/oplog"
)

func (a *app) cmdLog(args []string) int {
	flags := flag.NewFlagSet("log", flag.ContinueOnError)
	amount := flags.Int("amount", oplog.Unbounded, "max entries to return (-1 for all)")
	lt := flags.String("lt", "", "start below this entry")
	lte := flags.String("lte", "", "start at this entry")
	gt := flags.String("gt", "", "stop above this entry")
	gte := flags.String("gte", "", "stop at this entry")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	for _, b := range []struct{ name, value string }{
		{"--lt", *lt}, {"--lte", *lte}, {"--gt", *gt}, {"--gte", *gte},
	} {
		if err := checkHash("log "+b.name, b.value); err != nil {
			fmt.Fprintf(os.Stderr, "ol: %v\n", err)
			return 1
		}
	}

	it, err := a.log.Iterator(oplog.IteratorOptions{
		Amount: *amount, LT: *lt, LTE: *lte, GT: *gt, GTE: *gte,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "ol: log: %v\n", err)
		return 1
	}
	entries, err := it.All()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ol: log: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(map[string]interface{}{"entries": viewsOf(entries), "count": len(entries)})
	} else if len(entries) == 0 {
		fmt.Println("no entries")
	} else {
		for _, e := range entries {
			printEntryLine(e)
		}
	}
	return 0
}

// printEntryLine prints one entry as "[t=N] writer hash payload".
func printEntryLine(e *entry.Entry) {
	payload := string(e.Payload)
	if len(payload) > 120 {
		payload = payload[:120] + "..."
	}
	fmt.Printf("[t=%d] %s %s %s\n", e.Clock.Time, shortKey(e.Clock.ID), shortHash(e.Hash), payload)
}
