package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/daviddao/merklelog/pkg/frontier"
)

func (a *app) cmdGet(args []string) int {
	flags := flag.NewFlagSet("get", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if flags.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: ol get <hash>")
		return 1
	}
	h := flags.Arg(0)
	if err := checkHash("get", h); err != nil {
		fmt.Fprintf(os.Stderr, "ol: %v\n", err)
		return 1
	}

	e, err := a.log.Get(h)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ol: get: %v\n", err)
		return 1
	}
	all, err := a.log.Values()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ol: get: %v\n", err)
		return 1
	}
	st := frontier.ComputeStatus(h, all)

	if *jsonOut {
		printJSON(map[string]interface{}{"entry": viewOf(e), "status": st})
		return 0
	}
	fmt.Printf("hash:     %s\n", e.Hash)
	fmt.Printf("log:      %s\n", e.ID)
	fmt.Printf("clock:    %d (%s)\n", e.Clock.Time, e.Clock.ID)
	fmt.Printf("identity: %s\n", e.Identity)
	fmt.Printf("next:     %s\n", strings.Join(e.Next, ", "))
	fmt.Printf("refs:     %s\n", strings.Join(e.Refs, ", "))
	if st.Head {
		fmt.Println("head:     yes")
	} else {
		fmt.Printf("head:     no (superseded by %d)\n", len(st.SupersededBy))
	}
	fmt.Printf("payload:  %s\n", e.Payload)
	return 0
}
