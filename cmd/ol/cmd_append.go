package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"os"
	"strings"

	"github.com/daviddao/merklelog/pkg/oplog"
)

func (a *app) cmdAppend(args []string) int {
	flags := flag.NewFlagSet("append", flag.ContinueOnError)
	pointers := flags.Int("pointers", a.cfg.PointerCount, "reference pointer count")
	stdin := flags.Bool("stdin", false, "read the payload from stdin")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	var payload []byte
	switch {
	case *stdin:
		b, err := ioutil.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ol: append: %v\n", err)
			return 1
		}
		payload = b
	case flags.NArg() > 0:
		payload = []byte(strings.Join(flags.Args(), " "))
	default:
		fmt.Fprintln(os.Stderr, "usage: ol append <payload> | --stdin")
		return 1
	}

	e, err := a.log.Append(payload, oplog.AppendOptions{PointerCount: *pointers})
	if err != nil {
		fmt.Fprintf(os.Stderr, "ol: append: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(viewOf(e))
	} else {
		fmt.Printf("appended %s t=%d next=%d refs=%d\n", e.Hash, e.Clock.Time, len(e.Next), len(e.Refs))
	}
	return 0
}
