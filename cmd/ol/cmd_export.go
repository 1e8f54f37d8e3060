package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
)

// exportStream writes the identity records of all writers, then every
// entry oldest first.
func (a *app) exportStream(w io.Writer) (int, error) {
	values, err := a.log.Values()
	if err != nil {
		return 0, err
	}
	sw := newStreamWriter(w)
	seen := map[string]bool{}
	for _, e := range values {
		if seen[e.Identity] {
			continue
		}
		seen[e.Identity] = true
		id, err := a.ids.GetIdentity(e.Identity)
		if err != nil {
			return 0, err
		}
		if err := sw.write(kindIdentity, id.Bytes); err != nil {
			return 0, err
		}
	}
	for _, e := range values {
		if err := sw.write(kindEntry, e.Bytes); err != nil {
			return 0, err
		}
	}
	return len(values), nil
}

func (a *app) cmdExport(args []string) int {
	flags := flag.NewFlagSet("export", flag.ContinueOnError)
	out := flags.String("out", "-", "output file (- for stdout)")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	f := os.Stdout
	if *out != "-" {
		var err error
		if f, err = os.Create(*out); err != nil {
			fmt.Fprintf(os.Stderr, "ol: export: %v\n", err)
			return 1
		}
		defer f.Close()
	}
	w := bufio.NewWriter(f)
	n, err := a.exportStream(w)
	if err == nil {
		err = w.Flush()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "ol: export: %v\n", err)
		return 1
	}
	if *out != "-" {
		fmt.Fprintf(os.Stderr, "exported %d entries to %s\n", n, *out)
	}
	return 0
}
