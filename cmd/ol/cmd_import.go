package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/daviddao/merklelog/pkg/entry"
)

// importResult counts the outcome of joining an export stream.
type importResult struct {
	Added    int      `json:"added"`
	Ignored  int      `json:"ignored"`
	Rejected int      `json:"rejected"`
	Errors   []string `json:"errors,omitempty"`
}

// importStream stores the identity records of r and joins every entry
// into the log. Rejected items are counted, not fatal; only a broken stream
// returns an error.
func (a *app) importStream(r io.Reader) (importResult, error) {
	var res importResult
	reject := func(err error) {
		res.Rejected++
		res.Errors = append(res.Errors, err.Error())
		log.WithError(err).Debug("import: rejected item")
	}
	err := readStream(r, func(kind string, b []byte) error {
		switch kind {
		case kindIdentity:
			if _, err := a.ids.AddIdentity(b); err != nil {
				reject(err)
			}
			return nil
		case kindEntry:
		default:
			reject(errors.Errorf("unknown item kind %q", kind))
			return nil
		}

		e, err := entry.Decode(b)
		if err != nil {
			reject(err)
			return nil
		}
		added, err := a.log.JoinEntry(e)
		switch {
		case err != nil:
			reject(err)
		case added:
			res.Added++
		default:
			res.Ignored++
		}
		return nil
	})
	return res, err
}

func (a *app) cmdImport(args []string) int {
	flags := flag.NewFlagSet("import", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if flags.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: ol import <file|->")
		return 1
	}

	var in io.Reader = os.Stdin
	if path := flags.Arg(0); path != "-" {
		f, err := os.Open(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ol: import: %v\n", err)
			return 1
		}
		defer f.Close()
		in = f
	}

	res, err := a.importStream(bufio.NewReader(in))
	if err != nil {
		fmt.Fprintf(os.Stderr, "ol: import: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(res)
	} else {
		fmt.Printf("imported: %d added, %d already known, %d rejected\n", res.Added, res.Ignored, res.Rejected)
		for _, e := range res.Errors {
			fmt.Fprintf(os.Stderr, "  rejected: %s\n", e)
		}
	}
	if res.Rejected > 0 {
		return 2
	}
	return 0
}
