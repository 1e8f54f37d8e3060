package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/daviddao/merklelog/pkg/storage"
)

// replicaStatus summarizes the local replica.
type replicaStatus struct {
	LogID        string `json:"log_id"`
	DataDir      string `json:"data_dir"`
	Storage      string `json:"storage"`
	Identity     string `json:"identity"`
	IdentityID   string `json:"identity_id"`
	Entries      int    `json:"entries"`
	Heads        int    `json:"heads"`
	Clock        uint64 `json:"clock"`
	StoredBlocks int64  `json:"stored_blocks"`
	StoredBytes  int64  `json:"stored_bytes"`
	Writers      int    `json:"writers"`
}

func (a *app) status() (replicaStatus, error) {
	st := replicaStatus{
		LogID:      a.log.ID(),
		DataDir:    a.cfg.DataDir,
		Storage:    a.cfg.Storage,
		Identity:   a.cfg.Identity,
		IdentityID: a.identity.ID,
	}
	values, err := a.log.Values()
	if err != nil {
		return st, err
	}
	st.Entries = len(values)
	writers := map[string]bool{}
	for _, e := range values {
		writers[e.Clock.ID] = true
	}
	st.Writers = len(writers)

	hs, err := a.log.Heads()
	if err != nil {
		return st, err
	}
	st.Heads = len(hs)
	c, err := a.log.Clock()
	if err != nil {
		return st, err
	}
	st.Clock = c.Time

	if u, ok := a.log.Storage().(storage.Usage); ok {
		if st.StoredBlocks, st.StoredBytes, err = u.Usage(); err != nil {
			return st, err
		}
	}
	a.metrics.SetEntries(st.Entries)
	a.metrics.SetHeads(st.Heads)
	a.metrics.SetStorageBytes(st.StoredBytes)
	return st, nil
}

func (a *app) cmdStatus(args []string) int {
	flags := flag.NewFlagSet("status", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	st, err := a.status()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ol: status: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(st)
		return 0
	}
	fmt.Printf("log:      %s\n", st.LogID)
	fmt.Printf("replica:  %s (%s)\n", st.DataDir, st.Storage)
	fmt.Printf("identity: %s (%s)\n", st.Identity, shortKey(st.IdentityID))
	fmt.Printf("entries:  %s from %d writer(s)\n", humanize.Comma(int64(st.Entries)), st.Writers)
	fmt.Printf("heads:    %d\n", st.Heads)
	fmt.Printf("clock:    %d\n", st.Clock)
	fmt.Printf("storage:  %s blocks, %s\n", humanize.Comma(st.StoredBlocks), humanize.Bytes(uint64(st.StoredBytes)))
	return 0
}
