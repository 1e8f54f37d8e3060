package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/daviddao/merklelog/pkg/config"
)

func cmdInit(cfg config.Config, args []string) int {
	flags := flag.NewFlagSet("init", flag.ContinueOnError)
	logID := flags.String("log-id", cfg.LogID, "log id (default: random)")
	ident := flags.String("identity", cfg.Identity, "identity name")
	backend := flags.String("storage", cfg.Storage, "storage backend: sqlite, leveldb or memory")
	pointers := flags.Int("pointers", cfg.PointerCount, "reference pointer count for appends")
	write := flags.String("write", strings.Join(cfg.WriteAccess, ","), "comma-separated identity ids allowed to write")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	existed := cfg.Exists()
	cfg.LogID = *logID
	if cfg.LogID == "" {
		cfg.LogID = uuid.NewString()
	}
	cfg.Identity = *ident
	cfg.Storage = *backend
	cfg.PointerCount = *pointers
	cfg.WriteAccess = nil
	if *write != "" {
		cfg.WriteAccess = strings.Split(*write, ",")
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "ol: init: %v\n", err)
		return 1
	}
	if err := cfg.Save(); err != nil {
		fmt.Fprintf(os.Stderr, "ol: init: %v\n", err)
		return 1
	}

	a, err := newApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ol: init: %v\n", err)
		return 1
	}
	defer a.Close()

	if *jsonOut {
		printJSON(map[string]interface{}{
			"data_dir":   cfg.DataDir,
			"log_id":     cfg.LogID,
			"storage":    cfg.Storage,
			"identity":   a.identity,
			"reinit":     existed,
			"config":     cfg.Path(),
			"write_list": cfg.WriteAccess,
		})
		return 0
	}

	verb := "initialized"
	if existed {
		verb = "reinitialized"
	}
	fmt.Printf("%s merklelog in %s (storage: %s)\n", verb, cfg.DataDir, cfg.Storage)
	fmt.Printf("  log id:      %s\n", cfg.LogID)
	fmt.Printf("  identity:    %s (%s)\n", cfg.Identity, a.identity.ID)
	fmt.Printf("  signing key: %s\n", a.identity.PublicKey)
	if len(cfg.WriteAccess) > 0 {
		fmt.Printf("  writers:     %s\n", strings.Join(cfg.WriteAccess, ", "))
	}
	fmt.Println()
	fmt.Println("next steps:")
	fmt.Println("  ol append <payload>")
	fmt.Println("  ol log")
	return 0
}
