package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sadopc/wiretap/internal/config"
	"github.com/sadopc/wiretap/internal/export/eventjson"
)

func exportCmd() {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	outFlag := fs.String("out", "", "Write to a file instead of stdout")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: wiretap export <event-id> [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Export one archived exchange as a JSON document.\n")
		fmt.Fprintf(os.Stderr, "The ID may be the 8-character prefix shown by 'wiretap history'.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(os.Args[2:]); err != nil {
		os.Exit(2)
	}
	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	arch, err := openArchive(cfg)
	if err != nil {
		fatal(err)
	}
	defer arch.Close()

	event, err := arch.Get(fs.Arg(0))
	if err != nil {
		// Fall back to prefix lookup over the recent listing.
		events, listErr := arch.List(500, 0)
		if listErr != nil {
			fatal(err)
		}
		found := false
		for _, e := range events {
			if len(fs.Arg(0)) >= 4 && len(e.ID) >= len(fs.Arg(0)) && e.ID[:len(fs.Arg(0))] == fs.Arg(0) {
				event = e
				found = true
				break
			}
		}
		if !found {
			fatal(err)
		}
	}

	var sink io.Writer = os.Stdout
	if *outFlag != "" {
		f, err := os.Create(*outFlag)
		if err != nil {
			fatal(fmt.Errorf("creating output file: %w", err))
		}
		defer f.Close()
		sink = f
	}

	if err := eventjson.Export(sink, event); err != nil {
		fatal(err)
	}
}
