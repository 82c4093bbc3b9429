package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sadopc/wiretap/internal/capture"
	"github.com/sadopc/wiretap/internal/config"
)

func historyCmd() {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limitFlag := fs.Int("limit", 50, "Maximum number of entries to show")
	offsetFlag := fs.Int("offset", 0, "Number of entries to skip")
	urlFlag := fs.String("url", "", "Show only entries whose URL contains this substring")
	errorsFlag := fs.Bool("errors", false, "Show only failed exchanges")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: wiretap history [flags]\n\n")
		fmt.Fprintf(os.Stderr, "List captured exchanges from the archive, most recent first.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(os.Args[2:]); err != nil {
		os.Exit(2)
	}

	cfg := config.Load()
	arch, err := openArchive(cfg)
	if err != nil {
		fatal(err)
	}
	defer arch.Close()

	var events []capture.Event
	if *urlFlag != "" {
		events, err = arch.Search(*urlFlag)
	} else {
		events, err = arch.List(*limitFlag, *offsetFlag)
	}
	if err != nil {
		fatal(err)
	}

	if *errorsFlag {
		hasError := true
		filter := capture.Filter{HasError: &hasError}
		kept := events[:0]
		for _, e := range events {
			if filter.Match(e) {
				kept = append(kept, e)
			}
		}
		events = kept
	}

	if len(events) == 0 {
		fmt.Println("No captured exchanges.")
		return
	}

	for _, e := range events {
		status := fmt.Sprintf("%d", e.StatusCode)
		if e.IsError() {
			status = "ERR"
		}
		fmt.Printf("%-8s  %-4s  %-6s  %9s  %13s  %-14s  %s\n",
			shortID(e.ID), status, e.Method,
			humanize.IBytes(uint64(len(e.ResponseBody))),
			e.Elapsed.Round(time.Millisecond), relativeTime(e.Timestamp), e.URL)
		if e.IsError() {
			fmt.Printf("          %s\n", e.Err)
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
