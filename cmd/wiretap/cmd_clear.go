package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sadopc/wiretap/internal/config"
)

func clearCmd() {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: wiretap clear\n\n")
		fmt.Fprintf(os.Stderr, "Remove all archived exchanges.\n")
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

	if err := arch.Clear(); err != nil {
		fatal(err)
	}
	fmt.Println("History cleared.")
}
