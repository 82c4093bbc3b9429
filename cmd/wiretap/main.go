package main

import (
	"fmt"
	"os"

	"github.com/sadopc/wiretap/pkg/version"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "get", "post", "put", "delete", "patch", "head":
			requestCmd(os.Args[1])
			return
		case "history":
			historyCmd()
			return
		case "export":
			exportCmd()
			return
		case "clear":
			clearCmd()
			return
		case "version":
			fmt.Printf("wiretap %s (%s) built %s\n", version.Version, version.Commit, version.Date)
			return
		case "help":
			printHelp()
			return
		}
	}
	printHelp()
}

func printHelp() {
	fmt.Fprintf(os.Stderr, `wiretap - capture and inspect HTTP client traffic

Usage:
  wiretap <command> [args] [flags]

Commands:
  get|post|put|delete|patch|head <url>
            Execute a request through the capture pipeline
  history   List captured exchanges from the archive
  export    Export one archived exchange as JSON
  clear     Remove all archived exchanges
  version   Print version information
  help      Show this help message

Run 'wiretap <command> --help' for more information about a command.
`)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
