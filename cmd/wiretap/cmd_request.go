package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/tidwall/pretty"

	"github.com/sadopc/wiretap/internal/capture"
	"github.com/sadopc/wiretap/internal/config"
	"github.com/sadopc/wiretap/internal/export/eventjson"
	"github.com/sadopc/wiretap/internal/history"
	"github.com/sadopc/wiretap/internal/protocol"
	httpclient "github.com/sadopc/wiretap/internal/protocol/http"
)

// headerFlags collects repeated --header values.
type headerFlags []string

func (h *headerFlags) String() string { return strings.Join(*h, ", ") }

func (h *headerFlags) Set(v string) error {
	*h = append(*h, v)
	return nil
}

func requestCmd(method string) {
	fs := flag.NewFlagSet(method, flag.ExitOnError)
	var headers headerFlags
	fs.Var(&headers, "header", "Request header as 'Name: Value' (repeatable)")
	dataFlag := fs.String("data", "", "Request body")
	timeoutFlag := fs.Duration("timeout", 0, "Request timeout (default from config)")
	verboseFlag := fs.Bool("verbose", false, "Show response headers and body")
	exportFlag := fs.Bool("export", false, "Print the captured exchange as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: wiretap %s <url> [flags]\n\n", method)
		fmt.Fprintf(os.Stderr, "Execute a request through the capture pipeline.\n\n")
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
	if err := cfg.Validate(); err != nil {
		fatal(fmt.Errorf("invalid configuration: %w", err))
	}

	store, err := capture.NewStore(cfg.Capture.Capacity)
	if err != nil {
		fatal(err)
	}
	hub := capture.NewHub()

	client := httpclient.New()
	client.SetTimeout(cfg.DefaultTimeout)
	if cfg.Proxy != "" {
		client.SetProxy(cfg.Proxy, cfg.NoProxy)
	}

	handler := client.Handler()
	if cfg.Capture.Enabled {
		ic := capture.NewInterceptor(store, hub)
		ic.SetMaxBodyBytes(cfg.Capture.MaxBodyBytes)
		ic.SetFaultHandler(func(err error) {
			fmt.Fprintf(os.Stderr, "warning: capture fault: %v\n", err)
		})
		handler = protocol.Chain(handler, ic.Wrap)
	}

	// Archive captured events in the background while the request runs.
	archiveDone := make(chan struct{})
	var unsubscribe func()
	if cfg.Capture.Enabled && cfg.Archive.Enabled {
		arch, err := openArchive(cfg)
		if err != nil {
			fatal(err)
		}
		defer arch.Close()

		var events <-chan capture.Event
		events, unsubscribe = hub.Subscribe()
		go func() {
			arch.Follow(context.Background(), events)
			close(archiveDone)
		}()
	} else {
		close(archiveDone)
	}

	req := &protocol.Request{
		Method:  strings.ToUpper(method),
		URL:     fs.Arg(0),
		Headers: parseHeaders(headers),
		Timeout: *timeoutFlag,
	}
	if *dataFlag != "" {
		req.Body = []byte(*dataFlag)
	}

	resp, execErr := handler(context.Background(), req)

	// Let the archive drain whatever was captured before reporting.
	if unsubscribe != nil {
		unsubscribe()
	}
	<-archiveDone

	if execErr != nil {
		fatal(execErr)
	}

	fmt.Printf("%s  %s  %s\n", resp.Status, humanize.IBytes(uint64(resp.Size)), resp.Proto)
	if *verboseFlag {
		for k, v := range resp.Headers {
			fmt.Printf("%s: %s\n", k, v)
		}
		fmt.Println()
		printBody(resp)
	}

	if *exportFlag {
		snapshot := store.Snapshot()
		if len(snapshot) > 0 {
			fmt.Println()
			if err := eventjson.Export(os.Stdout, snapshot[len(snapshot)-1]); err != nil {
				fatal(err)
			}
		}
	}
}

func printBody(resp *protocol.Response) {
	if strings.Contains(resp.ContentType, "json") {
		os.Stdout.Write(pretty.Pretty(resp.Body))
		return
	}
	os.Stdout.Write(resp.Body)
	fmt.Println()
}

func parseHeaders(raw []string) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]string, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			continue
		}
		out[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return out
}

func openArchive(cfg config.Config) (*history.Archive, error) {
	path := cfg.Archive.Path
	if path == "" {
		path = config.DefaultArchivePath()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating archive directory: %w", err)
		}
	}
	return history.Open(path)
}

// relativeTime renders an event age for listings.
func relativeTime(t time.Time) string {
	return humanize.Time(t)
}
