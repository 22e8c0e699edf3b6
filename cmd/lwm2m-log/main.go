// Command lwm2m-log inspects protocol captures written by lwm2m-client
// when log.protocol_file is configured.
//
//	lwm2m-log view --command read client.plog
//	lwm2m-log view --category object client.plog
//	lwm2m-log export --format csv -o client.csv client.plog
//	lwm2m-log filter --session 3f2a9c1e-... -o run.plog client.plog
//	lwm2m-log stats client.plog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/lwm2m-go/lwm2m-client/cmd/lwm2m-log/commands"
)

type command struct {
	name    string
	summary string
	run     func(fs *flag.FlagSet, args []string) error
}

var commandTable = []command{
	{"view", "print events in human-readable form", runView},
	{"export", "convert a capture to jsonl or csv", runExport},
	{"filter", "copy matching events into a new capture", runFilter},
	{"stats", "summarize a capture", runStats},
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: lwm2m-log <command> [flags] <file.plog>")
	fmt.Fprintln(os.Stderr)
	for _, c := range commandTable {
		fmt.Fprintf(os.Stderr, "  %-8s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, `run "lwm2m-log <command> -h" for command flags`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	name := os.Args[1]
	if name == "help" || name == "-h" || name == "--help" {
		usage()
		return
	}
	for _, c := range commandTable {
		if c.name != name {
			continue
		}
		fs := flag.NewFlagSet(c.name, flag.ExitOnError)
		fs.Usage = func() {
			fmt.Fprintf(os.Stderr, "usage: lwm2m-log %s [flags] <file.plog>\n\n%s\n\n", c.name, c.summary)
			fs.PrintDefaults()
		}
		if err := c.run(fs, os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "lwm2m-log %s: %v\n", c.name, err)
			os.Exit(1)
		}
		return
	}
	fmt.Fprintf(os.Stderr, "lwm2m-log: unknown command %q\n\n", name)
	usage()
	os.Exit(2)
}

// parse parses args and returns the capture path.
func parse(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return "", fmt.Errorf("expected exactly one capture file")
	}
	return fs.Arg(0), nil
}

// selectorFlags registers the flags shared by view and filter.
type selectorFlags struct {
	layer, direction, category, command *string
}

func addSelectorFlags(fs *flag.FlagSet) selectorFlags {
	return selectorFlags{
		layer:     fs.String("layer", "", "only this layer (transport, wire, service, store)"),
		direction: fs.String("direction", "", "only this direction (in, out)"),
		category:  fs.String("category", "", "only this category (message, control, state, error, object)"),
		command:   fs.String("command", "", "only messages for this command (read, write, ...)"),
	}
}

func runView(fs *flag.FlagSet, args []string) error {
	sel := addSelectorFlags(fs)
	path, err := parse(fs, args)
	if err != nil {
		return err
	}

	var vf commands.ViewFilter
	if *sel.layer != "" {
		l, err := commands.ParseLayerFlag(*sel.layer)
		if err != nil {
			return err
		}
		vf.Layer = &l
	}
	if *sel.direction != "" {
		d, err := commands.ParseDirectionFlag(*sel.direction)
		if err != nil {
			return err
		}
		vf.Direction = &d
	}
	if *sel.category != "" {
		c, err := commands.ParseCategoryFlag(*sel.category)
		if err != nil {
			return err
		}
		vf.Category = &c
	}
	if *sel.command != "" {
		c, err := commands.ParseCommandFlag(*sel.command)
		if err != nil {
			return err
		}
		vf.Command = &c
	}
	return commands.RunView(path, vf, os.Stdout)
}

func runExport(fs *flag.FlagSet, args []string) error {
	format := fs.String("format", "jsonl", "output format (jsonl, csv)")
	output := fs.String("o", "", "output file (default stdout)")
	path, err := parse(fs, args)
	if err != nil {
		return err
	}
	return commands.RunExport(path, *format, *output)
}

func runFilter(fs *flag.FlagSet, args []string) error {
	sel := addSelectorFlags(fs)
	opts := commands.FilterOptions{}
	fs.StringVar(&opts.Output, "o", "", "output capture file (required)")
	fs.StringVar(&opts.SessionID, "session", "", "only this session id")
	fs.StringVar(&opts.ClientName, "client", "", "only this endpoint name")
	fs.StringVar(&opts.TimeStart, "time-start", "", "only events at or after this RFC 3339 time")
	fs.StringVar(&opts.TimeEnd, "time-end", "", "only events before this RFC 3339 time")
	path, err := parse(fs, args)
	if err != nil {
		return err
	}
	if opts.Output == "" {
		return fmt.Errorf("-o is required")
	}
	opts.Layer, opts.Direction, opts.Category, opts.Command = *sel.layer, *sel.direction, *sel.category, *sel.command

	n, err := commands.RunFilter(path, opts)
	if err != nil {
		return err
	}
	fmt.Printf("wrote %d events to %s\n", n, opts.Output)
	return nil
}

func runStats(fs *flag.FlagSet, args []string) error {
	path, err := parse(fs, args)
	if err != nil {
		return err
	}
	return commands.RunStats(path, os.Stdout)
}
