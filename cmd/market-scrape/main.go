// Command market-scrape downloads regional order books from the market API
// and searches them for trade opportunities.
//
// Usage:
//
//	market-scrape [-config file] <command> [flags]
//
// Commands:
//
//	meta     fetch regions and type metadata
//	market   fetch the order book of one region
//	spread   rank buy-low/sell-high spreads inside one region
//	haul     rank cross-region hauls
//	margin   report station trading margins
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sternrassler/eve-market-scrape/pkg/config"
	"github.com/Sternrassler/eve-market-scrape/pkg/logging"
	"github.com/rs/zerolog"
)

var errUsage = errors.New("invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) && !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "market-scrape: %v\n", err)
		}
		os.Exit(1)
	}
}

// app carries what every command needs.
type app struct {
	cfg    *config.Config
	stdout io.Writer
	stderr io.Writer
	logger zerolog.Logger
}

type command struct {
	name    string
	summary string
	run     func(a *app, ctx context.Context, args []string) error
}

var commands = []command{
	{name: "meta", summary: "fetch regions and type metadata", run: (*app).meta},
	{name: "market", summary: "fetch the order book of one region", run: (*app).market},
	{name: "spread", summary: "rank buy-low/sell-high spreads inside one region", run: (*app).spread},
	{name: "haul", summary: "rank cross-region hauls", run: (*app).haul},
	{name: "margin", summary: "report station trading margins", run: (*app).margin},
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("market-scrape", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to YAML configuration file")
	fs.Usage = func() { usage(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		return err
	}

	logCfg := cfg.Log
	logCfg.Output = stderr
	logging.Setup(logCfg)

	a := &app{
		cfg:    cfg,
		stdout: stdout,
		stderr: stderr,
		logger: logging.NewLogger("cli"),
	}

	name := fs.Arg(0)
	for _, cmd := range commands {
		if cmd.name == name {
			return cmd.run(a, ctx, fs.Args()[1:])
		}
	}

	fmt.Fprintf(stderr, "unknown command %q\n\n", name)
	fs.Usage()
	return errUsage
}

func usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "Usage: market-scrape [-config file] <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-8s %s\n", cmd.name, cmd.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global flags:")
	fs.PrintDefaults()
}
