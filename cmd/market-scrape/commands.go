package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/eve-market-scrape/pkg/analyzer"
	"github.com/Sternrassler/eve-market-scrape/pkg/client"
	"github.com/Sternrassler/eve-market-scrape/pkg/logging"
	"github.com/Sternrassler/eve-market-scrape/pkg/market"
	"github.com/Sternrassler/eve-market-scrape/pkg/metrics"
	"github.com/Sternrassler/eve-market-scrape/pkg/scraper"
	"github.com/Sternrassler/eve-market-scrape/pkg/snapshot"
)

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func required(fs *flag.FlagSet, names ...string) error {
	var missing []string
	for _, name := range names {
		if fs.Lookup(name).Value.String() == "" {
			missing = append(missing, "-"+name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: missing %s", fs.Name(), strings.Join(missing, ", "))
	}
	return nil
}

// session is a running scraper with its collaborators.
type session struct {
	scraper  *scraper.Scraper
	observer *scraper.ChanObserver
	progress chan struct{}
	closers  []func()
}

func (s *session) close() {
	s.observer.Close()
	<-s.progress
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// startSession wires the API client, the optional cache and metrics server,
// and a scraper that reports progress through the CLI logger.
func (a *app) startSession(ctx context.Context) (*session, error) {
	s := &session{
		observer: scraper.NewChanObserver(1024),
		progress: make(chan struct{}),
	}

	opts := []client.Option{client.WithLogger(logging.NewLogger("client"))}

	if rc := a.cfg.RedisClient(); rc != nil {
		if err := rc.Ping(ctx).Err(); err != nil {
			a.logger.Warn().Err(err).Str("addr", a.cfg.Redis.Addr).Msg("Redis unavailable, running without cache")
			rc.Close()
		} else {
			opts = append(opts, client.WithCache(a.cfg.CacheManager(rc)))
			s.closers = append(s.closers, func() { rc.Close() })
		}
	}

	c, err := client.New(a.cfg.ClientConfig(), opts...)
	if err != nil {
		for _, closer := range s.closers {
			closer()
		}
		return nil, err
	}
	s.closers = append(s.closers, func() { c.Close() })

	if addr := a.cfg.Metrics.Addr; addr != "" {
		mctx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := metrics.Serve(mctx, addr); err != nil {
				a.logger.Error().Err(err).Msg("Metrics server failed")
			}
		}()
		s.closers = append(s.closers, func() {
			cancel()
			<-done
		})
	}

	s.scraper = scraper.New(c,
		scraper.WithObserver(s.observer),
		scraper.WithLogger(logging.NewLogger("scraper")),
	)

	go func() {
		defer close(s.progress)
		a.renderProgress(s.observer.Events())
	}()

	return s, nil
}

// renderProgress logs every tenth of a phase and forwards log events.
func (a *app) renderProgress(events <-chan scraper.Event) {
	lastStep := -1
	for ev := range events {
		switch ev.Kind {
		case scraper.EventLog:
			a.logger.Debug().Msg(ev.Message)
		case scraper.EventProgress:
			if ev.Total == 0 {
				continue
			}
			if ev.Current == 1 {
				lastStep = -1
			}
			step := ev.Current * 10 / ev.Total
			if step != lastStep {
				lastStep = step
				a.logger.Info().Int("current", ev.Current).Int("total", ev.Total).Msg("Progress")
			}
		}
	}
}

func (a *app) meta(ctx context.Context, args []string) error {
	fs := a.flagSet("meta")
	out := fs.String("out", "meta.json", "metadata output file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := a.startSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	start := time.Now()
	meta, err := s.scraper.ScrapeMeta(ctx)
	if err != nil {
		return err
	}
	if err := snapshot.WriteMeta(*out, meta); err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "%d regions, %d types written to %s in %s\n",
		len(meta.Regions), len(meta.Types), *out, time.Since(start).Round(time.Millisecond))
	return nil
}

func (a *app) market(ctx context.Context, args []string) error {
	fs := a.flagSet("market")
	metaPath := fs.String("meta", "meta.json", "metadata file")
	region := fs.String("region", "", "region name, e.g. \"The Forge\"")
	out := fs.String("out", "", "snapshot output file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, "region", "out"); err != nil {
		return err
	}

	meta, err := snapshot.ReadMeta(*metaPath)
	if err != nil {
		return err
	}
	if _, err := scraper.FindRegion(meta, *region); err != nil {
		return err
	}

	s, err := a.startSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	snap, err := s.scraper.ScrapeMarket(ctx, *region, meta)
	if err != nil {
		return err
	}
	f, err := snapshot.Write(*out, snap)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "%s: %d rows written to %s (snapshot %s)\n", snap.Region.Name, len(snap.Rows), *out, f.ID)
	return nil
}

// reportFlags binds the metadata file and output format to fs.
func reportFlags(fs *flag.FlagSet) (*string, *bool) {
	metaPath := fs.String("meta", "meta.json", "metadata file")
	asJSON := fs.Bool("json", false, "print results as JSON")
	return metaPath, asJSON
}

// analysisFlags binds the analyzer options, the metadata file and the
// output format to fs.
func (a *app) analysisFlags(fs *flag.FlagSet) (*analyzer.Options, *string, *bool) {
	opts := a.cfg.Analyzer
	fs.Int64Var(&opts.MinVolume, "min-volume", opts.MinVolume, "ignore orders below this many units (>= 1)")
	fs.Float64Var(&opts.Cargo, "cargo", opts.Cargo, "cargo capacity in volume units")
	fs.Float64Var(&opts.Tax, "tax", opts.Tax, "sales tax as a fraction")
	fs.Float64Var(&opts.Funds, "funds", opts.Funds, "available ISK per haul")
	fs.IntVar(&opts.Count, "count", opts.Count, "maximum number of results (0 = all)")
	metaPath, asJSON := reportFlags(fs)
	return &opts, metaPath, asJSON
}

func loadAnalysis(metaPath string, opts *analyzer.Options) (*analyzer.Analyzer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	meta, err := snapshot.ReadMeta(metaPath)
	if err != nil {
		return nil, err
	}
	return analyzer.New(meta, analyzer.WithOptions(*opts)), nil
}

func readRows(path string) ([]market.Row, error) {
	f, err := snapshot.Read(path)
	if err != nil {
		return nil, err
	}
	return f.Rows, nil
}

func (a *app) spread(_ context.Context, args []string) error {
	fs := a.flagSet("spread")
	opts, metaPath, asJSON := a.analysisFlags(fs)
	in := fs.String("in", "", "region snapshot file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, "in"); err != nil {
		return err
	}

	an, err := loadAnalysis(*metaPath, opts)
	if err != nil {
		return err
	}
	rows, err := readRows(*in)
	if err != nil {
		return err
	}

	results := an.Spread(rows)
	if *asJSON {
		return writeJSON(a.stdout, results)
	}
	return writeSpreads(a.stdout, results)
}

func (a *app) haul(_ context.Context, args []string) error {
	fs := a.flagSet("haul")
	opts, metaPath, asJSON := a.analysisFlags(fs)
	from := fs.String("from", "", "origin region snapshot file")
	to := fs.String("to", "", "destination region snapshot file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, "from", "to"); err != nil {
		return err
	}

	an, err := loadAnalysis(*metaPath, opts)
	if err != nil {
		return err
	}
	fromRows, err := readRows(*from)
	if err != nil {
		return err
	}
	toRows, err := readRows(*to)
	if err != nil {
		return err
	}

	results := an.Haul(fromRows, toRows)
	if *asJSON {
		return writeJSON(a.stdout, results)
	}
	return writeHauls(a.stdout, results)
}

func (a *app) margin(_ context.Context, args []string) error {
	fs := a.flagSet("margin")
	metaPath, asJSON := reportFlags(fs)
	in := fs.String("in", "", "region snapshot file")
	station := fs.String("station", "", "exact station name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, "in", "station"); err != nil {
		return err
	}

	opts := a.cfg.Analyzer
	an, err := loadAnalysis(*metaPath, &opts)
	if err != nil {
		return err
	}
	rows, err := readRows(*in)
	if err != nil {
		return err
	}

	results := an.Margin(rows, *station)
	if len(results) == 0 {
		a.logger.Warn().Str("station", *station).Msg("No positive margins at station")
	}
	if *asJSON {
		return writeJSON(a.stdout, results)
	}
	return writeMargins(a.stdout, results)
}
