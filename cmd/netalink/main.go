// Command netalink runs the affidavit linkage pipeline: scrape candidate
// records from the election commission portal, link each to a MyNeta
// profile, extract financial details, resolve addresses to city/pincode,
// and merge the datasets.
//
// Usage:
//
//	netalink scrape -url <candidate-list-url>
//	netalink link
//	netalink extract
//	netalink enrich          # requires GEMINI_API_KEY
//	netalink merge
//	netalink run -url <candidate-list-url>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/votelens/netalink/auth"
	"github.com/votelens/netalink/dataset"
	"github.com/votelens/netalink/eci"
	"github.com/votelens/netalink/extract"
	"github.com/votelens/netalink/gemini"
	"github.com/votelens/netalink/httpcache"
	"github.com/votelens/netalink/match"
	"github.com/votelens/netalink/myneta"
	"github.com/votelens/netalink/record"
	"github.com/votelens/netalink/resolve"
)

// Default file names for each phase; later phases read the earlier
// phase's output so a run can be resumed command by command.
const (
	candidatesFile = "eci_candidates.csv"
	linkedFile     = "eci_candidates_with_neta.csv"
	detailsFile    = "myneta_extracted_details.csv"
	enrichedFile   = "eci_candidates_filled.csv"
	mergedFile     = "eci_with_myneta_merged.csv"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd, args := os.Args[1], os.Args[2:]
	if err := run(cmd, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: netalink <command> [options]")
	fmt.Fprintln(os.Stderr, "\nCommands:")
	fmt.Fprintln(os.Stderr, "  scrape   fetch candidate records from the affidavit portal")
	fmt.Fprintln(os.Stderr, "  link     resolve each candidate's MyNeta profile link")
	fmt.Fprintln(os.Stderr, "  extract  pull financial details from linked profiles")
	fmt.Fprintln(os.Stderr, "  enrich   resolve addresses to city and pincode (needs GEMINI_API_KEY)")
	fmt.Fprintln(os.Stderr, "  merge    join candidate and financial datasets")
	fmt.Fprintln(os.Stderr, "  run      all of the above, in order")
}

// commonFlags are shared by every subcommand.
type commonFlags struct {
	debug     bool
	noCache   bool
	noBrowser bool
	cacheTTL  time.Duration
}

func registerCommon(fs *flag.FlagSet) *commonFlags {
	cf := &commonFlags{}
	fs.BoolVar(&cf.debug, "debug", false, "enable debug logging")
	fs.BoolVar(&cf.noCache, "no-cache", false, "disable HTTP caching (enabled by default)")
	fs.BoolVar(&cf.noBrowser, "no-browser", false, "disable reading session cookies from browser stores")
	fs.DurationVar(&cf.cacheTTL, "cache-ttl", 75*24*time.Hour, "cache time-to-live")
	return cf
}

func (cf *commonFlags) logger() *slog.Logger {
	level := slog.LevelInfo
	if cf.debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func (cf *commonFlags) cache(logger *slog.Logger) *httpcache.Cache {
	if cf.noCache {
		return nil
	}
	c, err := httpcache.New(cf.cacheTTL)
	if err != nil {
		logger.Warn("failed to initialize cache, continuing without cache", "error", err)
		return nil
	}
	logger.Debug("HTTP cache initialized", "ttl", cf.cacheTTL.String())
	return c
}

// cookies resolves session cookies for site from the browser stores and
// the environment. Missing cookies are fine; the portals work
// unauthenticated, just with more interstitials.
func (cf *commonFlags) cookies(ctx context.Context, logger *slog.Logger, site string) map[string]string {
	sources := []auth.Source{auth.EnvSource{}}
	if !cf.noBrowser {
		sources = append(sources, auth.NewBrowserSource(logger))
	}
	cookies, err := auth.ChainSources(ctx, site, sources...)
	if err != nil {
		logger.Warn("cookie lookup failed", "site", site, "error", err)
		return nil
	}
	return cookies
}

func logCacheStats(logger *slog.Logger) {
	stats := httpcache.CacheStats()
	logger.Info("cache stats", "hits", stats.Hits, "misses", stats.Misses)
}

//nolint:gocognit // flat command dispatch
func run(cmd string, args []string) error {
	ctx := context.Background()

	switch cmd {
	case "scrape":
		fs := flag.NewFlagSet("scrape", flag.ExitOnError)
		cf := registerCommon(fs)
		listURL := fs.String("url", "", "candidate list URL on the affidavit portal (required)")
		out := fs.String("out", candidatesFile, "output CSV")
		_ = fs.Parse(args) //nolint:errcheck // ExitOnError
		if *listURL == "" {
			return errors.New("scrape: -url is required")
		}
		return scrape(ctx, cf, *listURL, *out)

	case "link":
		fs := flag.NewFlagSet("link", flag.ExitOnError)
		cf := registerCommon(fs)
		in := fs.String("in", candidatesFile, "input candidate CSV")
		out := fs.String("out", linkedFile, "output CSV with neta_link column filled")
		attempts := fs.Int("attempts", 3, "search attempts per candidate")
		_ = fs.Parse(args) //nolint:errcheck // ExitOnError
		return link(ctx, cf, *in, *out, *attempts)

	case "extract":
		fs := flag.NewFlagSet("extract", flag.ExitOnError)
		cf := registerCommon(fs)
		in := fs.String("in", linkedFile, "input linked-candidate CSV")
		out := fs.String("out", detailsFile, "output financial details CSV")
		_ = fs.Parse(args) //nolint:errcheck // ExitOnError
		return extractDetails(ctx, cf, *in, *out)

	case "enrich":
		fs := flag.NewFlagSet("enrich", flag.ExitOnError)
		cf := registerCommon(fs)
		in := fs.String("in", linkedFile, "input linked-candidate CSV")
		out := fs.String("out", enrichedFile, "output CSV with City and Pincode columns")
		batchSize := fs.Int("batch-size", 20, "addresses per completion request")
		batchDelay := fs.Duration("batch-delay", 4*time.Second, "pause between completion requests")
		_ = fs.Parse(args) //nolint:errcheck // ExitOnError
		return enrich(ctx, cf, *in, *out, *batchSize, *batchDelay)

	case "merge":
		fs := flag.NewFlagSet("merge", flag.ExitOnError)
		cf := registerCommon(fs)
		candPath := fs.String("candidates", linkedFile, "candidate CSV (left side)")
		finPath := fs.String("financials", detailsFile, "financial details CSV (right side)")
		out := fs.String("out", mergedFile, "merged output CSV")
		_ = fs.Parse(args) //nolint:errcheck // ExitOnError
		return merge(cf, *candPath, *finPath, *out)

	case "run":
		fs := flag.NewFlagSet("run", flag.ExitOnError)
		cf := registerCommon(fs)
		listURL := fs.String("url", "", "candidate list URL on the affidavit portal (required)")
		attempts := fs.Int("attempts", 3, "search attempts per candidate")
		batchSize := fs.Int("batch-size", 20, "addresses per completion request")
		batchDelay := fs.Duration("batch-delay", 4*time.Second, "pause between completion requests")
		_ = fs.Parse(args) //nolint:errcheck // ExitOnError
		if *listURL == "" {
			return errors.New("run: -url is required")
		}
		if err := scrape(ctx, cf, *listURL, candidatesFile); err != nil {
			return err
		}
		if err := link(ctx, cf, candidatesFile, linkedFile, *attempts); err != nil {
			return err
		}
		if err := extractDetails(ctx, cf, linkedFile, detailsFile); err != nil {
			return err
		}
		if err := enrich(ctx, cf, linkedFile, enrichedFile, *batchSize, *batchDelay); err != nil {
			return err
		}
		return merge(cf, linkedFile, detailsFile, mergedFile)

	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func scrape(ctx context.Context, cf *commonFlags, listURL, out string) error {
	logger := cf.logger()
	defer logCacheStats(logger)

	opts := []eci.Option{eci.WithLogger(logger)}
	if c := cf.cache(logger); c != nil {
		opts = append(opts, eci.WithHTTPCache(c))
	}
	if cookies := cf.cookies(ctx, logger, "eci"); len(cookies) > 0 {
		opts = append(opts, eci.WithCookies(cookies))
	}

	client, err := eci.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("create portal client: %w", err)
	}
	candidates, err := client.Candidates(ctx, listURL)
	if err != nil {
		return err
	}
	logger.Info("scraped candidates", "count", len(candidates))

	if err := dataset.WriteCandidates(out, candidates); err != nil {
		return err
	}
	logger.Info("saved", "path", out)
	return nil
}

func link(ctx context.Context, cf *commonFlags, in, out string, attempts int) error {
	logger := cf.logger()
	defer logCacheStats(logger)

	candidates, err := dataset.ReadCandidates(in)
	if err != nil {
		return err
	}

	client, err := mynetaClient(ctx, cf, logger)
	if err != nil {
		return err
	}
	matcher := match.New(client,
		match.WithLogger(logger),
		match.WithMaxAttempts(attempts),
	)

	var matched int
	for i := range candidates {
		c := &candidates[i]
		outcome := matcher.Link(ctx, c.Name, c.Constituency, c.Year)
		c.ProfileURL = outcome.URL
		if outcome.Matched {
			matched++
		}
		logger.Info("linked", "name", c.Name, "url", c.ProfileURL)
	}
	logger.Info("linking complete", "matched", matched, "total", len(candidates))

	if err := dataset.WriteCandidates(out, candidates); err != nil {
		return err
	}
	logger.Info("saved", "path", out)
	return nil
}

func extractDetails(ctx context.Context, cf *commonFlags, in, out string) error {
	logger := cf.logger()
	defer logCacheStats(logger)

	candidates, err := dataset.ReadCandidates(in)
	if err != nil {
		return err
	}

	client, err := mynetaClient(ctx, cf, logger)
	if err != nil {
		return err
	}

	var fins []record.Financials
	for _, c := range candidates {
		if c.ProfileURL == "" {
			continue
		}
		pt, err := client.FetchProfile(ctx, c.ProfileURL)
		if err != nil {
			logger.Warn("profile fetch failed", "name", c.Name, "error", err)
			continue
		}
		fins = append(fins, extract.Financials(c.Name, pt))
	}
	logger.Info("extracted details", "count", len(fins), "candidates", len(candidates))

	if err := dataset.WriteFinancials(out, fins); err != nil {
		return err
	}
	logger.Info("saved", "path", out)
	return nil
}

func enrich(ctx context.Context, cf *commonFlags, in, out string, batchSize int, batchDelay time.Duration) error {
	logger := cf.logger()

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return errors.New("enrich: GEMINI_API_KEY not set")
	}

	candidates, err := dataset.ReadCandidates(in)
	if err != nil {
		return err
	}

	provider, err := gemini.New(apiKey, gemini.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("create completion client: %w", err)
	}
	resolver := resolve.New(provider,
		resolve.WithLogger(logger),
		resolve.WithBatchSize(batchSize),
		resolve.WithBatchDelay(batchDelay),
	)

	addresses := make([]string, len(candidates))
	for i, c := range candidates {
		addresses[i] = c.Address
	}
	infos := resolver.Resolve(ctx, addresses)
	logger.Info("resolved addresses", "count", len(infos))

	if err := dataset.WriteEnriched(out, candidates, infos); err != nil {
		return err
	}
	logger.Info("saved", "path", out)
	return nil
}

func merge(cf *commonFlags, candPath, finPath, out string) error {
	logger := cf.logger()

	candidates, err := dataset.ReadCandidates(candPath)
	if err != nil {
		return err
	}
	fins, err := dataset.ReadFinancials(finPath)
	if err != nil {
		return err
	}

	merged := dataset.Join(candidates, fins)
	if err := dataset.WriteMerged(out, merged); err != nil {
		return err
	}
	logger.Info("saved", "path", out, "rows", len(merged))
	return nil
}

func mynetaClient(ctx context.Context, cf *commonFlags, logger *slog.Logger) (*myneta.Client, error) {
	opts := []myneta.Option{myneta.WithLogger(logger)}
	if c := cf.cache(logger); c != nil {
		opts = append(opts, myneta.WithHTTPCache(c))
	}

	client, err := myneta.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create registry client: %w", err)
	}
	return client, nil
}
