package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/itisuniqueofficial/advanced-web-crawler/internal/config"
	"github.com/itisuniqueofficial/advanced-web-crawler/internal/crawler"
	"github.com/itisuniqueofficial/advanced-web-crawler/internal/logging"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "advanced-web-crawler",
		Short: "A breadth-first web crawler with structured content extraction.",
		Long: `advanced-web-crawler discovers and fetches linked pages level by level
from one or more seed URLs, extracts text, meta tags, images and links,
and writes the results to a CSV or JSON artifact.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	cmd.AddCommand(newCrawlCmd())
	return cmd
}

func newCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl URL...",
		Short: "Starts a breadth-first crawl from the given seed URLs",
		Long: `Crawls every page reachable from the seed URLs up to the configured
depth, deduplicating by canonical URL and dropping suspected spider traps.
Seed URLs given as arguments override crawler.seed_urls from the config.`,
		RunE: runCrawlCommand,
	}

	flags := cmd.Flags()
	flags.Int("depth", 2, "maximum crawl depth")
	flags.Bool("domain-restriction", false, "restrict crawling to the first seed's host")
	flags.Float64("rate-limit", 0, "seconds each worker waits before its fetch")
	flags.StringSlice("proxies", nil, "proxy addresses rotated across tasks")
	flags.Int("concurrency", 10, "fetch workers per level")
	flags.String("file-format", "csv", "output format: csv or json")
	flags.String("output", "crawled_data", "output path without extension")
	flags.Bool("render", false, "use the headless browser fetcher")

	return cmd
}

func runCrawlCommand(cmd *cobra.Command, args []string) error {
	v, err := config.NewViper(cfgFile)
	if err != nil {
		return err
	}
	bindCrawlFlags(v, cmd)
	if len(args) > 0 {
		v.Set("crawler.seed_urls", args)
	}

	cfg, err := config.Build(v)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.File)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine, cleanup, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup(ctx)

	if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run crawler: %w", err)
	}
	return nil
}

// bindCrawlFlags copies explicitly set flags into viper so they override the
// config file without clobbering it with flag defaults.
func bindCrawlFlags(v *viper.Viper, cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("depth") {
		depth, _ := flags.GetInt("depth")
		v.Set("crawler.max_depth", depth)
	}
	if flags.Changed("domain-restriction") {
		restricted, _ := flags.GetBool("domain-restriction")
		v.Set("crawler.domain_restricted", restricted)
	}
	if flags.Changed("rate-limit") {
		rateLimit, _ := flags.GetFloat64("rate-limit")
		v.Set("crawler.rate_limit_seconds", rateLimit)
	}
	if flags.Changed("proxies") {
		proxies, _ := flags.GetStringSlice("proxies")
		v.Set("crawler.proxies", proxies)
	}
	if flags.Changed("concurrency") {
		concurrency, _ := flags.GetInt("concurrency")
		v.Set("crawler.concurrency", concurrency)
	}
	if flags.Changed("file-format") {
		format, _ := flags.GetString("file-format")
		v.Set("output.format", format)
	}
	if flags.Changed("output") {
		output, _ := flags.GetString("output")
		v.Set("output.path", output)
	}
	if flags.Changed("render") {
		render, _ := flags.GetBool("render")
		v.Set("render.enabled", render)
	}
}

func buildEngine(cfg config.Config, logger *zap.Logger) (*crawler.Engine, func(context.Context), error) {
	cleanup := func(context.Context) {}

	var fetcher crawler.Fetcher
	if cfg.Render.Enabled {
		rendered, err := crawler.NewRenderedFetcher(crawler.RenderedFetcherConfig{
			UserAgent:     cfg.Crawler.UserAgent,
			RenderTimeout: cfg.RenderTimeout(),
			SettleWait:    cfg.SettleWait(),
			MaxParallel:   cfg.Render.MaxParallel,
			DomainQPS:     cfg.Render.DomainQPS,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("init rendered fetcher: %w", err)
		}
		fetcher = rendered
		cleanup = func(ctx context.Context) {
			if cerr := rendered.Close(ctx); cerr != nil {
				logger.Warn("failed to close rendered fetcher", zap.Error(cerr))
			}
		}
	} else {
		static, err := crawler.NewStaticFetcher(crawler.StaticFetcherConfig{
			UserAgent:      cfg.Crawler.UserAgent,
			RequestTimeout: cfg.RequestTimeout(),
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("init static fetcher: %w", err)
		}
		fetcher = static
	}

	sink, err := crawler.NewFileSink(cfg.Output.Format, cfg.Output.Path)
	if err != nil {
		return nil, nil, err
	}

	engine, err := crawler.NewEngine(
		crawler.Config{
			Seeds:            cfg.Crawler.SeedURLs,
			MaxDepth:         cfg.Crawler.MaxDepth,
			DomainRestricted: cfg.Crawler.DomainRestricted,
			RateLimit:        cfg.RateLimit(),
			Proxies:          cfg.Crawler.Proxies,
			Concurrency:      cfg.Crawler.Concurrency,
		},
		fetcher,
		crawler.NewGoqueryExtractor(),
		crawler.NewPathTrapDetector(crawler.TrapConfig{
			MaxSegmentRepeats: cfg.Trap.MaxSegmentRepeats,
			MaxPathSegments:   cfg.Trap.MaxPathSegments,
		}),
		sink,
		crawler.NewRetryPolicy(cfg.Retry.MaxAttempts, cfg.BackoffBase(), cfg.BackoffMax()),
		logger,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("init engine: %w", err)
	}
	return engine, cleanup, nil
}
