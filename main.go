package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Kiarash1380mohebbi/web-scrapy/config"
	"github.com/Kiarash1380mohebbi/web-scrapy/internal"
	"github.com/Kiarash1380mohebbi/web-scrapy/internal/crawler"
	"github.com/Kiarash1380mohebbi/web-scrapy/logger"
	"github.com/Kiarash1380mohebbi/web-scrapy/services/artifact"
	"github.com/Kiarash1380mohebbi/web-scrapy/services/cache"
	"github.com/Kiarash1380mohebbi/web-scrapy/services/export"
	"github.com/Kiarash1380mohebbi/web-scrapy/services/fetcher"
	"github.com/Kiarash1380mohebbi/web-scrapy/services/publisher"
	"github.com/Kiarash1380mohebbi/web-scrapy/services/worker"

	"github.com/joho/godotenv"
)

// Exit codes
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// options holds the parsed command line
type options struct {
	query    string
	timeout  time.Duration
	out      string
	csvPath  string
	table    bool
	store    string
	minPrice int64
	maxPrice int64
	sortKey  export.SortKey
	width    int
}

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()

	os.Exit(run(os.Args[1:], os.Stdout))
}

// run executes one search and returns the process exit code
func run(args []string, stdout io.Writer) int {
	if logger.Default == nil {
		logger.Init()
	}
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("Invalid configuration")
		return exitFailure
	}

	opts, err := parseFlags(args, cfg)
	if err != nil {
		if err == flag.ErrHelp {
			return exitOK
		}
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("query", opts.query).
		Dur("timeout", opts.timeout).
		Msg("Starting product search")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	// Initialize services
	deps := initializeServices(ctx, cfg)
	defer deps.Cleanup()

	store := artifact.NewFileStore(opts.out)
	w, err := worker.NewWorker(crawler.DefaultSites(cfg), deps.Fetcher, store, deps.Publisher, opts.timeout)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create worker")
		return exitFailure
	}

	result, err := w.Search(ctx, opts.query)
	if err != nil {
		log.Error().Err(err).Msg("Search failed")
		return exitFailure
	}

	// Display options never touch the artifact
	shown := export.Filter{
		Store:    crawler.SiteID(opts.store),
		MinPrice: opts.minPrice,
		MaxPrice: opts.maxPrice,
	}.Apply(result.Records)
	export.Sort(shown, opts.sortKey)

	if opts.csvPath != "" {
		if err := export.SaveCSV(opts.csvPath, shown); err != nil {
			log.Error().Err(err).Msg("CSV export failed")
			return exitFailure
		}
		log.Info().Str("path", opts.csvPath).Int("rows", len(shown)).Msg("CSV exported")
	}

	if opts.table {
		if err := export.RenderTable(stdout, shown, opts.width); err != nil {
			log.Error().Err(err).Msg("Failed to render table")
			return exitFailure
		}
	}

	if len(result.Records) == 0 {
		fmt.Fprintln(stdout, "No results found. Try a different search term.")
	} else {
		fmt.Fprintf(stdout, "Found %d products (%d shown), results written to %s\n",
			len(result.Records), len(shown), store.Path())
	}
	return exitOK
}

func parseFlags(args []string, cfg *config.Config) (*options, error) {
	fs := flag.NewFlagSet("product-search", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := &options{}
	var sortKey string
	fs.StringVar(&opts.query, "q", "", "search query (or pass it as arguments)")
	fs.DurationVar(&opts.timeout, "timeout", cfg.SearchTimeout, "end-to-end search deadline")
	fs.StringVar(&opts.out, "out", cfg.ResultsPath, "path of the JSON results artifact")
	fs.StringVar(&opts.csvPath, "csv", "", "also export the shown results as CSV to this path")
	fs.BoolVar(&opts.table, "table", false, "print the results as a table")
	fs.StringVar(&opts.store, "store", "", "only show results from this store (torob, emalls, digikala)")
	fs.Int64Var(&opts.minPrice, "min-price", 0, "only show results at or above this price in Toman")
	fs.Int64Var(&opts.maxPrice, "max-price", 0, "only show results at or below this price in Toman")
	fs.StringVar(&sortKey, "sort", "", "sort shown results by price, -price or name")
	fs.IntVar(&opts.width, "width", 60, "maximum product name width in the table (0 for no limit)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if opts.query == "" {
		opts.query = strings.Join(fs.Args(), " ")
	}
	if strings.TrimSpace(opts.query) == "" {
		fs.Usage()
		return nil, fmt.Errorf("a search query is required")
	}
	if opts.timeout <= 0 {
		return nil, fmt.Errorf("-timeout must be positive")
	}
	if strings.TrimSpace(opts.out) == "" {
		return nil, fmt.Errorf("-out must not be empty")
	}
	if opts.minPrice < 0 || opts.maxPrice < 0 {
		return nil, fmt.Errorf("price bounds must not be negative")
	}
	if opts.maxPrice > 0 && opts.minPrice > opts.maxPrice {
		return nil, fmt.Errorf("-min-price is greater than -max-price")
	}

	key, err := export.ParseSortKey(sortKey)
	if err != nil {
		return nil, err
	}
	opts.sortKey = key

	return opts, nil
}

// initializeServices initializes all required services. Optional services
// that cannot be reached are disabled rather than failing the search.
func initializeServices(ctx context.Context, cfg *config.Config) *internal.Dependencies {
	log := logger.Default
	deps := &internal.Dependencies{}

	// Initialize cache service
	deps.Cache = cache.New(cfg.MemcacheAddr)
	if cfg.MemcacheAddr != "" {
		if mc, ok := deps.Cache.(*cache.MemcacheService); ok {
			if err := mc.Ping(); err != nil {
				log.Warn().Err(err).Str("addr", cfg.MemcacheAddr).Msg("Memcache unreachable, using in-memory cooldowns")
				deps.Cache = cache.NewMemoryCache()
			} else {
				logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
			}
		}
	}

	deps.Fetcher = fetcher.New(fetcher.OptionsFromConfig(cfg), deps.Cache)

	// Initialize publisher
	if cfg.RedisAddr != "" {
		redisPublisher := publisher.NewRedisPublisher(
			ctx,
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			cfg.RedisStreamCount,
			cfg.RedisStreamMaxLength,
		)
		if err := redisPublisher.Ping(); err != nil {
			log.Warn().Err(err).Msg("Redis unreachable, completion events disabled")
			redisPublisher.Close()
		} else {
			deps.Publisher = redisPublisher
			logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
				cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
		}
	}

	return deps
}
