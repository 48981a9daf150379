package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Kiarash1380mohebbi/web-scrapy/config"
	"github.com/Kiarash1380mohebbi/web-scrapy/helpers"
	"github.com/Kiarash1380mohebbi/web-scrapy/internal/crawler"
	"github.com/Kiarash1380mohebbi/web-scrapy/logger"
	"github.com/Kiarash1380mohebbi/web-scrapy/pkg/errors"
	"github.com/Kiarash1380mohebbi/web-scrapy/services/cache"

	"github.com/gocolly/colly"
	"golang.org/x/time/rate"
)

const targetIndexKey = "target_index"

// Options is the fixed politeness policy applied to every run
type Options struct {
	RequestTimeout time.Duration
	Parallelism    int
	Delay          time.Duration
	RandomDelay    time.Duration
	ObeyRobotsTxt  bool
	UserAgent      string
	Cooldown       time.Duration
	// RequestsPerSecond caps how fast requests are started across all
	// hosts; 0 means no global cap
	RequestsPerSecond float64
}

// OptionsFromConfig builds fetch options from the application configuration
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		RequestTimeout: cfg.RequestTimeout,
		Parallelism:    cfg.ConcurrentPerDomain,
		Delay:          cfg.DownloadDelay,
		RandomDelay:    cfg.RandomDelay,
		ObeyRobotsTxt:  cfg.ObeyRobotsTxt,
		UserAgent:      cfg.UserAgent,
		Cooldown:       cfg.Cooldown,

		RequestsPerSecond: cfg.RequestsPerSecond,
	}
}

// CollyFetcher fetches search pages with a colly collector.
// A fresh collector is built for every call so runs share no state
// besides the cooldown cache.
type CollyFetcher struct {
	opts    Options
	cache   cache.CacheService
	limiter *rate.Limiter
	log     *logger.Logger
}

// New creates a fetcher. cacheSvc may be nil to disable cooldowns.
func New(opts Options, cacheSvc cache.CacheService) *CollyFetcher {
	if opts.Parallelism <= 0 {
		opts.Parallelism = 1
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	return &CollyFetcher{
		opts:    opts,
		cache:   cacheSvc,
		limiter: rate.NewLimiter(limit, 1),
		log:     logger.ForFetcher(),
	}
}

// Fetch requests every target and calls onPage for each successful
// response, possibly from several goroutines at once. The returned slice
// is indexed like targets; a nil entry means the page was delivered.
//
// When ctx is done no new request is started and Fetch returns without
// waiting for requests already in flight; their pages are dropped.
func (f *CollyFetcher) Fetch(ctx context.Context, targets []crawler.SiteTarget, onPage func(crawler.Page)) []error {
	run := &fetchRun{
		targets:   targets,
		errs:      make([]error, len(targets)),
		delivered: make([]bool, len(targets)),
	}

	urls := make([]string, len(targets))
	for i, t := range targets {
		urls[i] = t.URL
	}

	c, err := f.newCollector(helpers.UniqueHosts(urls))
	if err != nil {
		for i := range targets {
			run.fail(i, errors.NewConfiguration("collector setup failed", err))
		}
		return run.result(ctx)
	}

	c.OnRequest(func(r *colly.Request) {
		select {
		case <-ctx.Done():
			r.Abort()
			return
		default:
		}
		f.log.Debug().Str("url", r.URL.String()).Msg("Requesting page")
	})

	c.OnResponse(func(r *colly.Response) {
		idx, ok := targetIndex(r.Request)
		if !ok || ctx.Err() != nil {
			return
		}
		f.log.Debug().
			Str("url", r.Request.URL.String()).
			Int("status", r.StatusCode).
			Int("bytes", len(r.Body)).
			Msg("Page fetched")

		onPage(crawler.Page{
			Target: targets[idx],
			URL:    r.Request.URL.String(),
			Body:   r.Body,
		})
		run.deliver(idx)
	})

	c.OnError(func(r *colly.Response, err error) {
		idx, ok := targetIndex(r.Request)
		if !ok {
			return
		}
		target := targets[idx]
		provider := string(target.Site)

		if helpers.IsRateLimited(r.StatusCode) {
			var hdr http.Header
			if r.Headers != nil {
				hdr = *r.Headers
			}
			cooldown := helpers.RetryAfter(hdr, f.opts.Cooldown)
			f.startCooldown(r.Request.URL.Host, cooldown)
			run.fail(idx, errors.NewRateLimit(provider, cooldown))
			return
		}

		run.fail(idx, errors.NewNetwork(provider, fmt.Sprintf("GET %s (status %d)", target.URL, r.StatusCode), err))
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i, target := range targets {
			// Wait fails once ctx is done or the deadline is too close to make it
			if err := f.limiter.Wait(ctx); err != nil {
				for j := i; j < len(targets); j++ {
					run.fail(j, errors.NewTimeout("request not started before deadline", err))
				}
				break
			}
			host := helpers.HostOf(target.URL)
			if f.coolingDown(host) {
				run.fail(i, errors.NewRateLimit(string(target.Site), f.opts.Cooldown))
				f.log.Warn().Str("host", host).Msg("Skipping host in cooldown")
				continue
			}

			reqCtx := colly.NewContext()
			reqCtx.Put(targetIndexKey, strconv.Itoa(i))
			if err := c.Request(http.MethodGet, target.URL, nil, reqCtx, helpers.RandomHeaders()); err != nil {
				if err == colly.ErrRobotsTxtBlocked {
					run.fail(i, errors.NewRobots(string(target.Site), target.URL, err))
				} else {
					run.fail(i, errors.NewNetwork(string(target.Site), "request not started", err))
				}
			}
		}
		c.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		f.log.Warn().Err(ctx.Err()).Msg("Fetch interrupted, dropping in-flight requests")
	}

	return run.result(ctx)
}

func (f *CollyFetcher) newCollector(hosts []string) (*colly.Collector, error) {
	ua := f.opts.UserAgent
	if ua == "" {
		ua = helpers.RandomUserAgent()
	}

	c := colly.NewCollector(
		colly.UserAgent(ua),
		colly.Async(true),
	)
	c.IgnoreRobotsTxt = !f.opts.ObeyRobotsTxt
	c.DetectCharset = true
	c.AllowURLRevisit = true
	c.SetRequestTimeout(f.opts.RequestTimeout)
	c.DisableCookies()

	// one rule per host so the parallelism cap applies to each domain separately
	for _, host := range hosts {
		err := c.Limit(&colly.LimitRule{
			DomainGlob:  host,
			Parallelism: f.opts.Parallelism,
			Delay:       f.opts.Delay,
			RandomDelay: f.opts.RandomDelay,
		})
		if err != nil {
			return nil, err
		}
	}

	return c, nil
}

func (f *CollyFetcher) coolingDown(host string) bool {
	if f.cache == nil || host == "" {
		return false
	}
	_, err := f.cache.Get(cache.CooldownKey(host))
	return err == nil
}

func (f *CollyFetcher) startCooldown(host string, d time.Duration) {
	if f.cache == nil || d <= 0 {
		return
	}
	if err := f.cache.Set(cache.CooldownKey(host), []byte(strconv.Itoa(int(d.Seconds()))), d); err != nil {
		f.log.Warn().Err(errors.NewCache(host, "cooldown not stored", err)).Msg("Cache write failed")
		return
	}
	f.log.Warn().Str("host", host).Dur("cooldown", d).Msg("Rate limited, host cooling down")
}

func targetIndex(r *colly.Request) (int, bool) {
	if r == nil || r.Ctx == nil {
		return 0, false
	}
	idx, err := strconv.Atoi(r.Ctx.Get(targetIndexKey))
	if err != nil {
		return 0, false
	}
	return idx, true
}

// fetchRun tracks per-target outcomes across colly callbacks
type fetchRun struct {
	mu        sync.Mutex
	targets   []crawler.SiteTarget
	errs      []error
	delivered []bool
}

func (r *fetchRun) fail(i int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.errs[i] == nil && !r.delivered[i] {
		r.errs[i] = err
	}
}

func (r *fetchRun) deliver(i int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delivered[i] = true
	r.errs[i] = nil
}

// result snapshots outcomes; targets that got neither a page nor an
// error were aborted or still in flight
func (r *fetchRun) result(ctx context.Context) []error {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]error, len(r.errs))
	for i, err := range r.errs {
		switch {
		case err != nil:
			out[i] = err
		case r.delivered[i]:
		case ctx.Err() != nil:
			out[i] = errors.NewTimeout(fmt.Sprintf("%s not fetched before deadline", r.targets[i].URL), ctx.Err())
		default:
			out[i] = errors.NewNetwork(string(r.targets[i].Site), "no response for "+r.targets[i].URL, nil)
		}
	}
	return out
}
