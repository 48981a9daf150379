package helpers

import (
	mathrand "math/rand"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"
)

// Browser header pools
var (
	userAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	}

	referers = []string{
		"https://www.google.com/",
		"https://www.bing.com/",
		"https://duckduckgo.com/",
	}

	rndMu sync.Mutex
	rnd   = mathrand.New(mathrand.NewSource(time.Now().UnixNano()))
)

func pick(pool []string) string {
	rndMu.Lock()
	defer rndMu.Unlock()
	return pool[rnd.Intn(len(pool))]
}

// RandomUserAgent returns one of the browser user agents
func RandomUserAgent() string {
	return pick(userAgents)
}

// RandomHeaders returns browser-like request headers with a randomized
// user agent and referer. Persian content is preferred.
func RandomHeaders() http.Header {
	h := http.Header{}
	h.Set("User-Agent", RandomUserAgent())
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	h.Set("Accept-Language", "fa-IR,fa;q=0.9,en-US;q=0.8,en;q=0.7")
	h.Set("Cache-Control", "no-cache")
	h.Set("Referer", pick(referers))
	h.Set("Pragma", "no-cache")
	h.Set("Upgrade-Insecure-Requests", "1")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "cross-site")
	h.Set("Sec-Fetch-User", "?1")
	return h
}

// IsRateLimited reports whether a status code means the site is throttling us
func IsRateLimited(status int) bool {
	return slices.Contains([]int{http.StatusTooManyRequests, 430}, status)
}

// RetryAfter parses a Retry-After header given in seconds or as an HTTP
// date, returning fallback when it is absent, invalid or already past
func RetryAfter(h http.Header, fallback time.Duration) time.Duration {
	value := h.Get("Retry-After")
	if value == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return fallback
}
