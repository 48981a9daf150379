package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Kiarash1380mohebbi/web-scrapy/pkg/errors"
)

// QueryPlaceholder marks where the encoded query goes in a search URL template.
const QueryPlaceholder = "{query}"

// Config represents the application configuration
type Config struct {
	// Output
	ResultsPath string

	// Search run limits
	SearchTimeout       time.Duration
	RequestTimeout      time.Duration
	MaxResultsPerPage   int
	ConcurrentPerDomain int
	DownloadDelay       time.Duration
	RandomDelay         time.Duration
	ObeyRobotsTxt       bool
	UserAgent           string
	RequestsPerSecond   float64

	// Search URL templates for each site
	TorobSearchURL    string
	EmallsSearchURL   string
	DigikalaSearchURL string

	// Cooldown cache; memcache when MemcacheAddr is set, memory otherwise
	MemcacheAddr string
	Cooldown     time.Duration

	// Redis completion stream; disabled when RedisAddr is empty
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	return &Config{
		ResultsPath:          getEnv("RESULTS_PATH", "results.json"),
		SearchTimeout:        getSeconds("SEARCH_TIMEOUT_SECONDS", 120),
		RequestTimeout:       getSeconds("REQUEST_TIMEOUT_SECONDS", 15),
		MaxResultsPerPage:    getInt("MAX_RESULTS_PER_PAGE", 20),
		ConcurrentPerDomain:  getInt("CONCURRENT_REQUESTS_PER_DOMAIN", 8),
		DownloadDelay:        getMillis("DOWNLOAD_DELAY_MS", 500),
		RandomDelay:          getMillis("RANDOM_DELAY_MS", 500),
		ObeyRobotsTxt:        getBool("OBEY_ROBOTS_TXT", true),
		UserAgent:            getEnv("USER_AGENT", ""),
		RequestsPerSecond:    getFloat("MAX_REQUESTS_PER_SECOND", 4),
		TorobSearchURL:       getEnv("TOROB_SEARCH_URL", "https://torob.com/search/?query="+QueryPlaceholder),
		EmallsSearchURL:      getEnv("EMALLS_SEARCH_URL", "https://emalls.ir/search?q="+QueryPlaceholder),
		DigikalaSearchURL:    getEnv("DIGIKALA_SEARCH_URL", "https://www.digikala.com/search/?q="+QueryPlaceholder),
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", ""),
		Cooldown:             getSeconds("COOLDOWN_SECONDS", 300),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisDB:              getInt("REDIS_DB", 0),
		RedisStream:          getEnv("REDIS_STREAM", "productsearch"),
		RedisStreamCount:     getInt("REDIS_STREAM_COUNT", 1),
		RedisStreamMaxLength: getInt("REDIS_STREAM_MAX_LENGTH", 1000),
		Environment:          getEnv("SEARCH_ENVIRONMENT", "development"),
	}
}

// Validate checks the configuration for values the search cannot run with
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ResultsPath) == "" {
		return errors.NewConfiguration("RESULTS_PATH must not be empty", nil)
	}
	if c.SearchTimeout <= 0 {
		return errors.NewConfiguration("SEARCH_TIMEOUT_SECONDS must be positive", nil)
	}
	if c.RequestTimeout <= 0 {
		return errors.NewConfiguration("REQUEST_TIMEOUT_SECONDS must be positive", nil)
	}
	if c.MaxResultsPerPage <= 0 {
		return errors.NewConfiguration("MAX_RESULTS_PER_PAGE must be positive", nil)
	}
	if c.ConcurrentPerDomain <= 0 {
		return errors.NewConfiguration("CONCURRENT_REQUESTS_PER_DOMAIN must be positive", nil)
	}
	if c.RequestsPerSecond < 0 {
		return errors.NewConfiguration("MAX_REQUESTS_PER_SECOND must not be negative", nil)
	}
	if c.RedisAddr != "" && c.RedisStreamCount <= 0 {
		return errors.NewConfiguration("REDIS_STREAM_COUNT must be positive", nil)
	}

	templates := map[string]string{
		"TOROB_SEARCH_URL":    c.TorobSearchURL,
		"EMALLS_SEARCH_URL":   c.EmallsSearchURL,
		"DIGIKALA_SEARCH_URL": c.DigikalaSearchURL,
	}
	for key, tmpl := range templates {
		if err := validateTemplate(tmpl); err != nil {
			return errors.NewConfiguration(key+" is invalid", err)
		}
	}

	return nil
}

func validateTemplate(tmpl string) error {
	if !strings.Contains(tmpl, QueryPlaceholder) {
		return errors.NewConfiguration("missing "+QueryPlaceholder+" placeholder", nil)
	}
	u, err := url.Parse(strings.ReplaceAll(tmpl, QueryPlaceholder, "q"))
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Host == "" {
		return errors.NewConfiguration("template must be an absolute URL", nil)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return value
}

func getFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getSeconds(key string, defaultValue int) time.Duration {
	return time.Duration(getInt(key, defaultValue)) * time.Second
}

func getMillis(key string, defaultValue int) time.Duration {
	return time.Duration(getInt(key, defaultValue)) * time.Millisecond
}

func getBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return value
}
