package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork represents fetch failures (DNS, connect, non-2xx)
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeRateLimit represents 429/430 responses and active cooldowns
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeRobots represents requests refused by robots.txt
	ErrorTypeRobots ErrorType = "robots"
	// ErrorTypeUnmatched represents a page whose domain has no extractor
	ErrorTypeUnmatched ErrorType = "unmatched"
	// ErrorTypeStructure represents a page missing the expected containers or payload
	ErrorTypeStructure ErrorType = "structure"
	// ErrorTypePayload represents an embedded payload that failed to decode
	ErrorTypePayload ErrorType = "payload"
	// ErrorTypeItem represents a single candidate that could not be processed
	ErrorTypeItem ErrorType = "item"
	// ErrorTypePrice represents a price text with no recoverable number
	ErrorTypePrice ErrorType = "price"
	// ErrorTypeTimeout represents an expired end-to-end search deadline
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeValidation represents invalid input such as an empty query
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeStorage represents artifact read/write errors
	ErrorTypeStorage ErrorType = "storage"
)

// CrawlerError represents a crawler-specific error
type CrawlerError struct {
	Type     ErrorType
	Provider string
	Message  string
	Err      error
	Time     time.Time
}

// Error implements the error interface
func (e *CrawlerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Provider, e.Message)
}

// Unwrap returns the underlying error
func (e *CrawlerError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether the error ends the whole search run.
// Page and item level errors only reduce the number of records.
func (e *CrawlerError) IsFatal() bool {
	switch e.Type {
	case ErrorTypeTimeout, ErrorTypeValidation, ErrorTypeConfiguration, ErrorTypeStorage:
		return true
	default:
		return false
	}
}

// New creates a new CrawlerError
func New(errType ErrorType, provider, message string, err error) *CrawlerError {
	return &CrawlerError{
		Type:     errType,
		Provider: provider,
		Message:  message,
		Err:      err,
		Time:     time.Now(),
	}
}

// IsType reports whether any error in err's chain is a CrawlerError of the given type.
func IsType(err error, errType ErrorType) bool {
	var ce *CrawlerError
	if stderrors.As(err, &ce) {
		return ce.Type == errType
	}
	return false
}

// NewNetwork creates a new network error
func NewNetwork(provider, message string, err error) *CrawlerError {
	return New(ErrorTypeNetwork, provider, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(provider string, duration time.Duration) *CrawlerError {
	message := fmt.Sprintf("rate limited for %v", duration)
	return New(ErrorTypeRateLimit, provider, message, nil)
}

// NewRobots creates a new robots.txt refusal error
func NewRobots(provider, url string, err error) *CrawlerError {
	return New(ErrorTypeRobots, provider, "disallowed by robots.txt: "+url, err)
}

// NewUnmatched creates an error for a page no extractor is registered for
func NewUnmatched(domain string) *CrawlerError {
	return New(ErrorTypeUnmatched, "", "no extractor for domain "+domain, nil)
}

// NewStructure creates a new missing-structure error
func NewStructure(provider, message string) *CrawlerError {
	return New(ErrorTypeStructure, provider, message, nil)
}

// NewPayload creates a new malformed-payload error
func NewPayload(provider, message string, err error) *CrawlerError {
	return New(ErrorTypePayload, provider, message, err)
}

// NewItem creates a new per-item error
func NewItem(provider, message string, err error) *CrawlerError {
	return New(ErrorTypeItem, provider, message, err)
}

// NewPrice creates a new unparseable-price error carrying the raw text
func NewPrice(provider, raw string, err error) *CrawlerError {
	return New(ErrorTypePrice, provider, fmt.Sprintf("could not parse price %q", raw), err)
}

// NewTimeout creates a new search timeout error
func NewTimeout(message string, err error) *CrawlerError {
	return New(ErrorTypeTimeout, "", message, err)
}

// NewValidation creates a new validation error
func NewValidation(provider, message string) *CrawlerError {
	return New(ErrorTypeValidation, provider, message, nil)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *CrawlerError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// NewCache creates a new cache error
func NewCache(provider, message string, err error) *CrawlerError {
	return New(ErrorTypeCache, provider, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(provider, message string, err error) *CrawlerError {
	return New(ErrorTypePublisher, provider, message, err)
}

// NewStorage creates a new artifact storage error
func NewStorage(message string, err error) *CrawlerError {
	return New(ErrorTypeStorage, "", message, err)
}
