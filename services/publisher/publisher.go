package publisher

import (
	"encoding/json"
	"time"
)

// EventSearchCompleted is the stream field carrying a finished run summary
const EventSearchCompleted = "search_completed"

// Publisher represents a service for publishing messages
type Publisher interface {
	// Publish publishes a message to a stream
	Publish(key string, message []byte) error

	// TrimStreams trims all streams to the configured maximum length
	TrimStreams() error

	// Close closes the publisher connection
	Close() error
}

// SearchCompleted summarizes a successful search run for downstream consumers
type SearchCompleted struct {
	RunID       string    `json:"run_id"`
	Query       string    `json:"query"`
	RecordCount int       `json:"record_count"`
	Artifact    string    `json:"artifact"`
	FinishedAt  time.Time `json:"finished_at"`
}

// PublishSearchCompleted encodes and publishes a completion event
func PublishSearchCompleted(p Publisher, event SearchCompleted) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.Publish(EventSearchCompleted, data)
}
