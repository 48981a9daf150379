package crawler

import (
	"bytes"
	"encoding/json"
	"sort"
	"sync"
)

// Aggregator collects per-page records from concurrent callbacks and
// hands them back in planner order
type Aggregator struct {
	mu      sync.Mutex
	byOrder map[int][]ProductRecord
	total   int
}

// NewAggregator creates an empty aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{byOrder: make(map[int][]ProductRecord)}
}

// Add stores the records extracted for the target with the given planner order.
// Repeated calls for the same order append.
func (a *Aggregator) Add(order int, records []ProductRecord) {
	if len(records) == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.byOrder[order] = append(a.byOrder[order], records...)
	a.total += len(records)
}

// Len returns the number of records collected so far
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.total
}

// Records returns all records concatenated in planner order.
// Nothing is filtered or deduplicated.
func (a *Aggregator) Records() []ProductRecord {
	a.mu.Lock()
	defer a.mu.Unlock()

	orders := make([]int, 0, len(a.byOrder))
	for o := range a.byOrder {
		orders = append(orders, o)
	}
	sort.Ints(orders)

	out := make([]ProductRecord, 0, a.total)
	for _, o := range orders {
		out = append(out, a.byOrder[o]...)
	}
	return out
}

// Marshal serializes records as an indented UTF-8 JSON array.
// An empty or nil slice becomes [].
func Marshal(records []ProductRecord) ([]byte, error) {
	if records == nil {
		records = []ProductRecord{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
