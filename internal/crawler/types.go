package crawler

import "github.com/PuerkitoBio/goquery"

// SiteID identifies one of the supported stores
type SiteID string

const (
	SiteTorob    SiteID = "Torob"
	SiteEmalls   SiteID = "Emalls"
	SiteDigikala SiteID = "Digikala"
)

// ProductRecord represents one normalized product listing
type ProductRecord struct {
	ProductName string `json:"product_name"`
	// Price is in Toman; nil when no number could be recovered
	Price      *int64 `json:"price"`
	StoreName  SiteID `json:"store_name"`
	ProductURL string `json:"product_url"`
}

// SiteTarget is one search request produced by the planner
type SiteTarget struct {
	Site  SiteID
	URL   string
	Order int
}

// RawExtraction is the unnormalized output of an extractor for one candidate
type RawExtraction struct {
	Name      string
	Price     string
	Href      string
	Container string
}

// Page is a fetched response body together with the URL it was finally served from
type Page struct {
	Target SiteTarget
	URL    string
	Body   []byte
}

// Extraction is what an extractor returns for one page.
// Issues collects per-item problems that did not stop the page.
type Extraction struct {
	Items  []RawExtraction
	Issues []error
}

// Extractor interface defines the contract for all per-site extraction strategies
type Extractor interface {
	// Site returns the store identifier stamped on every record
	Site() SiteID

	// Extract parses a fetched page into raw candidates.
	// A returned error means the page yielded nothing.
	Extract(page Page) (Extraction, error)
}

// ElementHandler extracts one string from a product container
type ElementHandler func(*goquery.Selection) string

// Outcome classifies the result of processing one page
type Outcome int

const (
	OutcomeExtracted Outcome = iota
	OutcomeEmpty
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeExtracted:
		return "extracted"
	case OutcomeEmpty:
		return "empty"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// PageResult is the explicit per-page result handed to the aggregator
type PageResult struct {
	Site    SiteID
	URL     string
	Outcome Outcome
	Records []ProductRecord
	// Err explains an Empty or Failed outcome
	Err error
	// Issues are item-level problems; the page still counts as extracted
	Issues []error
}
