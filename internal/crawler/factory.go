package crawler

import (
	"github.com/Kiarash1380mohebbi/web-scrapy/config"
)

// SiteConfig is one entry of the static site table: where to search and
// how to read the result page
type SiteConfig struct {
	ID         SiteID
	SearchURLs []string
	Extractor  Extractor
}

// Field chains shared by the listing sites, most specific selector first
var (
	listingPriceHandlers = TextHandlers(
		".price", ".product-price", ".cost", `[class*="price"]`, ".amount", ".value",
	)
)

// DefaultSites returns the site table in priority order
func DefaultSites(cfg *config.Config) []SiteConfig {
	maxRecords := cfg.MaxResultsPerPage

	return []SiteConfig{
		{
			// Torob price comparison listing
			ID:         SiteTorob,
			SearchURLs: []string{cfg.TorobSearchURL},
			Extractor: &SelectorExtractor{
				SiteID: SiteTorob,
				Containers: []string{
					"div.ProductListItem_container__jR3zC",
					".product-card",
					".product-item",
					".search-result-item",
					`[class*="product"]`,
					`div[class*="card"]`,
					`div[class*="item"]`,
					".result-item",
				},
				Name: Chain(
					TextHandlers("h2.ProductListItem_title__DPrPN a", `a[data-test-id="product-title"]`,
						"h3 a", "h2 a", "h1 a", ".product-title", ".title", ".name"),
					[]ElementHandler{AttrOf("a[title]", "title")},
					TextHandlers(".product-name", `[class*="title"]`, `[class*="name"]`),
				),
				Price: Chain(
					TextHandlers("div.ProductListItem_price__o93Vf span", `span[data-test-id="product-price"]`),
					listingPriceHandlers,
				),
				Link: HrefHandlers(
					"h2.ProductListItem_title__DPrPN a", `a[data-test-id="product-title"]`,
					"h3 a", "h2 a", "h1 a", ".product-title a", ".title a", "a[href]",
				),
				MaxRecords: maxRecords,
			},
		},
		{
			// Emalls listing
			ID:         SiteEmalls,
			SearchURLs: []string{cfg.EmallsSearchURL},
			Extractor: &SelectorExtractor{
				SiteID: SiteEmalls,
				Containers: []string{
					".product-item",
					".search-item",
					`div[class*="product"]`,
					".item-box",
					".product-box",
					"article.product",
					".product",
					".result-item",
					`div[class*="card"]`,
					`div[class*="item"]`,
				},
				Name: Chain(
					TextHandlers("h3.product-title a", "h2.title a", "a.product-name",
						"h3", "h2", "h1", ".product-name", ".title", ".name"),
					[]ElementHandler{AttrOf("a[title]", "title")},
					TextHandlers(".product-title", `[class*="title"]`, `[class*="name"]`),
				),
				Price: Chain(
					TextHandlers("span.price", "div.price span", "span.amount"),
					listingPriceHandlers,
				),
				Link: HrefHandlers(
					"h3.product-title a", "h2.title a", "a.product-name", "a.product-link",
					"a", "h3 a", "h2 a", ".product-title a", ".title a",
				),
				MaxRecords: maxRecords,
			},
		},
		{
			// Digikala renders client side; the product list ships in the Next.js state blob
			ID:         SiteDigikala,
			SearchURLs: []string{cfg.DigikalaSearchURL},
			Extractor: &EmbeddedExtractor{
				SiteID:  SiteDigikala,
				Scripts: []string{"script#__NEXT_DATA__", `script[type="application/json"]`},
				Lists: []KeyPath{
					{"props", "pageProps", "data", "products"},
					{"props", "pageProps", "initialState", "search", "products"},
					{"props", "pageProps", "dehydratedState", "queries", "0", "state", "data", "data", "products"},
					{"props", "pageProps", "products"},
				},
				Name: []KeyPath{{"title_fa"}, {"title_en"}, {"name"}},
				Price: []KeyPath{
					{"default_variant", "price", "selling_price"},
					{"price", "selling_price"},
					{"price"},
				},
				URL:        []KeyPath{{"url", "uri"}, {"url"}},
				PriceUnit:  "ریال",
				MaxRecords: maxRecords,
			},
		},
	}
}
