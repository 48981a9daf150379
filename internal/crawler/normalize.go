package crawler

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeRecord turns a raw extraction into a ProductRecord.
//
// ok is false when the raw name is empty; such candidates are never
// emitted. A non-nil issue with ok true means the record was kept but its
// price could not be parsed.
func NormalizeRecord(site SiteID, pageURL *url.URL, raw RawExtraction) (rec ProductRecord, ok bool, issue error) {
	name := collapseSpace(raw.Name)
	if name == "" {
		return ProductRecord{}, false, nil
	}

	price, err := NormalizePrice(raw.Price)
	if err != nil {
		issue = fmt.Errorf("%s %q: %w", site, name, err)
	}

	return ProductRecord{
		ProductName: name,
		Price:       price,
		StoreName:   site,
		ProductURL:  ResolveURL(pageURL, raw.Href),
	}, true, issue
}

// ResolveURL resolves href against the page URL. Missing, malformed or
// non-http links fall back to the page URL itself.
func ResolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return base.String()
	}

	ref, err := url.Parse(href)
	if err != nil {
		return base.String()
	}

	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" || resolved.Host == "" {
		return base.String()
	}
	return resolved.String()
}
