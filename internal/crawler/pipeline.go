package crawler

import (
	"net/url"

	"github.com/Kiarash1380mohebbi/web-scrapy/pkg/errors"
)

// ProcessPage dispatches a fetched page to its extractor and normalizes
// the result. It never fails: every problem is reported in the result.
func ProcessPage(reg *Registry, page Page) PageResult {
	result := PageResult{Site: page.Target.Site, URL: page.URL, Outcome: OutcomeEmpty}

	pageURL, err := url.Parse(page.URL)
	if err != nil || pageURL.Host == "" {
		result.Outcome = OutcomeFailed
		result.Err = errors.NewNetwork(string(page.Target.Site), "page has no usable URL: "+page.URL, err)
		return result
	}

	ex, domain, ok := reg.Lookup(pageURL)
	if !ok {
		result.Err = errors.NewUnmatched(domain)
		return result
	}
	result.Site = ex.Site()

	extraction, err := ex.Extract(page)
	result.Issues = extraction.Issues
	if err != nil {
		result.Err = err
		if errors.IsType(err, errors.ErrorTypePayload) {
			result.Outcome = OutcomeFailed
		}
		return result
	}

	for _, raw := range extraction.Items {
		rec, ok, issue := NormalizeRecord(ex.Site(), pageURL, raw)
		if issue != nil {
			result.Issues = append(result.Issues, issue)
		}
		if ok {
			result.Records = append(result.Records, rec)
		}
	}

	if len(result.Records) > 0 {
		result.Outcome = OutcomeExtracted
	}
	return result
}
