package crawler

import (
	"net/url"
	"strings"

	"github.com/Kiarash1380mohebbi/web-scrapy/config"
)

// Plan fills every search URL template of every site with the query.
// Targets come out in site table order, then template order, and Order
// is the global index used later to order the aggregated output.
func Plan(query string, sites []SiteConfig) []SiteTarget {
	var targets []SiteTarget
	for _, site := range sites {
		for _, tmpl := range site.SearchURLs {
			targets = append(targets, SiteTarget{
				Site:  site.ID,
				URL:   FillTemplate(tmpl, query),
				Order: len(targets),
			})
		}
	}
	return targets
}

// FillTemplate substitutes the query placeholder, escaping it for the
// part of the URL it appears in: query string placeholders get
// form encoding (space as '+'), path placeholders get path escaping.
func FillTemplate(tmpl, query string) string {
	idx := strings.Index(tmpl, config.QueryPlaceholder)
	if idx < 0 {
		return tmpl
	}

	escape := url.PathEscape
	if q := strings.IndexByte(tmpl, '?'); q >= 0 && q < idx {
		escape = url.QueryEscape
	}
	return strings.ReplaceAll(tmpl, config.QueryPlaceholder, escape(query))
}
