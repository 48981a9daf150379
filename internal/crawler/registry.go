package crawler

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/Kiarash1380mohebbi/web-scrapy/pkg/errors"

	"golang.org/x/net/publicsuffix"
)

// Registry maps registrable domains to the extractor serving them.
// It is built once from the site table and only read afterwards.
type Registry struct {
	byDomain map[string]Extractor
}

// NewRegistry builds the dispatch table from the site table.
// Two sites claiming the same domain is a configuration error.
func NewRegistry(sites []SiteConfig) (*Registry, error) {
	r := &Registry{byDomain: make(map[string]Extractor)}

	for _, site := range sites {
		if site.Extractor == nil {
			return nil, errors.NewConfiguration(fmt.Sprintf("site %s has no extractor", site.ID), nil)
		}
		for _, tmpl := range site.SearchURLs {
			u, err := url.Parse(FillTemplate(tmpl, "q"))
			if err != nil {
				return nil, errors.NewConfiguration(fmt.Sprintf("site %s: bad search URL", site.ID), err)
			}
			domain := RegistrableDomain(u.Host)
			if existing, ok := r.byDomain[domain]; ok && existing.Site() != site.ID {
				return nil, errors.NewConfiguration(
					fmt.Sprintf("domain %s claimed by both %s and %s", domain, existing.Site(), site.ID), nil)
			}
			r.byDomain[domain] = site.Extractor
		}
	}

	return r, nil
}

// Lookup returns the extractor for the domain pageURL belongs to
func (r *Registry) Lookup(pageURL *url.URL) (Extractor, string, bool) {
	domain := RegistrableDomain(pageURL.Host)
	ex, ok := r.byDomain[domain]
	return ex, domain, ok
}

// RegistrableDomain reduces a host to its eTLD+1 so www.digikala.com and
// digikala.com share an entry. IPs and single-label hosts are kept as-is,
// including any port.
func RegistrableDomain(host string) string {
	host = strings.ToLower(host)
	name := host
	if h, _, err := net.SplitHostPort(host); err == nil {
		name = h
	}
	if net.ParseIP(name) != nil {
		return host
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(name)
	if err != nil {
		return host
	}
	return domain
}
