package crawler

import (
	"net/url"
	"testing"

	"github.com/Kiarash1380mohebbi/web-scrapy/config"
	"github.com/Kiarash1380mohebbi/web-scrapy/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestRegistry_DefaultSites(t *testing.T) {
	reg, err := NewRegistry(DefaultSites(config.LoadConfig()))
	require.NoError(t, err)

	testCases := []struct {
		url  string
		site SiteID
	}{
		{"https://torob.com/search/?query=x", SiteTorob},
		{"https://www.torob.com/p/123", SiteTorob},
		{"https://emalls.ir/search?q=x", SiteEmalls},
		{"https://www.digikala.com/search/?q=x", SiteDigikala},
		{"https://digikala.com/product/dkp-1/", SiteDigikala},
	}

	for _, tc := range testCases {
		ex, _, ok := reg.Lookup(mustParse(t, tc.url))
		require.True(t, ok, tc.url)
		assert.Equal(t, tc.site, ex.Site(), tc.url)
	}

	_, domain, ok := reg.Lookup(mustParse(t, "https://www.example.com/search"))
	assert.False(t, ok)
	assert.Equal(t, "example.com", domain)
}

func TestRegistry_DuplicateDomain(t *testing.T) {
	sites := []SiteConfig{
		{ID: SiteTorob, SearchURLs: []string{"https://torob.com/s?q={query}"}, Extractor: &SelectorExtractor{SiteID: SiteTorob}},
		{ID: SiteEmalls, SearchURLs: []string{"https://www.torob.com/e?q={query}"}, Extractor: &SelectorExtractor{SiteID: SiteEmalls}},
	}

	_, err := NewRegistry(sites)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
}

func TestRegistry_MissingExtractor(t *testing.T) {
	_, err := NewRegistry([]SiteConfig{{ID: SiteTorob, SearchURLs: []string{"https://torob.com/s?q={query}"}}})
	assert.Error(t, err)
}

func TestRegistrableDomain(t *testing.T) {
	assert.Equal(t, "digikala.com", RegistrableDomain("www.digikala.com"))
	assert.Equal(t, "digikala.com", RegistrableDomain("WWW.Digikala.com:443"))
	assert.Equal(t, "emalls.ir", RegistrableDomain("emalls.ir"))
	assert.Equal(t, "shop.co.ir", RegistrableDomain("api.shop.co.ir"))
	assert.Equal(t, "127.0.0.1:8080", RegistrableDomain("127.0.0.1:8080"))
	assert.Equal(t, "localhost", RegistrableDomain("localhost"))
}
