package internal

import (
	"github.com/Kiarash1380mohebbi/web-scrapy/services/cache"
	"github.com/Kiarash1380mohebbi/web-scrapy/services/fetcher"
	"github.com/Kiarash1380mohebbi/web-scrapy/services/publisher"
)

// Dependencies holds all service dependencies of a search run
type Dependencies struct {
	Cache     cache.CacheService
	Fetcher   *fetcher.CollyFetcher
	Publisher publisher.Publisher // nil when publishing is disabled
}

// Cleanup releases every service that holds a connection
func (d *Dependencies) Cleanup() {
	if d.Publisher != nil {
		d.Publisher.Close()
	}
}
