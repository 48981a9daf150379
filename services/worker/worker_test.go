package worker

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Kiarash1380mohebbi/web-scrapy/config"
	"github.com/Kiarash1380mohebbi/web-scrapy/internal/crawler"
	"github.com/Kiarash1380mohebbi/web-scrapy/logger"
	"github.com/Kiarash1380mohebbi/web-scrapy/pkg/errors"
	"github.com/Kiarash1380mohebbi/web-scrapy/services/artifact"
	"github.com/Kiarash1380mohebbi/web-scrapy/services/publisher"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	torobHTML = `<html><body>
		<div class="ProductListItem_container__jR3zC">
			<h2 class="ProductListItem_title__DPrPN"><a href="/p/1/iphone-15/">iPhone 15</a></h2>
			<div class="ProductListItem_price__o93Vf"><span>۵۵٬۰۰۰٬۰۰۰ تومان</span></div>
		</div>
		<div class="ProductListItem_container__jR3zC">
			<h2 class="ProductListItem_title__DPrPN"><a href="/p/2/iphone-15-pro/">iPhone 15 Pro</a></h2>
			<div class="ProductListItem_price__o93Vf"><span>ناموجود</span></div>
		</div>
	</body></html>`

	emallsHTML = `<html><body>
		<div class="product-item">
			<h3 class="product-title"><a href="https://emalls.ir/Item/9/">iPhone 15</a></h3>
			<span class="price">54,900,000 تومان</span>
		</div>
	</body></html>`

	digikalaHTML = `<html><head><script id="__NEXT_DATA__" type="application/json">
		{"props":{"pageProps":{"data":{"products":[
			{"title_fa":"گوشی iPhone 15","default_variant":{"price":{"selling_price":560000000}},"url":{"uri":"/product/dkp-15/"}}
		]}}}}
	</script></head><body></body></html>`
)

func TestMain(m *testing.M) {
	logger.Default = logger.Nop()
	os.Exit(m.Run())
}

// mockResponse describes how MockFetcher answers one site
type mockResponse struct {
	body     string
	finalURL string
	err      error
}

// MockFetcher implements PageFetcher without touching the network.
// Pages are delivered in reverse target order.
type MockFetcher struct {
	responses map[crawler.SiteID]mockResponse
	block     bool
	calls     int
}

var _ PageFetcher = (*MockFetcher)(nil)

func (m *MockFetcher) Fetch(ctx context.Context, targets []crawler.SiteTarget, onPage func(crawler.Page)) []error {
	m.calls++
	errs := make([]error, len(targets))

	if m.block {
		<-ctx.Done()
		for i := range errs {
			errs[i] = errors.NewTimeout("blocked", ctx.Err())
		}
		return errs
	}

	for i := len(targets) - 1; i >= 0; i-- {
		target := targets[i]
		resp, ok := m.responses[target.Site]
		if !ok {
			errs[i] = errors.NewNetwork(string(target.Site), "no mock response", nil)
			continue
		}
		if resp.err != nil {
			errs[i] = resp.err
			continue
		}
		pageURL := target.URL
		if resp.finalURL != "" {
			pageURL = resp.finalURL
		}
		onPage(crawler.Page{Target: target, URL: pageURL, Body: []byte(resp.body)})
	}
	return errs
}

// MockPublisher implements the publisher.Publisher interface for testing
type MockPublisher struct {
	mu         sync.Mutex
	messages   map[string][]byte
	publishErr error
	trimmed    int
}

var _ publisher.Publisher = (*MockPublisher)(nil)

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{messages: make(map[string][]byte)}
}

func (m *MockPublisher) Publish(key string, message []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}

	messageCopy := make([]byte, len(message))
	copy(messageCopy, message)
	m.messages[key] = messageCopy
	return nil
}

func (m *MockPublisher) TrimStreams() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trimmed++
	return nil
}

func (m *MockPublisher) Close() error {
	return nil
}

// failingStore refuses writes
type failingStore struct {
	*artifact.FileStore
}

func (s failingStore) Write([]crawler.ProductRecord) error {
	return errors.NewStorage("disk full", nil)
}

func allSites() map[crawler.SiteID]mockResponse {
	return map[crawler.SiteID]mockResponse{
		crawler.SiteTorob:    {body: torobHTML},
		crawler.SiteEmalls:   {body: emallsHTML},
		crawler.SiteDigikala: {body: digikalaHTML},
	}
}

func newTestWorker(t *testing.T, fetcher PageFetcher, pub publisher.Publisher) (*Worker, *artifact.FileStore) {
	t.Helper()
	store := artifact.NewFileStore(filepath.Join(t.TempDir(), "results.json"))
	w, err := NewWorker(crawler.DefaultSites(config.LoadConfig()), fetcher, store, pub, time.Second)
	require.NoError(t, err)
	return w, store
}

func writeStale(t *testing.T, store *artifact.FileStore) {
	t.Helper()
	require.NoError(t, os.WriteFile(store.Path(), []byte(`[{"product_name":"stale"}]`), 0o644))
}

func TestWorker_Search(t *testing.T) {
	pub := NewMockPublisher()
	w, store := newTestWorker(t, &MockFetcher{responses: allSites()}, pub)

	result, err := w.Search(context.Background(), "  iphone   ۱۵ ")
	require.NoError(t, err)
	assert.Equal(t, "iphone 15", result.Query)
	assert.NotEmpty(t, result.RunID)
	assert.Len(t, result.Pages, 3)
	assert.Empty(t, result.FetchErrors)

	records, err := store.Load()
	require.NoError(t, err)
	require.Len(t, records, 4)

	// site order wins over delivery order, and equal names are not merged
	assert.Equal(t, crawler.SiteTorob, records[0].StoreName)
	assert.Equal(t, "iPhone 15", records[0].ProductName)
	assert.Equal(t, int64(55000000), *records[0].Price)
	assert.Equal(t, "https://torob.com/p/1/iphone-15/", records[0].ProductURL)

	assert.Equal(t, crawler.SiteTorob, records[1].StoreName)
	assert.Nil(t, records[1].Price)

	assert.Equal(t, crawler.SiteEmalls, records[2].StoreName)
	assert.Equal(t, "iPhone 15", records[2].ProductName)
	assert.Equal(t, int64(54900000), *records[2].Price)

	assert.Equal(t, crawler.SiteDigikala, records[3].StoreName)
	assert.Equal(t, int64(56000000), *records[3].Price)
	assert.Equal(t, "https://www.digikala.com/product/dkp-15/", records[3].ProductURL)

	assert.Equal(t, records, result.Records)

	// completion event
	require.Contains(t, pub.messages, publisher.EventSearchCompleted)
	var event publisher.SearchCompleted
	require.NoError(t, json.Unmarshal(pub.messages[publisher.EventSearchCompleted], &event))
	assert.Equal(t, result.RunID, event.RunID)
	assert.Equal(t, 4, event.RecordCount)
	assert.Equal(t, store.Path(), event.Artifact)
	assert.Equal(t, 1, pub.trimmed)
}

func TestWorker_SearchNoMatchingSites(t *testing.T) {
	responses := allSites()
	for id, resp := range responses {
		resp.finalURL = "https://unknown.example.com/landing"
		responses[id] = resp
	}
	w, store := newTestWorker(t, &MockFetcher{responses: responses}, nil)

	result, err := w.Search(context.Background(), "laptop")
	require.NoError(t, err)
	assert.Empty(t, result.Records)
	for _, page := range result.Pages {
		assert.Equal(t, crawler.OutcomeEmpty, page.Outcome)
		assert.True(t, errors.IsType(page.Err, errors.ErrorTypeUnmatched))
	}

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestWorker_SearchPartialFailure(t *testing.T) {
	responses := allSites()
	responses[crawler.SiteEmalls] = mockResponse{err: errors.NewRateLimit("emalls", time.Minute)}
	w, store := newTestWorker(t, &MockFetcher{responses: responses}, nil)

	result, err := w.Search(context.Background(), "iphone")
	require.NoError(t, err)
	require.Len(t, result.FetchErrors, 1)
	assert.True(t, errors.IsType(result.FetchErrors[0], errors.ErrorTypeRateLimit))

	records, err := store.Load()
	require.NoError(t, err)
	assert.Len(t, records, 3)
	for _, rec := range records {
		assert.NotEqual(t, crawler.SiteEmalls, rec.StoreName)
	}
}

func TestWorker_SearchAllSitesFailed(t *testing.T) {
	w, store := newTestWorker(t, &MockFetcher{}, nil)
	writeStale(t, store)

	_, err := w.Search(context.Background(), "iphone")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNetwork))

	_, statErr := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(statErr))
}

func TestWorker_SearchEmptyQuery(t *testing.T) {
	fetcher := &MockFetcher{responses: allSites()}
	w, store := newTestWorker(t, fetcher, nil)
	writeStale(t, store)

	_, err := w.Search(context.Background(), " \u200c\u0640 ")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	assert.Equal(t, 0, fetcher.calls)

	_, statErr := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(statErr))
}

func TestWorker_SearchTimeout(t *testing.T) {
	pub := NewMockPublisher()
	store := artifact.NewFileStore(filepath.Join(t.TempDir(), "results.json"))
	w, err := NewWorker(crawler.DefaultSites(config.LoadConfig()), &MockFetcher{block: true}, store, pub, 50*time.Millisecond)
	require.NoError(t, err)

	_, err = w.Search(context.Background(), "iphone")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTimeout))
	assert.True(t, stderrors.Is(err, context.DeadlineExceeded))

	_, statErr := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(statErr))
	assert.Empty(t, pub.messages)
}

func TestWorker_SearchCancelled(t *testing.T) {
	w, _ := newTestWorker(t, &MockFetcher{block: true}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.Search(ctx, "iphone")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTimeout))
	assert.True(t, stderrors.Is(err, context.Canceled))
}

func TestWorker_SearchStorageFailure(t *testing.T) {
	store := failingStore{artifact.NewFileStore(filepath.Join(t.TempDir(), "results.json"))}
	w, err := NewWorker(crawler.DefaultSites(config.LoadConfig()), &MockFetcher{responses: allSites()}, store, nil, time.Second)
	require.NoError(t, err)

	_, err = w.Search(context.Background(), "iphone")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeStorage))
}

func TestWorker_PublishFailureIsNotFatal(t *testing.T) {
	pub := NewMockPublisher()
	pub.publishErr = stderrors.New("redis down")
	w, store := newTestWorker(t, &MockFetcher{responses: allSites()}, pub)

	_, err := w.Search(context.Background(), "iphone")
	require.NoError(t, err)
	assert.Equal(t, 0, pub.trimmed)

	_, statErr := os.Stat(store.Path())
	assert.NoError(t, statErr)
}

func TestNewWorker_DuplicateDomain(t *testing.T) {
	sites := crawler.DefaultSites(config.LoadConfig())
	sites[1].SearchURLs = []string{"https://torob.com/other?q={query}"}

	_, err := NewWorker(sites, &MockFetcher{}, artifact.NewFileStore(filepath.Join(t.TempDir(), "r.json")), nil, time.Second)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
}
