package crawler

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pricePtr(v int64) *int64 {
	return &v
}

func TestAggregator_PlannerOrder(t *testing.T) {
	agg := NewAggregator()

	// callbacks arrive in completion order, not planner order
	agg.Add(2, []ProductRecord{{ProductName: "Laptop", StoreName: SiteDigikala}})
	agg.Add(0, []ProductRecord{{ProductName: "iPhone 15", StoreName: SiteTorob}, {ProductName: "Galaxy", StoreName: SiteTorob}})
	agg.Add(1, []ProductRecord{{ProductName: "iPhone 15", StoreName: SiteEmalls}})
	agg.Add(3, nil)

	records := agg.Records()
	require.Len(t, records, 4)
	assert.Equal(t, 4, agg.Len())

	assert.Equal(t, SiteTorob, records[0].StoreName)
	assert.Equal(t, "Galaxy", records[1].ProductName)
	assert.Equal(t, SiteEmalls, records[2].StoreName)
	assert.Equal(t, SiteDigikala, records[3].StoreName)

	// identical names from two sites are both kept
	assert.Equal(t, records[0].ProductName, records[2].ProductName)
}

func TestAggregator_ConcurrentAdds(t *testing.T) {
	agg := NewAggregator()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(order int) {
			defer wg.Done()
			agg.Add(order, []ProductRecord{{ProductName: "p", StoreName: SiteTorob}})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, agg.Len())
	assert.Len(t, agg.Records(), 50)
}

func TestMarshal_Empty(t *testing.T) {
	data, err := Marshal(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))

	data, err = Marshal(NewAggregator().Records())
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestMarshal_Format(t *testing.T) {
	records := []ProductRecord{
		{ProductName: "گوشی", Price: pricePtr(45000000), StoreName: SiteTorob, ProductURL: "https://torob.com/p?a=1&b=2"},
		{ProductName: "<Case>", StoreName: SiteEmalls, ProductURL: "https://emalls.ir/"},
	}

	data, err := Marshal(records)
	require.NoError(t, err)

	expected := `[
  {
    "product_name": "گوشی",
    "price": 45000000,
    "store_name": "Torob",
    "product_url": "https://torob.com/p?a=1&b=2"
  },
  {
    "product_name": "<Case>",
    "price": null,
    "store_name": "Emalls",
    "product_url": "https://emalls.ir/"
  }
]
`
	assert.Equal(t, expected, string(data))

	var decoded []ProductRecord
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, records, decoded)
}
