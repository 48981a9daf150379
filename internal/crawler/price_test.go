package crawler

import (
	"testing"

	"github.com/Kiarash1380mohebbi/web-scrapy/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePrice(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		expected int64
	}{
		{"toman with commas", "45,000,000 تومان", 45000000},
		{"rial divided by ten", "450000 ریال", 45000},
		{"arabic yeh rial", "450000 ريال", 45000},
		{"rial sign", "1,200,000 ﷼", 120000},
		{"persian digits no unit", "۱۲۳۴۵۶", 123456},
		{"arabic-indic digits", "٤٥٠٠٠", 45000},
		{"arabic thousands separator", "۴۵٬۰۰۰٬۰۰۰ تومان", 45000000},
		{"persian comma", "۱۲۰،۰۰۰ تومن", 120000},
		{"nbsp grouping", "45\u00a0000\u00a0000 ریال", 4500000},
		{"narrow nbsp grouping", "2\u202f500\u202f000 تومان", 2500000},
		{"longest run wins", "model X100 250000 تومان", 250000},
		{"earliest on ties", "1234 or 5678", 1234},
		{"latin unit words", "Toman 1,200", 1200},
		{"latin rial", "15000 RIAL", 1500},
		{"decimal rounds", "1999.6", 2000},
		{"rial rounds half to even", "455 ریال", 46},
		{"rial rounds down", "12.5 ریال", 1},
		{"surrounding text", "قیمت: ۳۵٬۹۰۰٬۰۰۰ تومان", 35900000},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			price, err := NormalizePrice(tc.raw)
			require.NoError(t, err)
			require.NotNil(t, price)
			assert.Equal(t, tc.expected, *price)
		})
	}
}

func TestNormalizePrice_MajorUnitDominates(t *testing.T) {
	inputs := []string{
		"450000 ریال (45000 تومان)",
		"450000 تومان ریال",
		"rial 450000 toman",
		"﷼ 450000 تومن",
	}

	for _, raw := range inputs {
		price, err := NormalizePrice(raw)
		require.NoError(t, err, raw)
		require.NotNil(t, price, raw)
		assert.Equal(t, int64(450000), *price, "major unit should win for %q", raw)
	}
}

func TestNormalizePrice_NoValue(t *testing.T) {
	price, err := NormalizePrice("")
	assert.NoError(t, err)
	assert.Nil(t, price)

	price, err = NormalizePrice("   ")
	assert.NoError(t, err)
	assert.Nil(t, price)
}

func TestNormalizePrice_Unparseable(t *testing.T) {
	inputs := []string{"تماس بگیرید", "ناموجود", "تومان", "-"}

	for _, raw := range inputs {
		price, err := NormalizePrice(raw)
		assert.Nil(t, price, raw)
		require.Error(t, err, raw)
		assert.True(t, errors.IsType(err, errors.ErrorTypePrice))
		assert.Contains(t, err.Error(), raw)
	}
}

func TestNormalizePrice_Overflow(t *testing.T) {
	price, err := NormalizePrice("99999999999999999999 تومان")
	assert.Nil(t, price)
	assert.True(t, errors.IsType(err, errors.ErrorTypePrice))
}

func TestNormalizePrice_NeverNegative(t *testing.T) {
	price, err := NormalizePrice("-5000 تومان")
	require.NoError(t, err)
	require.NotNil(t, price)
	assert.Equal(t, int64(5000), *price)
}
