// Package export renders search records for people: CSV files and a
// terminal table, with the filter and sort options of the CLI.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/Kiarash1380mohebbi/web-scrapy/internal/crawler"
	"github.com/Kiarash1380mohebbi/web-scrapy/pkg/errors"

	"github.com/mattn/go-runewidth"
)

// utf8BOM lets spreadsheet software detect the encoding of Persian names
const utf8BOM = "\ufeff"

// Header is the column row shared by CSV and table output
var Header = []string{"Product Name", "Price (Toman)", "Store", "Product URL"}

// SortKey orders records for display
type SortKey string

const (
	SortNone      SortKey = ""
	SortPrice     SortKey = "price"
	SortPriceDesc SortKey = "-price"
	SortName      SortKey = "name"
)

// ParseSortKey validates a sort option
func ParseSortKey(s string) (SortKey, error) {
	switch key := SortKey(strings.TrimSpace(s)); key {
	case SortNone, SortPrice, SortPriceDesc, SortName:
		return key, nil
	default:
		return SortNone, errors.NewValidation("", fmt.Sprintf("unknown sort key %q (want price, -price or name)", s))
	}
}

// Filter narrows records for display. Zero values disable a condition.
type Filter struct {
	Store    crawler.SiteID
	MinPrice int64
	MaxPrice int64
}

// Apply returns the records matching f in their original order.
// Records without a price never satisfy a price bound.
func (f Filter) Apply(records []crawler.ProductRecord) []crawler.ProductRecord {
	out := make([]crawler.ProductRecord, 0, len(records))
	for _, rec := range records {
		if f.Store != "" && !strings.EqualFold(string(rec.StoreName), string(f.Store)) {
			continue
		}
		if f.MinPrice > 0 || f.MaxPrice > 0 {
			if rec.Price == nil {
				continue
			}
			if f.MinPrice > 0 && *rec.Price < f.MinPrice {
				continue
			}
			if f.MaxPrice > 0 && *rec.Price > f.MaxPrice {
				continue
			}
		}
		out = append(out, rec)
	}
	return out
}

// Sort orders records in place. The sort is stable and records without a
// price go last for both price orders.
func Sort(records []crawler.ProductRecord, key SortKey) {
	switch key {
	case SortPrice, SortPriceDesc:
		sort.SliceStable(records, func(i, j int) bool {
			a, b := records[i].Price, records[j].Price
			if a == nil || b == nil {
				return a != nil && b == nil
			}
			if key == SortPriceDesc {
				return *a > *b
			}
			return *a < *b
		})
	case SortName:
		sort.SliceStable(records, func(i, j int) bool {
			return strings.ToLower(records[i].ProductName) < strings.ToLower(records[j].ProductName)
		})
	}
}

// FormatPrice renders a price with thousands separators, or N/A
func FormatPrice(price *int64) string {
	if price == nil || *price <= 0 {
		return "N/A"
	}

	digits := strconv.FormatInt(*price, 10)
	var sb strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(d)
	}
	return sb.String()
}

func row(rec crawler.ProductRecord) []string {
	return []string{rec.ProductName, FormatPrice(rec.Price), string(rec.StoreName), rec.ProductURL}
}

// WriteCSV writes records as CSV prefixed with a UTF-8 byte order mark
func WriteCSV(w io.Writer, records []crawler.ProductRecord) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, rec := range records {
		if err := cw.Write(row(rec)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the CSV export to path
func SaveCSV(path string, records []crawler.ProductRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.NewStorage("create csv export", err)
	}

	if err := WriteCSV(f, records); err != nil {
		f.Close()
		return errors.NewStorage("write csv export", err)
	}
	if err := f.Close(); err != nil {
		return errors.NewStorage("close csv export", err)
	}
	return nil
}

// RenderTable writes records as an aligned text table. Cells are padded by
// display width so Persian and wide characters line up; names longer than
// maxName columns are truncated (0 means no limit).
func RenderTable(w io.Writer, records []crawler.ProductRecord, maxName int) error {
	table := [][]string{Header}
	for _, rec := range records {
		cells := row(rec)
		if maxName > 0 {
			cells[0] = runewidth.Truncate(cells[0], maxName, "…")
		}
		table = append(table, cells)
	}

	widths := make([]int, len(Header))
	for _, cells := range table {
		for i, cell := range cells {
			if cw := runewidth.StringWidth(cell); cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	var sb strings.Builder
	for r, cells := range table {
		writeRow(&sb, cells, widths)
		if r == 0 {
			sep := make([]string, len(widths))
			for i, width := range widths {
				sep[i] = strings.Repeat("-", width)
			}
			writeRow(&sb, sep, widths)
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func writeRow(sb *strings.Builder, cells []string, widths []int) {
	sb.WriteString("|")
	for i, cell := range cells {
		sb.WriteString(" ")
		// price column reads better right aligned
		if i == 1 {
			sb.WriteString(runewidth.FillLeft(cell, widths[i]))
		} else {
			sb.WriteString(runewidth.FillRight(cell, widths[i]))
		}
		sb.WriteString(" |")
	}
	sb.WriteString("\n")
}
