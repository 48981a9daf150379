package crawler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Kiarash1380mohebbi/web-scrapy/pkg/errors"

	"github.com/PuerkitoBio/goquery"
)

// KeyPath addresses a value inside a decoded JSON document.
// Numeric segments index into arrays.
type KeyPath []string

// EmbeddedExtractor extracts products from a JSON state blob carried in a
// script tag. The product list is found through an ordered chain of key
// paths and each field through an ordered chain of aliases.
type EmbeddedExtractor struct {
	SiteID  SiteID
	Scripts []string
	Lists   []KeyPath
	Name    []KeyPath
	Price   []KeyPath
	URL     []KeyPath
	// PriceUnit is appended to prices that are bare numbers
	PriceUnit  string
	MaxRecords int
}

// Site returns the store identifier
func (e *EmbeddedExtractor) Site() SiteID {
	return e.SiteID
}

// Extract decodes the embedded payload and maps its product list
func (e *EmbeddedExtractor) Extract(page Page) (Extraction, error) {
	provider := string(e.SiteID)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return Extraction{}, errors.NewPayload(provider, "HTML parse error", err)
	}

	blob, script := e.findPayload(doc)
	if blob == "" {
		return Extraction{}, errors.NewStructure(provider, "embedded payload not found")
	}

	var payload interface{}
	dec := json.NewDecoder(strings.NewReader(blob))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return Extraction{}, errors.NewPayload(provider, "malformed payload in "+script, err)
	}

	items := firstList(payload, e.Lists)
	if len(items) == 0 {
		return Extraction{}, errors.NewStructure(provider, "no product list in payload")
	}

	limit := e.MaxRecords
	if limit <= 0 {
		limit = DefaultMaxRecords
	}

	var out Extraction
	for i, item := range items {
		raw, err := e.extractItem(item)
		if err != nil {
			out.Issues = append(out.Issues, errors.NewItem(provider, fmt.Sprintf("item %d skipped", i), err))
			continue
		}
		if raw.Name == "" {
			continue
		}
		raw.Container = script
		out.Items = append(out.Items, raw)
		if len(out.Items) >= limit {
			break
		}
	}

	return out, nil
}

func (e *EmbeddedExtractor) findPayload(doc *goquery.Document) (string, string) {
	for _, sel := range e.Scripts {
		text := strings.TrimSpace(doc.Find(sel).First().Text())
		if text != "" {
			return text, sel
		}
	}
	return "", ""
}

func (e *EmbeddedExtractor) extractItem(item interface{}) (raw RawExtraction, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	obj, ok := item.(map[string]interface{})
	if !ok {
		return raw, fmt.Errorf("expected object, got %T", item)
	}

	raw.Name = collapseSpace(firstString(obj, e.Name))
	raw.Href = firstString(obj, e.URL)

	price := firstString(obj, e.Price)
	if e.PriceUnit != "" && isBareNumber(price) {
		price += " " + e.PriceUnit
	}
	raw.Price = price

	return raw, nil
}

// lookup follows path from v and reports whether it led anywhere
func lookup(v interface{}, path KeyPath) (interface{}, bool) {
	for _, key := range path {
		switch node := v.(type) {
		case map[string]interface{}:
			next, ok := node[key]
			if !ok {
				return nil, false
			}
			v = next
		case []interface{}:
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			v = node[idx]
		default:
			return nil, false
		}
	}
	return v, v != nil
}

// firstList returns the first non-empty list found along paths.
// An object found instead of a list yields its values in key order.
func firstList(payload interface{}, paths []KeyPath) []interface{} {
	for _, path := range paths {
		v, ok := lookup(payload, path)
		if !ok {
			continue
		}
		var list []interface{}
		switch node := v.(type) {
		case []interface{}:
			list = node
		case map[string]interface{}:
			keys := make([]string, 0, len(node))
			for k := range node {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				list = append(list, node[k])
			}
		}
		if len(list) > 0 {
			return list
		}
	}
	return nil
}

// firstString returns the first alias present with a scalar, non-empty value
func firstString(obj map[string]interface{}, paths []KeyPath) string {
	for _, path := range paths {
		v, ok := lookup(obj, path)
		if !ok {
			continue
		}
		var s string
		switch val := v.(type) {
		case string:
			s = strings.TrimSpace(val)
		case json.Number:
			s = val.String()
		}
		if s != "" {
			return s
		}
	}
	return ""
}

func isBareNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range ToASCIIDigits(s) {
		if !isASCIIDigit(r) && r != '.' && r != ',' {
			return false
		}
	}
	return true
}
