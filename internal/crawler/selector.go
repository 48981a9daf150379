package crawler

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/Kiarash1380mohebbi/web-scrapy/pkg/errors"

	"github.com/PuerkitoBio/goquery"
)

// DefaultMaxRecords bounds the records taken from one page
const DefaultMaxRecords = 20

// SelectorExtractor extracts products from rendered markup using ordered
// selector chains. The first container selector matching at least one
// element wins; each field is then read with its own handler chain.
type SelectorExtractor struct {
	SiteID     SiteID
	Containers []string
	Name       []ElementHandler
	Price      []ElementHandler
	Link       []ElementHandler
	MaxRecords int
}

// Site returns the store identifier
func (e *SelectorExtractor) Site() SiteID {
	return e.SiteID
}

// Extract finds product containers and reads name, price and link from each
func (e *SelectorExtractor) Extract(page Page) (Extraction, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return Extraction{}, errors.NewPayload(string(e.SiteID), "HTML parse error", err)
	}

	containers, matched := findContainers(doc.Selection, e.Containers)
	if containers == nil {
		return Extraction{}, errors.NewStructure(string(e.SiteID), "no product containers matched")
	}

	limit := e.MaxRecords
	if limit <= 0 {
		limit = DefaultMaxRecords
	}

	var out Extraction
	containers.EachWithBreak(func(i int, s *goquery.Selection) bool {
		raw, err := e.extractItem(s)
		if err != nil {
			out.Issues = append(out.Issues, errors.NewItem(string(e.SiteID), fmt.Sprintf("container %d skipped", i), err))
			return true
		}
		if raw.Name == "" {
			return true
		}
		raw.Container = matched
		out.Items = append(out.Items, raw)
		return len(out.Items) < limit
	})

	return out, nil
}

// extractItem reads one container; a panic in a handler only loses this item
func (e *SelectorExtractor) extractItem(s *goquery.Selection) (raw RawExtraction, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	raw.Name = collapseSpace(applyHandlers(s, e.Name))
	raw.Price = strings.TrimSpace(applyHandlers(s, e.Price))
	raw.Href = strings.TrimSpace(applyHandlers(s, e.Link))
	return raw, nil
}

// findContainers returns the matches of the first selector with any match
func findContainers(root *goquery.Selection, selectors []string) (*goquery.Selection, string) {
	for _, sel := range selectors {
		found := root.Find(sel)
		if found.Length() > 0 {
			return found, sel
		}
	}
	return nil, ""
}

// applyHandlers applies a series of handlers to a selection.
// The first non-empty result wins.
func applyHandlers(s *goquery.Selection, handlers []ElementHandler) string {
	result := ""
	for _, handler := range handlers {
		if handler != nil {
			result = strings.TrimSpace(handler(s))
			if result != "" {
				break
			}
		}
	}
	return result
}

// TextOf returns a handler reading the text of the first element matching selector
func TextOf(selector string) ElementHandler {
	return func(s *goquery.Selection) string {
		return s.Find(selector).First().Text()
	}
}

// AttrOf returns a handler reading an attribute of the first element matching selector
func AttrOf(selector, attr string) ElementHandler {
	return func(s *goquery.Selection) string {
		v, _ := s.Find(selector).First().Attr(attr)
		return v
	}
}

// TextHandlers builds a text handler for each selector, in order
func TextHandlers(selectors ...string) []ElementHandler {
	handlers := make([]ElementHandler, 0, len(selectors))
	for _, sel := range selectors {
		handlers = append(handlers, TextOf(sel))
	}
	return handlers
}

// HrefHandlers builds an href handler for each selector, in order
func HrefHandlers(selectors ...string) []ElementHandler {
	handlers := make([]ElementHandler, 0, len(selectors))
	for _, sel := range selectors {
		handlers = append(handlers, AttrOf(sel, "href"))
	}
	return handlers
}

// Chain concatenates handler chains, preserving order
func Chain(chains ...[]ElementHandler) []ElementHandler {
	var out []ElementHandler
	for _, c := range chains {
		out = append(out, c...)
	}
	return out
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
