package scraper

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultResultCardSelector matches result card anchors in both the older
// and the current guest search markup.
const DefaultResultCardSelector = "a.result-card__full-card-link, a.base-card__full-link"

type SearchResultsInterpreter struct {
	selector string
}

func NewSearchResultsInterpreter(selector string) *SearchResultsInterpreter {
	if strings.TrimSpace(selector) == "" {
		selector = DefaultResultCardSelector
	}
	return &SearchResultsInterpreter{selector: selector}
}

// ExtractLinks returns the href of every result card, verbatim and in
// document order, without duplicates. A page with no cards yields an empty
// slice and no error.
func (i *SearchResultsInterpreter) ExtractLinks(body []byte) ([]JobLink, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: search page: %w", ErrParse, err)
	}

	links := []JobLink{}
	seen := make(map[string]struct{})
	doc.Find(i.selector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			return
		}
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}
		links = append(links, JobLink(href))
	})
	return links, nil
}
