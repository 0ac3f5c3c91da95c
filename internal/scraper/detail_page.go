package scraper

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/baxromumarov/job-harvester/internal/postdate"
)

type DetailSelectors struct {
	Company     string
	Description string
	PostedTime  string
}

func DefaultDetailSelectors() DetailSelectors {
	return DetailSelectors{
		Company:     "a[class*='org-name-link']",
		Description: "div.description__text.description__text--rich",
		PostedTime:  "span[class*='posted-time-ago']",
	}
}

type DetailPageInterpreter struct {
	sel DetailSelectors
}

func NewDetailPageInterpreter(sel DetailSelectors) *DetailPageInterpreter {
	def := DefaultDetailSelectors()
	if sel.Company == "" {
		sel.Company = def.Company
	}
	if sel.Description == "" {
		sel.Description = def.Description
	}
	if sel.PostedTime == "" {
		sel.PostedTime = def.PostedTime
	}
	return &DetailPageInterpreter{sel: sel}
}

// ExtractRecord reads company, description and posting date from a detail
// page. Missing elements leave the corresponding fields empty.
func (i *DetailPageInterpreter) ExtractRecord(link JobLink, body []byte, ref time.Time) (JobRecord, error) {
	rec := JobRecord{Link: link}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return rec, fmt.Errorf("%w: detail page %s: %w", ErrParse, link, err)
	}

	if company := doc.Find(i.sel.Company).First(); company.Length() > 0 {
		rec.CompanyName = strings.TrimSpace(company.Text())
		if href, ok := company.Attr("href"); ok {
			rec.CompanyLink = stripQuery(strings.TrimSpace(href))
		}
	}

	rec.Description = JoinText(doc.Find(i.sel.Description).Nodes)

	posted := doc.Find(i.sel.PostedTime).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.TrimSpace(s.Text()) != ""
	}).First()
	if posted.Length() > 0 {
		if d, ok := postdate.Normalize(posted.Text(), ref); ok {
			rec.PostedDate = d
		}
	}

	return rec, nil
}

func stripQuery(href string) string {
	before, _, _ := strings.Cut(href, "?")
	return before
}
