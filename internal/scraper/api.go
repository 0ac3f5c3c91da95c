package scraper

import (
	"errors"
	"time"

	"github.com/baxromumarov/job-harvester/internal/postdate"
)

// ErrParse wraps every failure to read a page body as HTML.
var ErrParse = errors.New("parse failed")

// JobLink is the absolute URL of a posting's detail page.
type JobLink string

func (l JobLink) String() string { return string(l) }

// JobRecord is what gets extracted from one detail page. Only Link is
// guaranteed; everything else is best effort.
type JobRecord struct {
	Link        JobLink       `json:"job link"`
	CompanyName string        `json:"company name,omitempty"`
	CompanyLink string        `json:"company link,omitempty"`
	Description string        `json:"description"`
	PostedDate  postdate.Date `json:"posted date"`
}

// LinkInterpreter pulls posting links out of a search results page.
type LinkInterpreter interface {
	ExtractLinks(body []byte) ([]JobLink, error)
}

// RecordInterpreter turns a detail page into a JobRecord. ref anchors
// relative "posted ... ago" labels.
type RecordInterpreter interface {
	ExtractRecord(link JobLink, body []byte, ref time.Time) (JobRecord, error)
}
