package core

import (
	"sort"

	"github.com/baxromumarov/job-harvester/internal/scraper"
	"github.com/baxromumarov/job-harvester/internal/urlutil"
)

// LinkSet holds distinct job links keyed by their normalized URL. It is not
// safe for concurrent use; a run mutates it from one goroutine only.
type LinkSet struct {
	links map[string]scraper.JobLink
}

func NewLinkSet(links ...scraper.JobLink) *LinkSet {
	s := &LinkSet{links: make(map[string]scraper.JobLink, len(links))}
	for _, l := range links {
		s.Add(l)
	}
	return s
}

// Add stores the normalized form of link and reports whether it was new.
func (s *LinkSet) Add(link scraper.JobLink) bool {
	key := identity(link)
	if key == "" {
		return false
	}
	if _, ok := s.links[key]; ok {
		return false
	}
	s.links[key] = scraper.JobLink(key)
	return true
}

func (s *LinkSet) Len() int { return len(s.links) }

// Sorted returns the links in lexical order.
func (s *LinkSet) Sorted() []scraper.JobLink {
	out := make([]scraper.JobLink, 0, len(s.links))
	for _, l := range s.links {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func identity(link scraper.JobLink) string {
	if normalized, err := urlutil.Normalize(string(link)); err == nil {
		return normalized
	}
	return string(link)
}
