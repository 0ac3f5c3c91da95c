package search

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// PageSize is the number of results the job board returns per search page.
const PageSize = 25

const DefaultBaseURL = "https://www.linkedin.com/jobs/search/"

const secondsPerDay = 86400

// JobType is the job board's one-letter employment type code.
type JobType string

const (
	FullTime   JobType = "F"
	PartTime   JobType = "P"
	Contract   JobType = "C"
	Temporary  JobType = "T"
	Internship JobType = "I"
	Volunteer  JobType = "V"
	Other      JobType = "O"
)

var jobTypeNames = map[string]JobType{
	"full-time":  FullTime,
	"fulltime":   FullTime,
	"full_time":  FullTime,
	"part-time":  PartTime,
	"parttime":   PartTime,
	"part_time":  PartTime,
	"contract":   Contract,
	"temporary":  Temporary,
	"internship": Internship,
	"volunteer":  Volunteer,
	"other":      Other,
}

// ParseJobType accepts either a code ("F") or a name ("full-time").
func ParseJobType(s string) (JobType, error) {
	s = strings.TrimSpace(s)
	switch jt := JobType(strings.ToUpper(s)); jt {
	case FullTime, PartTime, Contract, Temporary, Internship, Volunteer, Other:
		return jt, nil
	}
	if jt, ok := jobTypeNames[strings.ToLower(s)]; ok {
		return jt, nil
	}
	return "", fmt.Errorf("unknown job type %q", s)
}

// ParseJobTypes parses a comma separated list, skipping blanks.
func ParseJobTypes(s string) ([]JobType, error) {
	var out []JobType
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		jt, err := ParseJobType(part)
		if err != nil {
			return nil, err
		}
		out = append(out, jt)
	}
	return out, nil
}

// Query describes one page of a job search. It is a value: Page returns a
// copy and never mutates the receiver.
type Query struct {
	Keywords         string
	Location         string
	JobTypes         []JobType
	PostedWithinDays int
	PageIndex        int
}

func (q Query) Validate() error {
	if q.PostedWithinDays < 0 {
		return errors.New("posted-within days must not be negative")
	}
	if q.PageIndex < 0 {
		return errors.New("page index must not be negative")
	}
	return nil
}

func (q Query) Page(index int) Query {
	out := q
	out.PageIndex = index
	if q.JobTypes != nil {
		out.JobTypes = append([]JobType(nil), q.JobTypes...)
	}
	return out
}

// Encode renders the query string with a fixed parameter order. The start
// parameter carries the page index as is.
func (q Query) Encode() string {
	params := [][2]string{
		{"keywords", q.Keywords},
		{"location", q.Location},
		{"start", strconv.Itoa(q.PageIndex)},
	}
	if q.PostedWithinDays > 0 {
		params = append(params, [2]string{"f_TPR", "r" + strconv.Itoa(q.PostedWithinDays*secondsPerDay)})
	}
	if len(q.JobTypes) > 0 {
		codes := make([]string, len(q.JobTypes))
		for i, jt := range q.JobTypes {
			codes[i] = string(jt)
		}
		params = append(params, [2]string{"f_JT", strings.Join(codes, ",")})
	}

	var sb strings.Builder
	for i, p := range params {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(p[0])
		sb.WriteByte('=')
		sb.WriteString(escape(p[1]))
	}
	return sb.String()
}

// URL joins the encoded query onto base, which may already carry a query.
func (q Query) URL(base string) string {
	if base == "" {
		base = DefaultBaseURL
	}
	sep := "?"
	switch {
	case strings.HasSuffix(base, "?") || strings.HasSuffix(base, "&"):
		sep = ""
	case strings.Contains(base, "?"):
		sep = "&"
	}
	return base + sep + q.Encode()
}

// PageCount is the number of search pages needed to cover total results.
func PageCount(total int) int {
	if total <= 0 {
		return 0
	}
	return (total + PageSize - 1) / PageSize
}

func escape(v string) string {
	return strings.ReplaceAll(url.QueryEscape(v), "+", "%20")
}
