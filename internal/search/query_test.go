package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery_URL(t *testing.T) {
	q := Query{
		Keywords:         "software engineer",
		Location:         "United States",
		JobTypes:         []JobType{FullTime, Contract},
		PostedWithinDays: 7,
		PageIndex:        2,
	}

	got := q.URL("https://www.linkedin.com/jobs/search/?")

	assert.Equal(t,
		"https://www.linkedin.com/jobs/search/?keywords=software%20engineer&location=United%20States&start=2&f_TPR=r604800&f_JT=F%2CC",
		got)
}

func TestQuery_EscapesReservedCharacters(t *testing.T) {
	q := Query{Keywords: "C/C++ dev", Location: "São Paulo"}

	assert.Equal(t, "keywords=C%2FC%2B%2B%20dev&location=S%C3%A3o%20Paulo&start=0", q.Encode())
}

func TestQuery_OptionalParamsOmitted(t *testing.T) {
	q := Query{Keywords: "go", Location: "Remote"}

	assert.Equal(t, "keywords=go&location=Remote&start=0", q.Encode())
	assert.Equal(t, DefaultBaseURL+"?keywords=go&location=Remote&start=0", q.URL(""))
	assert.Equal(t, "http://x/s?a=1&keywords=go&location=Remote&start=0", q.URL("http://x/s?a=1"))
}

func TestQuery_PageDoesNotMutate(t *testing.T) {
	q := Query{Keywords: "go", JobTypes: []JobType{FullTime}}

	p := q.Page(3)
	p.JobTypes[0] = Contract

	assert.Equal(t, 0, q.PageIndex)
	assert.Equal(t, 3, p.PageIndex)
	assert.Equal(t, FullTime, q.JobTypes[0])
}

func TestQuery_Validate(t *testing.T) {
	assert.NoError(t, Query{}.Validate())
	assert.Error(t, Query{PostedWithinDays: -1}.Validate())
	assert.Error(t, Query{PageIndex: -1}.Validate())
}

func TestPageCount(t *testing.T) {
	cases := map[int]int{0: 0, -5: 0, 1: 1, 25: 1, 26: 2, 60: 3, 100: 4}
	for total, want := range cases {
		assert.Equal(t, want, PageCount(total), "total=%d", total)
	}
}

func TestParseJobTypes(t *testing.T) {
	got, err := ParseJobTypes("F, contract ,,part-time")
	require.NoError(t, err)
	assert.Equal(t, []JobType{FullTime, Contract, PartTime}, got)

	_, err = ParseJobTypes("F,Z")
	assert.Error(t, err)
}
