package fec

import (
	"fmt"
	"strconv"

	"fecclean/internal/table"
)

// Header is the raw table layout: a leading row index and the six
// contribution columns.
var Header = []string{
	"",
	"contributor_occupation",
	"contributor_employer",
	"contributor_city",
	"contributor_state",
	"contributor_zip",
	"party",
}

// Rows converts contributions into a fresh raw table.
func Rows(contribs []Contribution) *table.Table {
	t := &table.Table{Header: append([]string(nil), Header...)}
	AppendRows(t, contribs)
	return t
}

// AppendRows adds contributions to t, continuing the row index from the
// current row count.
func AppendRows(t *table.Table, contribs []Contribution) {
	base := len(t.Rows)
	for i, c := range contribs {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(base + i),
			c.Occupation,
			c.Employer,
			c.City,
			c.State,
			c.Zip,
			c.Party,
		})
	}
}

// CheckHeader reports whether t was written by Rows and can be appended to.
func CheckHeader(t *table.Table) error {
	if len(t.Header) != len(Header) {
		return fmt.Errorf("fec: table has %d columns, want %d", len(t.Header), len(Header))
	}
	for i, name := range Header {
		if t.Header[i] != name {
			return fmt.Errorf("fec: column %d is %q, want %q", i, t.Header[i], name)
		}
	}
	return nil
}
