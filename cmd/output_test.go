package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/eikewelk/econdata/internal/junction"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var recordTable = table[junction.Record]{
	headers: []string{"RECORD", "STATE", "PRODUCT"},
	row: func(r junction.Record) []string {
		return []string{string(r.ID), r.State.String(), r.Label}
	},
}

func TestRenderTable(t *testing.T) {
	records := []junction.Record{
		{ID: "1", State: junction.NoProduct, Label: junction.NoProductLabel},
		{ID: "22", State: junction.Resolved, Label: "Nikon D70"},
	}

	var buf bytes.Buffer
	require.NoError(t, render(&buf, "table", records, recordTable))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"RECORD", "STATE", "PRODUCT"}, strings.Fields(lines[0]))
	assert.Contains(t, lines[1], "<No Products>")
	assert.Contains(t, lines[2], "resolved")
}

func TestRenderJSONAndYAML(t *testing.T) {
	records := []junction.Record{{ID: "5", State: junction.Unresolved, Label: junction.UnresolvedLabel}}

	var buf bytes.Buffer
	require.NoError(t, render(&buf, "json", records, recordTable))
	assert.Contains(t, buf.String(), `"state": "unresolved"`)

	buf.Reset()
	require.NoError(t, render(&buf, "yaml", records, recordTable))
	assert.Contains(t, buf.String(), "state: unresolved")
}

func TestRenderGolden(t *testing.T) {
	product := "/econdata/api/products/9/"
	records := []junction.Record{
		{ID: "1", Listing: "/econdata/api/listings/a/", IsTrainingData: true, State: junction.NoProduct, Label: junction.NoProductLabel},
		{ID: "22", Listing: "/econdata/api/listings/a/", ProductURL: &product, IsTrainingData: true, State: junction.Unresolved, Label: junction.UnresolvedLabel},
	}
	g := goldie.New(t, goldie.WithFixtureDir("testdata"), goldie.WithNameSuffix(".golden"))

	for _, format := range []string{"table", "json"} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, render(&buf, format, records, recordTable))
			g.Assert(t, "records_"+format, buf.Bytes())
		})
	}
}

func TestRenderUnknownFormat(t *testing.T) {
	err := render(&bytes.Buffer{}, "xml", []junction.Record{}, recordTable)
	assert.ErrorContains(t, err, "unsupported output format")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b c", truncate("a\n b\tc", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}

func TestParseShortlist(t *testing.T) {
	assert.Nil(t, parseShortlist(""))
	assert.Len(t, parseShortlist(" 12, ,57 "), 2)
}
