package crawler

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleRecords() []ExtractedRecord {
	return []ExtractedRecord{
		{
			URL:             "http://example.com/a",
			CanonicalURL:    "http://example.com/a",
			Text:            "first page",
			MetaDescription: "desc a",
			MetaKeywords:    []string{"one", "two"},
			Images:          []string{"http://example.com/1.png", "http://example.com/2.png"},
			OutboundLinks:   []string{"http://example.com/b"},
		},
		{
			URL:          "http://example.com/b",
			CanonicalURL: "http://example.com/b",
			Text:         "second page, with a comma",
		},
	}
}

func TestJSONSinkRoundTrip(t *testing.T) {
	t.Parallel()
	base := filepath.Join(t.TempDir(), "out")
	sink, err := NewFileSink(FormatJSON, base)
	require.NoError(t, err)

	records := sampleRecords()
	require.NoError(t, sink.Write(records))

	payload, err := os.ReadFile(base + ".json")
	require.NoError(t, err)

	var parsed []ExtractedRecord
	require.NoError(t, json.Unmarshal(payload, &parsed))
	require.Equal(t, records, parsed, "field values and slice ordering survive the round trip")
}

func TestCSVSinkWritesHeaderAndRows(t *testing.T) {
	t.Parallel()
	base := filepath.Join(t.TempDir(), "out")
	sink, err := NewFileSink(FormatCSV, base)
	require.NoError(t, err)

	require.NoError(t, sink.Write(sampleRecords()))

	file, err := os.Open(base + ".csv")
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, []string{
		"url", "canonical_url", "text", "meta_description",
		"meta_keywords", "images", "outbound_links",
	}, rows[0])
	require.Equal(t, "http://example.com/a", rows[1][0])
	require.Equal(t, "one|two", rows[1][4])
	require.Equal(t, "http://example.com/1.png|http://example.com/2.png", rows[1][5])
	require.Equal(t, "second page, with a comma", rows[2][2])
}

func TestFileSinksShareArtifactPermissions(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	jsonSink, err := NewFileSink(FormatJSON, filepath.Join(dir, "out"))
	require.NoError(t, err)
	require.NoError(t, jsonSink.Write(sampleRecords()))

	csvSink, err := NewFileSink(FormatCSV, filepath.Join(dir, "out"))
	require.NoError(t, err)
	require.NoError(t, csvSink.Write(sampleRecords()))

	jsonInfo, err := os.Stat(filepath.Join(dir, "out.json"))
	require.NoError(t, err)
	csvInfo, err := os.Stat(filepath.Join(dir, "out.csv"))
	require.NoError(t, err)
	require.Equal(t, jsonInfo.Mode().Perm(), csvInfo.Mode().Perm(),
		"both artifacts must carry the same permissions")
}

func TestNewFileSinkRejectsUnknownFormat(t *testing.T) {
	t.Parallel()
	_, err := NewFileSink("xml", "out")
	require.Error(t, err)
}
