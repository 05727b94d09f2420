package crawler

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Output formats accepted by NewFileSink.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// artifactMode is the permission both sinks create their output file with.
const artifactMode = 0o644

// NewFileSink returns a sink writing one artifact per run: basePath plus the
// format's extension.
func NewFileSink(format, basePath string) (Sink, error) {
	switch strings.ToLower(format) {
	case FormatCSV:
		return &CSVSink{path: basePath + ".csv"}, nil
	case FormatJSON:
		return &JSONSink{path: basePath + ".json"}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}

// JSONSink writes all records as one indented JSON array.
type JSONSink struct {
	path string
}

// Write implements Sink.
func (s *JSONSink) Write(records []ExtractedRecord) error {
	payload, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal records: %w", err)
	}
	if err := os.WriteFile(s.path, payload, artifactMode); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

// Path returns the output artifact location.
func (s *JSONSink) Path() string { return s.path }

// CSVSink writes one row per record; multi-valued fields are joined with "|".
type CSVSink struct {
	path string
}

// Write implements Sink.
func (s *CSVSink) Write(records []ExtractedRecord) error {
	file, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, artifactMode)
	if err != nil {
		return fmt.Errorf("create %s: %w", s.path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	header := []string{
		"url", "canonical_url", "text", "meta_description",
		"meta_keywords", "images", "outbound_links",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.URL,
			r.CanonicalURL,
			r.Text,
			r.MetaDescription,
			strings.Join(r.MetaKeywords, "|"),
			strings.Join(r.Images, "|"),
			strings.Join(r.OutboundLinks, "|"),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row for %s: %w", r.URL, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// Path returns the output artifact location.
func (s *CSVSink) Path() string { return s.path }
