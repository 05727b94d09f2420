package crawler

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// GoqueryExtractor pulls structured content from fetched markup: visible
// text, meta description and keywords, image sources, anchor targets, and
// the canonical link target when the page declares one.
//
// Missing elements are never an error; absent fields come back empty. The
// only failure mode is markup the parser cannot read at all.
type GoqueryExtractor struct{}

// NewGoqueryExtractor constructs the extractor.
func NewGoqueryExtractor() *GoqueryExtractor {
	return &GoqueryExtractor{}
}

// Extract parses body and builds a record for sourceURL. Image and anchor
// URLs are resolved to absolute form against sourceURL; they are not yet
// normalized or trap-checked, that happens when the engine enqueues them.
func (e *GoqueryExtractor) Extract(body []byte, sourceURL string) (ExtractedRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ExtractedRecord{URL: sourceURL}, fmt.Errorf("parse document: %w", err)
	}

	base, _ := url.Parse(sourceURL)

	record := ExtractedRecord{
		URL:             sourceURL,
		Text:            visibleText(doc),
		MetaDescription: doc.Find(`meta[name="description"]`).AttrOr("content", ""),
		MetaKeywords:    splitKeywords(doc.Find(`meta[name="keywords"]`).AttrOr("content", "")),
	}

	doc.Find("img[src]").Each(func(_ int, sel *goquery.Selection) {
		if src := resolveRef(base, sel.AttrOr("src", "")); src != "" {
			record.Images = append(record.Images, src)
		}
	})

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		if strings.Contains(strings.ToLower(sel.AttrOr("rel", "")), "nofollow") {
			return
		}
		href := resolveRef(base, sel.AttrOr("href", ""))
		if href == "" {
			return
		}
		if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
			return
		}
		record.OutboundLinks = append(record.OutboundLinks, href)
	})

	if canonical, ok := doc.Find(`link[rel="canonical"]`).Attr("href"); ok {
		record.CanonicalURL = resolveRef(base, canonical)
	}

	return record, nil
}

// visibleText returns the page's text content with script, style and noscript
// subtrees removed and whitespace collapsed.
func visibleText(doc *goquery.Document) string {
	doc.Find("script, style, noscript").Remove()
	scope := doc.Find("body")
	if scope.Length() == 0 {
		scope = doc.Selection
	}
	return strings.Join(strings.Fields(scope.Text()), " ")
}

func splitKeywords(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// resolveRef makes ref absolute against base; returns "" for unusable refs.
func resolveRef(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base != nil {
		parsed = base.ResolveReference(parsed)
	}
	return parsed.String()
}
