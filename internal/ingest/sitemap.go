package ingest

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"strings"
)

// SitemapLoader discovers source URLs from a sitemap.xml, following one level
// of sitemap-index indirection.
type SitemapLoader struct {
	fetcher Fetcher
}

func NewSitemapLoader(f Fetcher) *SitemapLoader {
	return &SitemapLoader{fetcher: f}
}

type sitemapURLSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

type sitemapIndex struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

// Load fetches and parses the sitemap at sitemapURL and returns the page URLs
// it lists, de-duplicated, in document order.
func (l *SitemapLoader) Load(ctx context.Context, sitemapURL string) ([]string, error) {
	doc, err := l.fetcher.Fetch(ctx, sitemapURL)
	if err != nil {
		return nil, fmt.Errorf("fetch sitemap %s: %w", sitemapURL, err)
	}

	urls, nested, err := parseSitemap(doc.RawMarkup)
	if err != nil {
		return nil, fmt.Errorf("parse sitemap %s: %w", sitemapURL, err)
	}

	for _, child := range nested {
		childDoc, err := l.fetcher.Fetch(ctx, child)
		if err != nil {
			slog.WarnContext(ctx, "failed to fetch nested sitemap", "url", child, "error", err)
			continue
		}
		childURLs, _, err := parseSitemap(childDoc.RawMarkup)
		if err != nil {
			slog.WarnContext(ctx, "failed to parse nested sitemap", "url", child, "error", err)
			continue
		}
		urls = append(urls, childURLs...)
	}

	seen := make(map[string]bool, len(urls))
	deduped := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		deduped = append(deduped, u)
	}

	slog.InfoContext(ctx, "loaded sitemap", "url", sitemapURL, "urls", len(deduped))
	return deduped, nil
}

func parseSitemap(content string) (urls []string, nested []string, err error) {
	// The element name, not the entry count, decides whether the document is a
	// sitemap. A site with no pages yet serves a valid empty urlset.
	var set sitemapURLSet
	if err := xml.Unmarshal([]byte(content), &set); err == nil && set.XMLName.Local == "urlset" {
		for _, u := range set.URLs {
			urls = append(urls, u.Loc)
		}
		return urls, nil, nil
	}

	var index sitemapIndex
	if err := xml.Unmarshal([]byte(content), &index); err == nil && index.XMLName.Local == "sitemapindex" {
		for _, s := range index.Sitemaps {
			nested = append(nested, strings.TrimSpace(s.Loc))
		}
		return nil, nested, nil
	}

	return nil, nil, fmt.Errorf("not a recognizable sitemap document")
}
