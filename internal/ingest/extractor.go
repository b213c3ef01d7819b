package ingest

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// minWordCount rejects pages whose extracted text is too short to be worth
// embedding (nav shells, redirects, error pages).
const minWordCount = 10

// ReadabilityExtractor derives clean text from raw page markup.
type ReadabilityExtractor struct{}

func NewReadabilityExtractor() *ReadabilityExtractor {
	return &ReadabilityExtractor{}
}

var extractorWhitespaceRe = regexp.MustCompile(`\s+`)

func (e *ReadabilityExtractor) Extract(doc *SourceDocument) (*ExtractedText, error) {
	pageURL, err := url.Parse(doc.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", doc.URL, err)
	}

	article, err := readability.FromReader(strings.NewReader(doc.RawMarkup), pageURL)
	if err != nil {
		return nil, fmt.Errorf("extract content from %s: %w", doc.URL, err)
	}

	cleanText := strings.TrimSpace(extractorWhitespaceRe.ReplaceAllString(article.TextContent, " "))
	wordCount := len(strings.Fields(cleanText))
	if wordCount < minWordCount {
		return nil, fmt.Errorf("content too short for %s: %d words", doc.URL, wordCount)
	}

	return &ExtractedText{
		URL:       doc.URL,
		CleanText: cleanText,
		Title:     strings.TrimSpace(article.Title),
		WordCount: wordCount,
	}, nil
}
