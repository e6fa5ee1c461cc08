package extract

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"github.com/pario-ai/briefbench/pkg/config"
)

// ErrNoText is returned when a page yields no visible text.
var ErrNoText = errors.New("no text content")

// Extractor turns an HTML page into plain text.
type Extractor interface {
	Extract(rawURL string, html []byte) (string, error)
}

// New returns the extractor registered under name.
func New(name string) (Extractor, error) {
	switch name {
	case "", config.ExtractorText:
		return Text{}, nil
	case config.ExtractorReadability:
		return Readability{}, nil
	default:
		return nil, fmt.Errorf("unknown extractor %q", name)
	}
}

// Text returns every visible text node of the page, trimmed and joined
// by single spaces.
type Text struct{}

// Extract implements Extractor.
func (Text) Extract(_ string, html []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("create document from reader: %w", err)
	}
	text := visibleText(doc.Selection)
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

// Readability keeps only the main article body as detected by go-readability.
type Readability struct{}

// Extract implements Extractor.
func (Readability) Extract(rawURL string, html []byte) (string, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	rp := readability.NewParser()
	article, err := rp.Parse(bytes.NewReader(html), pageURL)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}

	// Pages readability cannot score fall back to the whole document.
	if strings.TrimSpace(article.Content) == "" {
		return Text{}.Extract(rawURL, html)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return "", fmt.Errorf("create document from reader: %w", err)
	}
	text := visibleText(doc.Selection)
	if title := strings.TrimSpace(article.Title); title != "" && !strings.HasPrefix(text, title) {
		text = strings.TrimSpace(title + " " + text)
	}
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

func visibleText(sel *goquery.Selection) string {
	sel.Find("script, style, noscript, template").Remove()

	var parts []string
	var walk func(*goquery.Selection)
	walk = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, c *goquery.Selection) {
			if goquery.NodeName(c) == "#text" {
				if t := strings.TrimSpace(c.Text()); t != "" {
					parts = append(parts, t)
				}
				return
			}
			walk(c)
		})
	}
	walk(sel)
	return strings.Join(parts, " ")
}
