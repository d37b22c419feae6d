package phone

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Strategy pulls raw phone candidates out of a revealed panel document.
// Candidates are returned in document order; normalization and dedup are the
// caller's job so the chain stays pure.
type Strategy struct {
	Name    string
	Extract func(doc *goquery.Document) []string
}

// Chain returns the ordered strategies for a revealed panel, tried until one
// of them produces an acceptable number: a structured tel: link first, then
// emphasized text, then a free-text pattern search.
func Chain(p Policy) []Strategy {
	pattern := p.Pattern()

	return []Strategy{
		{
			Name: "tel-link",
			Extract: func(doc *goquery.Document) []string {
				var out []string
				doc.Find(`a[href^="tel:"]`).Each(func(_ int, sel *goquery.Selection) {
					href, _ := sel.Attr("href")
					raw := strings.TrimSpace(strings.TrimPrefix(href, "tel:"))
					if raw != "" {
						out = append(out, raw)
					}
				})
				return out
			},
		},
		{
			Name: "bold-text",
			Extract: func(doc *goquery.Document) []string {
				var out []string
				doc.Find("b, strong").Each(func(_ int, sel *goquery.Selection) {
					if text := strings.TrimSpace(sel.Text()); text != "" {
						out = append(out, text)
					}
				})
				return out
			},
		},
		{
			Name: "free-text",
			Extract: func(doc *goquery.Document) []string {
				return pattern.FindAllString(doc.Text(), -1)
			},
		},
	}
}

// ParsePanel parses revealed panel markup for use with the strategy chain.
func ParsePanel(html string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}
