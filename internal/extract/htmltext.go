package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTMLToText flattens an email body to plain text with collapsed
// whitespace. Non-HTML input passes through with the same whitespace
// normalization, so template matching sees one shape of text.
func HTMLToText(body string) string {
	lower := strings.ToLower(body)
	if !strings.Contains(lower, "<html") && !strings.Contains(lower, "<body") &&
		!strings.Contains(lower, "<div") && !strings.Contains(lower, "<p") &&
		!strings.Contains(lower, "<table") {
		return collapse(body)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return collapse(body)
	}
	doc.Find("script, style, head").Remove()
	return collapse(doc.Text())
}

func collapse(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	return strings.Join(strings.Fields(s), " ")
}
