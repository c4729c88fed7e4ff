package engine

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// semanticContainers are the sectioning elements that count as semantic markup
const semanticContainers = "article, section, header, nav, main"

// Document is a parsed, read-only view of a marked-up content document.
// Every feature the extractors need is computed once in Parse.
type Document struct {
	raw   string
	lower string

	h1Count      int
	h2Count      int
	topHeading   string
	anchors      int
	emphasis     int
	hasList      bool
	paragraphs   int
	paragraphLen int
	hasSemantic  bool
	images       int
	imagesAlt    int
	words        int
	text         string
}

// Parse builds a Document from raw markup. It never fails: markup the
// HTML parser cannot read yields a document with no structural elements.
func Parse(content string) *Document {
	d := &Document{
		raw:   content,
		lower: strings.ToLower(content),
	}
	if strings.TrimSpace(content) == "" {
		return d
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return d
	}

	h1 := doc.Find("h1")
	d.h1Count = h1.Length()
	if d.h1Count > 0 {
		d.topHeading = strings.TrimSpace(h1.First().Text())
	}
	d.h2Count = doc.Find("h2").Length()
	d.anchors = doc.Find("a[href]").Length()
	d.emphasis = doc.Find("strong").Length()
	d.hasList = doc.Find("ul, ol").Length() > 0
	d.hasSemantic = doc.Find(semanticContainers).Length() > 0

	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		d.paragraphs++
		d.paragraphLen += utf8.RuneCountInString(s.Text())
	})

	images := doc.Find("img")
	d.images = images.Length()
	images.Each(func(_ int, s *goquery.Selection) {
		if _, exists := s.Attr("alt"); exists {
			d.imagesAlt++
		}
	})

	// Word count covers visible text only
	doc.Find("script, style, noscript").Remove()
	fields := strings.Fields(doc.Text())
	d.words = len(fields)
	d.text = strings.Join(fields, " ")

	return d
}

// WordCount returns the number of words in the visible text
func (d *Document) WordCount() int {
	return d.words
}

// Text returns the visible text with whitespace collapsed
func (d *Document) Text() string {
	return d.text
}

// TopHeading returns the text of the first top-level heading
func (d *Document) TopHeading() string {
	return d.topHeading
}

func (d *Document) containsAny(markers ...string) bool {
	for _, m := range markers {
		if strings.Contains(d.raw, m) {
			return true
		}
	}
	return false
}

// containsFold matches lower-case terms against the lower-cased document
func (d *Document) containsFold(terms ...string) bool {
	for _, t := range terms {
		if strings.Contains(d.lower, t) {
			return true
		}
	}
	return false
}

// meanParagraphLength returns the average paragraph length in runes and
// false when the document has no paragraphs.
func (d *Document) meanParagraphLength() (float64, bool) {
	if d.paragraphs == 0 {
		return 0, false
	}
	return float64(d.paragraphLen) / float64(d.paragraphs), true
}
