package extract

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// VideoPlaceholder replaces session-bound media embeds. A blob: source only
// exists inside the browser session that produced it, so the reference is
// useless once persisted.
const VideoPlaceholder = "[Embedded video: not directly extractable]"

// Result is the cleaned representation of one fetched page.
type Result struct {
	Title     string
	Markdown  string
	CrawledAt time.Time
}

// Extractor turns raw page markup into a title plus heading-preserving
// markdown. It is a pure transform: parse failures degrade to emitting the
// raw input as text, never to an error.
type Extractor struct {
	siteRoot        string
	contentRootID   string
	removeSelectors []string
	conv            *md.Converter
}

func New(siteRoot, contentRootID string, removeSelectors []string) *Extractor {
	return &Extractor{
		siteRoot:        strings.TrimRight(siteRoot, "/"),
		contentRootID:   contentRootID,
		removeSelectors: removeSelectors,
		conv:            md.NewConverter("", true, nil),
	}
}

// Extract cleans rawHTML and converts it to markdown.
func (e *Extractor) Extract(rawHTML string, capturedAt time.Time) Result {
	res := Result{CrawledAt: capturedAt}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		slog.Debug("markup parse failed, emitting raw input", "error", err)
		res.Markdown = rawHTML
		return res
	}

	res.Title = strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")

	for _, sel := range e.removeSelectors {
		doc.Find(sel).Remove()
	}

	content := e.findContentRoot(doc)

	e.rewriteAssets(content)
	e.replaceMedia(content)

	markdown := strings.TrimSpace(e.conv.Convert(content))
	if markdown == "" {
		res.Markdown = rawHTML
		return res
	}

	res.Markdown = markdown
	return res
}

// findContentRoot walks the fallback chain: named main element, named div
// container, document body, whole document. The first that exists wins.
func (e *Extractor) findContentRoot(doc *goquery.Document) *goquery.Selection {
	for _, sel := range []string{"main#" + e.contentRootID, "div#" + e.contentRootID, "body"} {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			return s
		}
	}
	return doc.Selection
}

// rewriteAssets absolutizes root-relative image sources against the site root.
func (e *Extractor) rewriteAssets(s *goquery.Selection) {
	s.Find("img").Each(func(_ int, img *goquery.Selection) {
		src, ok := img.Attr("src")
		if ok && strings.HasPrefix(src, "/") {
			img.SetAttr("src", e.siteRoot+src)
		}
	})
}

// replaceMedia swaps non-dereferenceable embeds for textual placeholders.
func (e *Extractor) replaceMedia(s *goquery.Selection) {
	s.Find("video").Each(func(_ int, video *goquery.Selection) {
		src, _ := video.Attr("src")
		if strings.HasPrefix(src, "blob:") {
			video.ReplaceWithHtml("<p>" + VideoPlaceholder + "</p>")
		}
	})

	s.Find("iframe").Each(func(_ int, iframe *goquery.Selection) {
		src, _ := iframe.Attr("src")
		if strings.Contains(src, "youtube.com") || strings.Contains(src, "vimeo.com") {
			iframe.ReplaceWithHtml(fmt.Sprintf("<p>[Watch video](%s)</p>", src))
		}
	})
}
