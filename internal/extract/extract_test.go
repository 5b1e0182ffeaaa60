package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestExtractor() *Extractor {
	return New("https://www.example.org", "pageContent", []string{".siteNav", "script", "style", "noscript"})
}

func TestExtract_TitleAndHeadings(t *testing.T) {
	e := newTestExtractor()
	html := `<html><head><title>  About   Us </title></head><body>
		<main id="pageContent"><h1>About</h1><p>Founded in 1891.</p></main>
	</body></html>`

	res := e.Extract(html, testTime)
	assert.Equal(t, "About Us", res.Title)
	assert.Contains(t, res.Markdown, "# About")
	assert.Contains(t, res.Markdown, "Founded in 1891.")
	assert.Equal(t, testTime, res.CrawledAt)
}

func TestExtract_RemovesBoilerplate(t *testing.T) {
	e := newTestExtractor()
	html := `<html><body>
		<div class="siteNav"><a href="/a">Nav Link</a></div>
		<script>alert(1)</script>
		<main id="pageContent"><p>Real content.</p></main>
	</body></html>`

	res := e.Extract(html, testTime)
	assert.Contains(t, res.Markdown, "Real content.")
	assert.NotContains(t, res.Markdown, "Nav Link")
	assert.NotContains(t, res.Markdown, "alert")
}

func TestExtract_FallbackChain(t *testing.T) {
	e := newTestExtractor()

	t.Run("main element wins", func(t *testing.T) {
		html := `<html><body><p>outside</p><main id="pageContent"><p>inside main</p></main></body></html>`
		res := e.Extract(html, testTime)
		assert.Contains(t, res.Markdown, "inside main")
		assert.NotContains(t, res.Markdown, "outside")
	})

	t.Run("div container next", func(t *testing.T) {
		html := `<html><body><p>outside</p><div id="pageContent"><p>inside div</p></div></body></html>`
		res := e.Extract(html, testTime)
		assert.Contains(t, res.Markdown, "inside div")
		assert.NotContains(t, res.Markdown, "outside")
	})

	t.Run("body fallback", func(t *testing.T) {
		html := `<html><body><p>plain body text</p></body></html>`
		res := e.Extract(html, testTime)
		assert.Contains(t, res.Markdown, "plain body text")
	})
}

func TestExtract_RewritesRootRelativeImages(t *testing.T) {
	e := newTestExtractor()
	html := `<html><body><main id="pageContent">
		<img src="/images/campus.jpg" alt="Campus">
		<img src="https://cdn.example.net/x.png" alt="CDN">
	</main></body></html>`

	res := e.Extract(html, testTime)
	assert.Contains(t, res.Markdown, "https://www.example.org/images/campus.jpg")
	assert.Contains(t, res.Markdown, "https://cdn.example.net/x.png")
}

func TestExtract_BlobVideoPlaceholder(t *testing.T) {
	e := newTestExtractor()
	html := `<html><body><main id="pageContent">
		<video src="blob:https://www.example.org/abc-123"></video>
		<p>After the video.</p>
	</main></body></html>`

	res := e.Extract(html, testTime)
	assert.Contains(t, res.Markdown, VideoPlaceholder)
	assert.NotContains(t, res.Markdown, "blob:")
}

func TestExtract_VideoIframeBecomesLink(t *testing.T) {
	e := newTestExtractor()

	t.Run("youtube", func(t *testing.T) {
		html := `<html><body><main id="pageContent"><iframe src="https://www.youtube.com/embed/xyz"></iframe></main></body></html>`
		res := e.Extract(html, testTime)
		assert.Contains(t, res.Markdown, "[Watch video](https://www.youtube.com/embed/xyz)")
	})

	t.Run("vimeo", func(t *testing.T) {
		html := `<html><body><main id="pageContent"><iframe src="https://player.vimeo.com/video/1"></iframe></main></body></html>`
		res := e.Extract(html, testTime)
		assert.Contains(t, res.Markdown, "[Watch video](https://player.vimeo.com/video/1)")
	})

	t.Run("other iframes untouched", func(t *testing.T) {
		html := `<html><body><main id="pageContent"><iframe src="https://maps.example.com/embed"></iframe><p>text</p></main></body></html>`
		res := e.Extract(html, testTime)
		assert.NotContains(t, res.Markdown, "[Watch video]")
	})
}

func TestExtract_EmptyInputFallsBackToRaw(t *testing.T) {
	e := newTestExtractor()
	raw := "just some plain text, not markup"
	res := e.Extract(raw, testTime)
	assert.Contains(t, res.Markdown, "just some plain text")
}

func TestExtract_TitledPageWithEmptyBodyFallsBackToRaw(t *testing.T) {
	e := newTestExtractor()
	// The selectors strip the entire body; the title alone must not
	// suppress the raw-input fallback.
	raw := `<html><head><title>Only A Title</title></head><body><div class="siteNav">Home | About</div></body></html>`
	res := e.Extract(raw, testTime)
	assert.Equal(t, "Only A Title", res.Title)
	assert.Equal(t, raw, res.Markdown)
}
