// Package page persists the one-row-per-URL crawl record.
package page

// Page is one crawled URL. A recrawl fully replaces the prior record.
// CrawledAt is UTC epoch seconds.
type Page struct {
	URL       string
	Title     string
	Markdown  string
	CrawledAt int64
}
