package models

// ScrapedContent is the fixed shape returned by the strategy page
// fetcher: page title, a bounded body excerpt, list-item tips and the
// source URL.
type ScrapedContent struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tips    []string `json:"tips"`
	URL     string   `json:"url"`
}
