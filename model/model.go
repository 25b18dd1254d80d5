package model

// PageSummary is the scored summary of one fetched page.
type PageSummary struct {
	Link           string  `json:"link"`
	Title          string  `json:"title"`
	ContentSummary string  `json:"content_summary"`
	InterestScore  float64 `json:"interest_score"`
	// Image is attached after ranking, only for featured summaries.
	Image *Image `json:"image,omitempty"`
}

// Image is a generated illustration for a featured summary.
type Image struct {
	URL       string `json:"url"`
	LocalPath string `json:"local_path"`
	Timestamp string `json:"timestamp"`
	Base64PNG string `json:"base64_png"`
}

// ArticleAbstract is the synthesized introduction of a newsletter.
type ArticleAbstract struct {
	Abstract string `json:"abstract"`
}

// Newsletter is the rendered HTML document and the links it covers.
type Newsletter struct {
	FullNewsletter string   `json:"full_newsletter"`
	Links          []string `json:"links"`
}
