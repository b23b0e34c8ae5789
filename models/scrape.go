package models

import "time"

// ScrapedImage is an image reference pulled from a scraped reference site,
// kept with its alt text so generation prompts can place it meaningfully.
type ScrapedImage struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

// ScrapedSite is the design data extracted from a reference URL: enough
// for the generator to follow the site's layout, styling and libraries
// without carrying the full markup around.
type ScrapedSite struct {
	URL         string         `json:"url"`
	Title       string         `json:"title"`
	Headings    []string       `json:"headings"`
	Stylesheets []string       `json:"stylesheets"`
	Scripts     []string       `json:"scripts"`
	Fonts       []string       `json:"fonts"`
	Colors      []string       `json:"colors"`
	Images      []ScrapedImage `json:"images"`
	Text        string         `json:"text"`
	ScrapedAt   time.Time      `json:"scraped_at"`
}
