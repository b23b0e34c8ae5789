package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// voidTags never take a closing tag; the unclosed-tag heuristic skips
// them.
var voidTags = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// StaticCheck runs the browser-free structural checks on generated
// markup: navigation to other HTML documents, externally-hosted
// stylesheets/scripts, and unclosed non-void tags.
func StaticCheck(htmlText string) []string {
	var issues []string
	issues = append(issues, checkNavigation(htmlText)...)
	issues = append(issues, checkExternalAssets(htmlText)...)
	issues = append(issues, checkUnclosedTags(htmlText)...)
	return issues
}

// checkNavigation flags anchors and meta refreshes that point at other
// HTML documents, which break the single-file constraint.
func checkNavigation(htmlText string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return nil
	}

	var issues []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		trimmed := strings.ToLower(strings.TrimSpace(href))
		if trimmed == "" || strings.HasPrefix(trimmed, "#") ||
			strings.HasPrefix(trimmed, "javascript:") ||
			strings.HasPrefix(trimmed, "mailto:") ||
			strings.HasPrefix(trimmed, "tel:") {
			return
		}
		base := trimmed
		if i := strings.IndexAny(base, "?#"); i >= 0 {
			base = base[:i]
		}
		if strings.HasSuffix(base, ".html") || strings.HasSuffix(base, ".htm") {
			issues = append(issues, fmt.Sprintf("link to another HTML document: %s", href))
		}
	})

	doc.Find("meta[http-equiv]").Each(func(_ int, s *goquery.Selection) {
		equiv, _ := s.Attr("http-equiv")
		if strings.EqualFold(strings.TrimSpace(equiv), "refresh") {
			content, _ := s.Attr("content")
			issues = append(issues, fmt.Sprintf("meta refresh redirect: %s", content))
		}
	})

	return issues
}

// checkExternalAssets flags stylesheet and script references hosted off
// the page; the generated document must carry all assets inline.
func checkExternalAssets(htmlText string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return nil
	}

	var issues []string
	doc.Find("link[rel='stylesheet'][href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if isExternalURL(href) {
			issues = append(issues, fmt.Sprintf("externally-hosted stylesheet: %s", href))
		}
	})
	doc.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if isExternalURL(src) {
			issues = append(issues, fmt.Sprintf("externally-hosted script: %s", src))
		}
	})

	return issues
}

func isExternalURL(u string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(u))
	return strings.HasPrefix(trimmed, "http://") ||
		strings.HasPrefix(trimmed, "https://") ||
		strings.HasPrefix(trimmed, "//")
}

// checkUnclosedTags tokenizes the markup and counts opens against closes
// per non-void tag name. A heuristic: browsers repair a lot of this, but
// a mismatch is a strong signal the model truncated its output.
func checkUnclosedTags(htmlText string) []string {
	depth := map[string]int{}
	z := html.NewTokenizer(strings.NewReader(htmlText))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		name, _ := z.TagName()
		tag := strings.ToLower(string(name))
		if tag == "" || voidTags[tag] {
			continue
		}
		switch tt {
		case html.StartTagToken:
			depth[tag]++
		case html.EndTagToken:
			depth[tag]--
		}
	}

	tags := make([]string, 0, len(depth))
	for tag, n := range depth {
		if n > 0 {
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)

	var issues []string
	for _, tag := range tags {
		issues = append(issues, fmt.Sprintf("unclosed <%s> tag (%d unmatched)", tag, depth[tag]))
	}
	return issues
}
