package ingest

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// minDOMChunks is the threshold below which DOM extraction is considered
// too sparse and flat text chunking takes over.
const minDOMChunks = 5

// blockSelector matches the block-level elements worth indexing as
// standalone chunks.
const blockSelector = "p, h1, h2, h3, h4, h5, h6, li, section, article, div"

// DOMChunk is one block of page text with the structural path locating it
// in the source markup.
type DOMChunk struct {
	Path string
	Text string
}

// ExtractDOMChunks pulls text at block level from an HTML document,
// script and style content stripped, each block tagged with a
// tag:nth-of-type(n) path from the root.
func ExtractDOMChunks(htmlText string) ([]DOMChunk, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return nil, err
	}
	doc.Find("script, style").Remove()

	var chunks []DOMChunk
	doc.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		text := normalizeSpace(s.Text())
		if text == "" {
			return
		}
		if len(s.Nodes) == 0 {
			return
		}
		chunks = append(chunks, DOMChunk{
			Path: domPath(s.Nodes[0]),
			Text: text,
		})
	})
	return chunks, nil
}

// FlatText returns the document's visible text, one trimmed line per
// block, for fallback chunking.
func FlatText(htmlText string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return "", err
	}
	doc.Find("script, style").Remove()

	lines := strings.Split(doc.Text(), "\n")
	var kept []string
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n"), nil
}

// domPath builds a css-like locator such as
// html:nth-of-type(1)>body:nth-of-type(1)>div:nth-of-type(2).
func domPath(n *html.Node) string {
	var parts []string
	for cur := n; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		parts = append(parts, fmt.Sprintf("%s:nth-of-type(%d)", cur.Data, nthOfType(cur)))
	}
	// Reverse into root-first order.
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ">")
}

func nthOfType(n *html.Node) int {
	idx := 1
	for sib := n.PrevSibling; sib != nil; sib = sib.PrevSibling {
		if sib.Type == html.ElementNode && sib.Data == n.Data {
			idx++
		}
	}
	return idx
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
