package ingest

import (
	"strings"
	"testing"
)

const samplePage = `<!DOCTYPE html>
<html><head><title>t</title><style>body{color:red}</style></head>
<body>
<h1>Welcome</h1>
<p>First paragraph.</p>
<p>Second paragraph.</p>
<ul><li>Item one</li><li>Item two</li></ul>
<script>console.log("hidden")</script>
</body></html>`

func TestExtractDOMChunksFindsBlocks(t *testing.T) {
	chunks, err := ExtractDOMChunks(samplePage)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	var texts []string
	for _, c := range chunks {
		texts = append(texts, c.Text)
	}
	for _, want := range []string{"Welcome", "First paragraph.", "Item two"} {
		found := false
		for _, text := range texts {
			if text == want {
				found = true
			}
		}
		if !found {
			t.Fatalf("missing block %q in %v", want, texts)
		}
	}
}

func TestExtractDOMChunksStripsScriptAndStyle(t *testing.T) {
	chunks, err := ExtractDOMChunks(samplePage)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	for _, c := range chunks {
		if strings.Contains(c.Text, "hidden") || strings.Contains(c.Text, "color:red") {
			t.Fatalf("script/style content leaked into chunk %q", c.Text)
		}
	}
}

func TestExtractDOMChunksPathShape(t *testing.T) {
	chunks, err := ExtractDOMChunks(`<html><body><p>a</p><p>b</p></body></html>`)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	var first, second string
	for _, c := range chunks {
		switch c.Text {
		case "a":
			first = c.Path
		case "b":
			second = c.Path
		}
	}
	if !strings.HasSuffix(first, "p:nth-of-type(1)") {
		t.Fatalf("unexpected path for first paragraph: %q", first)
	}
	if !strings.HasSuffix(second, "p:nth-of-type(2)") {
		t.Fatalf("unexpected path for second paragraph: %q", second)
	}
	if !strings.HasPrefix(first, "html:nth-of-type(1)>body:nth-of-type(1)") {
		t.Fatalf("path should be rooted at html: %q", first)
	}
}

func TestFlatTextDropsMarkup(t *testing.T) {
	text, err := FlatText(samplePage)
	if err != nil {
		t.Fatalf("flat text: %v", err)
	}
	if strings.Contains(text, "<") || strings.Contains(text, "hidden") {
		t.Fatalf("flat text still contains markup or script: %q", text)
	}
	if !strings.Contains(text, "Welcome") || !strings.Contains(text, "Item one") {
		t.Fatalf("flat text missing visible content: %q", text)
	}
}

func TestSlugFromPath(t *testing.T) {
	cases := map[string]string{
		"pages/landing/index.html": "landing",
		"pages/about.html":         "about",
		"deep/dir/pricing.htm":     "pricing",
	}
	for path, want := range cases {
		if got := SlugFromPath(path); got != want {
			t.Fatalf("SlugFromPath(%q) = %q, want %q", path, got, want)
		}
	}
}
