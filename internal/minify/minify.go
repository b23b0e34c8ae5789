package minify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
)

var m *minify.M

func init() {
	m = minify.New()
	m.Add("text/html", &html.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
		KeepQuotes:       true,
	})
	m.AddFunc("text/css", css.Minify)
	m.AddFuncRegexp(regexp.MustCompile("^(application|text)/(x-)?(java|ecma)script$"), js.Minify)
}

// Document minifies a full HTML document, inlined CSS and JS included.
// Used to shrink the current page markup before it goes into an edit
// prompt.
func Document(htmlText string) (string, error) {
	out, err := m.String("text/html", htmlText)
	if err != nil {
		return "", err
	}
	return out, nil
}

var commentRe = regexp.MustCompile(`(?s)<!--.*?-->`)

// StripComments replaces developer comments with short numbered
// placeholders and returns the replacements keyed by placeholder.
// Conditional comments are left alone. The model is told to keep
// placeholders in place so RestoreComments can put the originals back
// after generation.
func StripComments(htmlText string) (string, map[string]string) {
	saved := map[string]string{}
	n := 0
	out := commentRe.ReplaceAllStringFunc(htmlText, func(comment string) string {
		if strings.HasPrefix(comment, "<!--[") {
			return comment
		}
		placeholder := fmt.Sprintf("<!--note:%d-->", n)
		saved[placeholder] = comment
		n++
		return placeholder
	})
	return out, saved
}

// RestoreComments swaps surviving placeholders back to their original
// comments. Placeholders the model dropped stay dropped.
func RestoreComments(htmlText string, saved map[string]string) string {
	for placeholder, comment := range saved {
		htmlText = strings.ReplaceAll(htmlText, placeholder, comment)
	}
	return htmlText
}
