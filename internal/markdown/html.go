package markdown

import (
	"strings"

	"golang.org/x/net/html"
)

// scanHTMLRefs extracts references from raw HTML embedded in a Markdown
// line: <a href=...> becomes a link reference and <img src=...> an image
// reference. The tokenizer runs on the line fragment; the attribute value
// is then located in the line text to recover exact columns.
func scanHTMLRefs(ln sourceLine, file string, mask []bool) []Reference {
	line := ln.text
	if !strings.Contains(line, "<") {
		return nil
	}

	var refs []Reference
	searchFrom := 0

	tz := html.NewTokenizer(strings.NewReader(line))
	for {
		tt := tz.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}

		tok := tz.Token()
		var kind Kind
		var attr string
		switch tok.Data {
		case "a":
			kind, attr = KindLink, "href"
		case "img":
			kind, attr = KindImage, "src"
		default:
			continue
		}

		val := htmlAttr(tok, attr)
		if val == "" {
			continue
		}

		col := strings.Index(line[searchFrom:], val)
		if col == -1 {
			continue
		}
		col += searchFrom
		searchFrom = col + len(val)

		if spanMasked(mask, col, col+len(val)) {
			continue
		}

		refs = append(refs, newReference(kind, val, val, file, ln, col, col+len(val)))
	}

	return refs
}

func htmlAttr(tok html.Token, key string) string {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
