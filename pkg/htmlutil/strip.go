package htmlutil

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// blockElements start a new line when opened or closed so that paragraph
// structure survives tag stripping.
var blockElements = map[atom.Atom]bool{
	atom.P:          true,
	atom.Div:        true,
	atom.Br:         true,
	atom.Li:         true,
	atom.Ul:         true,
	atom.Ol:         true,
	atom.Blockquote: true,
	atom.H1:         true,
	atom.H2:         true,
	atom.H3:         true,
	atom.H4:         true,
	atom.H5:         true,
	atom.H6:         true,
	atom.Tr:         true,
}

// StripTags reduces an HTML fragment (as commonly found in OPF and EPUB
// descriptions) to plain text. Entities are decoded, script and style
// content is dropped, runs of whitespace collapse to one space, and block
// elements become line breaks.
func StripTags(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	skip := 0
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		tok := z.Token()
		switch tt {
		case html.TextToken:
			if skip == 0 {
				b.WriteString(tok.Data)
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			if tok.DataAtom == atom.Script || tok.DataAtom == atom.Style {
				if tt == html.StartTagToken {
					skip++
				}
				continue
			}
			if blockElements[tok.DataAtom] {
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			if tok.DataAtom == atom.Script || tok.DataAtom == atom.Style {
				if skip > 0 {
					skip--
				}
				continue
			}
			if blockElements[tok.DataAtom] {
				b.WriteByte('\n')
			}
		}
	}

	var lines []string
	for _, line := range strings.Split(b.String(), "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
