// internal/browser/selector.go
package browser

import (
	"fmt"
	"strings"
)

// SelectorKind tells drivers how to resolve a Selector.
type SelectorKind int

const (
	KindCSS SelectorKind = iota
	KindText
)

// Selector identifies DOM elements either by a CSS query or by an element tag
// whose text contains a given string.
type Selector struct {
	Kind  SelectorKind
	Query string
	Tag   string
	Text  string
}

// CSS returns a selector for a CSS query.
func CSS(query string) Selector {
	return Selector{Kind: KindCSS, Query: query}
}

// Text returns a selector for a tag whose normalized text contains text.
// An empty tag matches any element.
func Text(tag, text string) Selector {
	return Selector{Kind: KindText, Tag: tag, Text: text}
}

func (s Selector) tag() string {
	if s.Tag == "" {
		return "*"
	}
	return s.Tag
}

const (
	upperASCII = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerASCII = "abcdefghijklmnopqrstuvwxyz"
)

// needle is the form of Text the XPath compares against: whitespace runs
// collapsed and ASCII letters lowered, matching how the page text is folded.
func (s Selector) needle() string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, strings.Join(strings.Fields(s.Text), " "))
}

// XPath renders a text selector as an XPath expression. The match ignores
// ASCII case and collapses whitespace. CSS selectors have no XPath form and
// return an empty string.
func (s Selector) XPath() string {
	if s.Kind != KindText {
		return ""
	}
	return fmt.Sprintf("//%s[contains(translate(normalize-space(.), '%s', '%s'), %s)]",
		s.tag(), upperASCII, lowerASCII, xpathLiteral(s.needle()))
}

// String renders the selector the way it is shown in progress and error messages.
func (s Selector) String() string {
	if s.Kind == KindText {
		return fmt.Sprintf("%s:has-text('%s')", s.tag(), s.Text)
	}
	return s.Query
}

// xpathLiteral quotes v as an XPath 1.0 string literal. XPath has no escape
// sequences, so a value holding both quote kinds is built with concat().
func xpathLiteral(v string) string {
	if !strings.Contains(v, "'") {
		return "'" + v + "'"
	}
	if !strings.Contains(v, `"`) {
		return `"` + v + `"`
	}

	parts := strings.Split(v, "'")
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = "'" + p + "'"
	}
	return "concat(" + strings.Join(quoted, `, "'", `) + ")"
}
