// Package redirect builds the commerce search links handed to users.
package redirect

import (
	"net/url"
	"strings"
)

const (
	// AffiliateTag is appended to every outbound search URL. It is never
	// taken from user input.
	AffiliateTag = "chop07c-20"

	SearchBase = "https://www.amazon.com/s"

	// GoPath is the internal redirect endpoint served by the HTTP edge.
	GoPath = "/go"
)

// SearchURL returns the affiliate search URL for label. An empty label
// yields the bare search page, still tagged.
func SearchURL(label string) string {
	return SearchBase + "?k=" + escape(label) + "&tag=" + escape(AffiliateTag)
}

// ButtonURL returns the internal redirect link for label rooted at baseURL.
// Buttons point here rather than at SearchURL so the final target can change
// without touching messages that were already sent.
func ButtonURL(baseURL, label string) string {
	return strings.TrimRight(baseURL, "/") + GoPath + "?q=" + escape(label)
}

// stopWords are shopping filler dropped from typed queries.
var stopWords = map[string]bool{
	"buy": true, "cheap": true, "best": true, "price": true,
	"amazon": true, "online": true, "shop": true,
}

// CleanQuery normalizes a typed product query: lower case, anything outside
// [a-z0-9 ] becomes a space, stop words are dropped and runs of spaces collapse.
func CleanQuery(text string) string {
	text = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return ' '
	}, strings.ToLower(text))

	words := make([]string, 0, 8)
	for _, w := range strings.Fields(text) {
		if !stopWords[w] {
			words = append(words, w)
		}
	}
	return strings.Join(words, " ")
}

// escape encodes s for use as a single query value, with spaces as %20.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
