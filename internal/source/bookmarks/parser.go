// Package bookmarks reads browser bookmark exports in the Netscape HTML format.
package bookmarks

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

const netscapeMarker = "NETSCAPE-Bookmark-file"

// Link is one bookmarked URL.
type Link struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// IsBookmarksDocument reports whether doc looks like a bookmarks export:
// it carries the Netscape bookmark-file marker, or both <DT> and <A HREF= markers.
func IsBookmarksDocument(doc string) bool {
	if strings.Contains(doc, netscapeMarker) {
		return true
	}
	upper := strings.ToUpper(doc)
	return strings.Contains(upper, "<DT>") && strings.Contains(upper, "<A HREF=")
}

// Parse returns every anchor with an absolute http(s) href, deduplicated by URL.
// The first occurrence keeps its position and title.
func Parse(doc string) []Link {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var links []Link
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if href := absoluteHTTP(attr(n, "href")); href != "" {
				if _, dup := seen[href]; !dup {
					seen[href] = struct{}{}
					links = append(links, Link{URL: href, Title: textContent(n)})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return links
}

func absoluteHTTP(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil || u.Host == "" {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return href
	}
	return ""
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
