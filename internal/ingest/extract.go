// Package ingest turns product files and pages into chunks ready to be
// embedded and stored.
package ingest

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	pdf "github.com/dslipak/pdf"
	"golang.org/x/net/html"
)

// IsSupported reports whether the importer can read the file.
func IsSupported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".txt", ".html", ".htm", ".pdf":
		return true
	}
	return false
}

// ExtractFile returns the plain text of a supported file.
func ExtractFile(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err := extractTextFromPDF(path)
		if err != nil {
			return "", fmt.Errorf("read pdf %s: %w", path, err)
		}
		return text, nil
	case ".html", ".htm":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return SanitizeUTF8(ExtractMainText(string(data))), nil
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return SanitizeUTF8(strings.TrimSpace(string(data))), nil
	}
}

func extractTextFromPDF(path string) (string, error) {
	r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}

	reader, err := r.GetPlainText()
	if err != nil {
		return "", err
	}

	buf := bytes.NewBuffer(nil)
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", err
	}

	return SanitizeUTF8(strings.TrimSpace(buf.String())), nil
}

// ExtractMainText returns the visible text of an HTML page, one text node per
// line, without script and style content.
func ExtractMainText(htmlStr string) string {
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return ""
	}

	var b strings.Builder
	var walk func(*html.Node, bool)

	walk = func(n *html.Node, skip bool) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				skip = true
			}
		}

		if n.Type == html.TextNode && !skip {
			if t := strings.TrimSpace(n.Data); len(t) > 1 {
				b.WriteString(t)
				b.WriteString("\n")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, skip)
		}
	}
	walk(doc, false)

	return strings.TrimSpace(b.String())
}

// ExtractLinks returns the distinct same-host page links of an HTML page,
// without fragments or query strings, skipping static assets.
func ExtractLinks(htmlStr string, base *url.URL) []string {
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var out []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, a := range n.Attr {
				if a.Key != "href" {
					continue
				}
				if link, ok := resolveLink(a.Val, base); ok && !seen[link] {
					seen[link] = true
					out = append(out, link)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return out
}

func resolveLink(href string, base *url.URL) (string, bool) {
	h := strings.TrimSpace(href)
	if h == "" || strings.HasPrefix(h, "#") {
		return "", false
	}
	u, err := url.Parse(h)
	if err != nil {
		return "", false
	}
	u = base.ResolveReference(u)
	if u.Host != base.Host {
		return "", false
	}
	switch strings.ToLower(filepath.Ext(u.Path)) {
	case ".css", ".js", ".png", ".jpg", ".jpeg", ".svg", ".gif", ".webp", ".ico":
		return "", false
	}
	return u.Scheme + "://" + u.Host + u.Path, true
}

// FilenameToTitle turns "red-running-shoes.md" into "red running shoes".
func FilenameToTitle(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.ReplaceAll(base, "-", " ")
	base = strings.ReplaceAll(base, "_", " ")
	return strings.TrimSpace(base)
}

// URLToTitle derives a title from the last path segment of raw.
func URLToTitle(raw string, base *url.URL) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if u.Path == base.Path || u.Path == base.Path+"/" || strings.Trim(u.Path, "/") == "" {
		return "Overview"
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	last := parts[len(parts)-1]
	last = strings.SplitN(last, ".", 2)[0]
	last = strings.ReplaceAll(last, "-", " ")
	return strings.TrimSpace(last)
}

// SanitizeUTF8 drops bytes that are not valid UTF-8.
func SanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError && size == 1 {
			s = s[1:]
			continue
		}
		b.WriteRune(r)
		s = s[size:]
	}
	return b.String()
}
