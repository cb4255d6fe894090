// Package richtext turns the admin-editable hints and footer content into a
// sanitized HTML fragment. Input is either raw HTML or a restricted markdown
// dialect; output only ever contains allow-listed tags.
package richtext

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

var allowedTags = map[string]bool{
	"strong": true,
	"b":      true,
	"em":     true,
	"h1":     true,
	"h2":     true,
	"h3":     true,
	"ul":     true,
	"ol":     true,
	"li":     true,
	"p":      true,
	"br":     true,
	"a":      true,
}

var (
	lineBreakRe    = regexp.MustCompile(`\r\n|\r|\n`)
	headingRe      = regexp.MustCompile(`^(#{1,3})\s+(.*)$`)
	listItemRe     = regexp.MustCompile(`^[-*]\s+(.*)$`)
	boldRe         = regexp.MustCompile(`\*\*(.+?)\*\*`)
	linkRe         = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	safeURLRe      = regexp.MustCompile(`(?i)^(mailto:|https?://)`)
	tagRe          = regexp.MustCompile(`(?s)<[^>]*>`)
	tagNameRe      = regexp.MustCompile(`^</?\s*([a-zA-Z][a-zA-Z0-9]*)`)
	hrefDoubleRe   = regexp.MustCompile(`(?i)href\s*=\s*"([^"]*)"`)
	hrefSingleRe   = regexp.MustCompile(`(?i)href\s*=\s*'([^']*)'`)
	closingSlashRe = regexp.MustCompile(`^<\s*/`)
)

// Render converts content to a sanitized HTML fragment. Content holding both
// '<' and '>' is treated as raw HTML, anything else as restricted markdown.
func Render(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ""
	}

	var rendered string
	if strings.Contains(trimmed, "<") && strings.Contains(trimmed, ">") {
		rendered = trimmed
	} else {
		rendered = convertMarkdown(trimmed)
	}

	return sanitize(rendered)
}

func convertMarkdown(text string) string {
	var parts []string
	inList := false

	closeList := func() {
		if inList {
			parts = append(parts, "</ul>")
			inList = false
		}
	}

	for _, line := range lineBreakRe.Split(text, -1) {
		line = strings.TrimSpace(line)

		if line == "" {
			closeList()
			continue
		}

		if m := headingRe.FindStringSubmatch(line); m != nil {
			closeList()
			level := len(m[1])
			parts = append(parts, fmt.Sprintf("<h%d>%s</h%d>", level, parseInline(m[2]), level))
			continue
		}

		if m := listItemRe.FindStringSubmatch(line); m != nil {
			if !inList {
				parts = append(parts, "<ul>")
				inList = true
			}
			parts = append(parts, fmt.Sprintf("<li>%s</li>", parseInline(m[1])))
			continue
		}

		closeList()
		parts = append(parts, fmt.Sprintf("<p>%s</p>", parseInline(line)))
	}

	closeList()

	return strings.Join(parts, "\n")
}

func parseInline(text string) string {
	escaped := html.EscapeString(text)
	escaped = boldRe.ReplaceAllString(escaped, "<strong>$1</strong>")

	return linkRe.ReplaceAllStringFunc(escaped, func(match string) string {
		m := linkRe.FindStringSubmatch(match)
		label, url := m[1], m[2]
		if !safeURLRe.MatchString(url) {
			// Unsafe scheme: drop the link markup, keep the label.
			return label
		}
		return fmt.Sprintf(`<a href="%s">%s</a>`, url, label)
	})
}

// sanitize strips every tag outside the allow-list, drops all attributes from
// allowed tags, and keeps an <a> href only when its URL scheme is safe.
func sanitize(content string) string {
	return tagRe.ReplaceAllStringFunc(content, func(tag string) string {
		m := tagNameRe.FindStringSubmatch(tag)
		if m == nil {
			return ""
		}

		name := strings.ToLower(m[1])
		if !allowedTags[name] {
			return ""
		}

		if closingSlashRe.MatchString(tag) {
			return "</" + name + ">"
		}

		if name == "a" {
			if href, ok := extractHref(tag); ok && safeURLRe.MatchString(href) {
				return fmt.Sprintf(`<a href="%s">`, html.EscapeString(href))
			}
			return "<a>"
		}

		return "<" + name + ">"
	})
}

func extractHref(tag string) (string, bool) {
	if m := hrefDoubleRe.FindStringSubmatch(tag); m != nil {
		return m[1], true
	}
	if m := hrefSingleRe.FindStringSubmatch(tag); m != nil {
		return m[1], true
	}
	return "", false
}
