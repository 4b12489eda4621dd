// Package export renders a thread transcript as Markdown or HTML.
package export

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/iyunix/oni-chat/internal/domain"
)

// Format is a transcript output format.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
)

// ParseFormat accepts "md", "markdown" and "html"; empty means Markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unsupported transcript format %q", s)
	}
}

// ContentType is the HTTP content type for f.
func (f Format) ContentType() string {
	if f == FormatHTML {
		return "text/html; charset=utf-8"
	}
	return "text/markdown; charset=utf-8"
}

// Raw HTML in message content is dropped, never rendered.
var renderer = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
)

func speaker(role domain.Role) string {
	switch role {
	case domain.RoleUser:
		return "You"
	case domain.RoleAssistant:
		return "OniAI"
	default:
		return string(role)
	}
}

// Markdown renders the thread title followed by each message in order.
func Markdown(thread *domain.Thread) string {
	var b strings.Builder
	title := thread.Title
	if title == "" {
		title = domain.DefaultThreadTitle
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if !thread.UpdatedAt.IsZero() {
		fmt.Fprintf(&b, "_Updated %s_\n\n", thread.UpdatedAt.UTC().Format(time.RFC3339))
	}
	for _, m := range thread.Messages {
		fmt.Fprintf(&b, "### %s\n\n%s\n\n", speaker(m.Role), strings.TrimSpace(m.Content))
	}
	return b.String()
}

// HTML renders the Markdown transcript into a standalone HTML document.
func HTML(thread *domain.Thread) (string, error) {
	var body bytes.Buffer
	if err := renderer.Convert([]byte(Markdown(thread)), &body); err != nil {
		return "", fmt.Errorf("render transcript: %w", err)
	}

	title := thread.Title
	if title == "" {
		title = domain.DefaultThreadTitle
	}

	var doc strings.Builder
	doc.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&doc, "<title>%s</title>\n", html.EscapeString(title))
	doc.WriteString("</head>\n<body>\n")
	doc.Write(body.Bytes())
	doc.WriteString("</body>\n</html>\n")
	return doc.String(), nil
}

// Render dispatches on f.
func Render(thread *domain.Thread, f Format) (string, error) {
	if f == FormatHTML {
		return HTML(thread)
	}
	return Markdown(thread), nil
}
