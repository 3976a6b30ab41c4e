package browser

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// CleanedHTML is page content reduced to its semantic skeleton,
// suitable for feeding to a model.
type CleanedHTML struct {
	HTML        string
	Title       string
	Description string
	Truncated   bool
}

// cleanHTML parses raw page HTML and rewrites it keeping only the
// structure and attributes a model needs to read and target elements.
// Scripts, styles, and embedded media are dropped entirely.
func cleanHTML(rawHTML string, maxLength int) (*CleanedHTML, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parsing page HTML failed: %w", err)
	}

	c := &htmlCleaner{limit: maxLength}
	c.walk(doc, 0)

	return &CleanedHTML{
		HTML:        c.out.String(),
		Title:       findTitle(doc),
		Description: findMetaDescription(doc),
		Truncated:   c.truncated,
	}, nil
}

type htmlCleaner struct {
	out       strings.Builder
	written   int
	limit     int
	truncated bool
}

func (c *htmlCleaner) walk(n *html.Node, depth int) {
	if c.truncated {
		return
	}

	switch n.Type {
	case html.CommentNode:
		return
	case html.TextNode:
		c.writeText(n.Data)
		return
	case html.ElementNode:
		tag := strings.ToLower(n.Data)
		if droppedTags[tag] {
			return
		}
		c.writeElement(n, tag, depth)
		return
	}

	// Document and fragment nodes just pass through to children.
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.walk(child, depth)
	}
}

func (c *htmlCleaner) writeText(raw string) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return
	}
	if c.written+len(text) > c.limit {
		remaining := c.limit - c.written
		if remaining > 0 {
			c.out.WriteString(text[:remaining])
		}
		c.out.WriteString("...")
		c.written = c.limit
		c.truncated = true
		return
	}
	c.out.WriteString(text)
	c.written += len(text)
}

func (c *htmlCleaner) writeElement(n *html.Node, tag string, depth int) {
	block := blockTags[tag]
	if block && depth > 0 {
		c.out.WriteString("\n")
		c.out.WriteString(strings.Repeat("  ", depth))
	}

	c.out.WriteString("<")
	c.out.WriteString(tag)
	for _, attr := range n.Attr {
		if keepAttribute(tag, attr.Key) {
			fmt.Fprintf(&c.out, ` %s="%s"`, attr.Key, html.EscapeString(attr.Val))
		}
	}
	c.out.WriteString(">")
	c.written += len(tag) + 2

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.walk(child, depth+1)
		if c.truncated {
			break
		}
	}

	if !voidTags[tag] {
		if block {
			c.out.WriteString("\n")
			c.out.WriteString(strings.Repeat("  ", depth))
		}
		fmt.Fprintf(&c.out, "</%s>", tag)
		c.written += len(tag) + 3
	}
}

// droppedTags are removed along with their entire subtree.
var droppedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"embed":    true,
	"object":   true,
	"svg":      true,
}

// blockTags get newline and indentation formatting for readability.
var blockTags = map[string]bool{
	"div": true, "p": true, "section": true, "article": true,
	"header": true, "footer": true, "nav": true, "main": true,
	"aside": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true, "ul": true, "ol": true, "li": true,
	"table": true, "tr": true, "td": true, "th": true,
	"form": true, "fieldset": true, "blockquote": true, "pre": true,
}

// voidTags never take a closing tag.
var voidTags = map[string]bool{
	"area": true, "base": true, "br": true, "col": true,
	"embed": true, "hr": true, "img": true, "input": true,
	"link": true, "meta": true, "param": true, "source": true,
	"track": true, "wbr": true,
}

// keepAttribute decides which attributes survive cleaning. Identity
// and accessibility attributes always do, since the model uses them
// to build selectors; the rest are tag-specific.
func keepAttribute(tag, name string) bool {
	name = strings.ToLower(name)

	switch name {
	case "id", "class", "role", "aria-label", "aria-describedby":
		return true
	}
	if strings.HasPrefix(name, "data-") {
		return true
	}

	switch tag {
	case "a":
		return name == "href" || name == "target"
	case "img":
		return name == "src" || name == "alt"
	case "input", "textarea", "select":
		return name == "name" || name == "type" || name == "placeholder" || name == "value"
	case "button":
		return name == "type" || name == "name"
	case "form":
		return name == "action" || name == "method"
	case "table":
		return name == "summary"
	}
	return false
}

func findTitle(doc *html.Node) string {
	var title string
	var visit func(*html.Node) bool
	visit = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				title = strings.TrimSpace(n.FirstChild.Data)
			}
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if visit(c) {
				return true
			}
		}
		return false
	}
	visit(doc)
	return title
}

func findMetaDescription(doc *html.Node) string {
	var description string
	var visit func(*html.Node) bool
	visit = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "meta" {
			var named bool
			var content string
			for _, attr := range n.Attr {
				switch {
				case attr.Key == "name" && attr.Val == "description":
					named = true
				case attr.Key == "content":
					content = attr.Val
				}
			}
			if named && content != "" {
				description = strings.TrimSpace(content)
				return true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if visit(c) {
				return true
			}
		}
		return false
	}
	visit(doc)
	return description
}
