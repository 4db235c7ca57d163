package htmlutil

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// GetText concatenates every text node under the given node.
func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// DirectText returns the trimmed, non-empty text nodes that are direct
// children of the selection, skipping text held inside child elements.
// Useful for markup that separates lines with <br> instead of elements.
func DirectText(sel *goquery.Selection) []string {
	var out []string
	for _, node := range sel.Contents().Nodes {
		if node.Type != html.TextNode {
			continue
		}
		text := strings.TrimSpace(node.Data)
		if text == "" {
			continue
		}
		out = append(out, text)
	}
	return out
}

// JoinDirectText concatenates the raw direct text nodes of the selection,
// whitespace included, in document order.
func JoinDirectText(sel *goquery.Selection) string {
	var buffer bytes.Buffer
	for _, node := range sel.Contents().Nodes {
		if node.Type != html.TextNode {
			continue
		}
		buffer.WriteString(node.Data)
	}
	return buffer.String()
}
