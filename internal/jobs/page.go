package jobs

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// selector matches an element by tag name and a set of classes that must all be present.
type selector struct {
	tag     string
	classes []string
}

// Public listing page layout. Each selector yields one Posting field.
var (
	titleSelector       = selector{tag: "h1", classes: []string{"topcard__title"}}
	companySelector     = selector{tag: "a", classes: []string{"topcard__org-name-link"}}
	descriptionSelector = selector{tag: "div", classes: []string{"description__text"}}
	locationSelector    = selector{tag: "span", classes: []string{"topcard__flavor", "topcard__flavor--bullet"}}
)

// ParsePostingPage extracts a posting from a public listing page.
// Elements that are absent leave the corresponding field empty.
func ParsePostingPage(r io.Reader) (Posting, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Posting{}, err
	}

	return Posting{
		Title:       textOf(find(doc, titleSelector)),
		Company:     textOf(find(doc, companySelector)),
		Description: textOf(find(doc, descriptionSelector)),
		Location:    textOf(find(doc, locationSelector)),
	}, nil
}

func find(n *html.Node, sel selector) *html.Node {
	if n.Type == html.ElementNode && n.Data == sel.tag && hasClasses(n, sel.classes) {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := find(child, sel); found != nil {
			return found
		}
	}
	return nil
}

func hasClasses(n *html.Node, want []string) bool {
	var have []string
	for _, attr := range n.Attr {
		if attr.Key == "class" {
			have = strings.Fields(attr.Val)
			break
		}
	}

	for _, class := range want {
		found := false
		for _, candidate := range have {
			if candidate == class {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func textOf(n *html.Node) string {
	if n == nil {
		return ""
	}

	var builder strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			builder.WriteString(node.Data)
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)

	return strings.TrimSpace(builder.String())
}
