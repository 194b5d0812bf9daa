package doctree

import "strings"

// DocTree is the root of a parsed document.
type DocTree struct {
	Title    string     // Document title (from metadata or filename)
	Children []*DocNode // Top-level sections, or physical pages for paginated formats
}

// DocNode is a recursive section in the document tree.
type DocNode struct {
	Title    string     // Section heading (empty for pages and leaf text)
	Text     string     // Text content of this node (may be empty for container nodes)
	Page     int        // Source page (0 if N/A)
	Children []*DocNode // Subsections
}

// Pages flattens the tree into text units in document order. Each unit is
// the node's heading line (if any) followed by its text and ends with
// exactly one newline. Nodes with neither heading nor text contribute
// nothing.
func (t *DocTree) Pages() []string {
	var pages []string
	var walk func(nodes []*DocNode)
	walk = func(nodes []*DocNode) {
		for _, n := range nodes {
			if p := n.unit(); p != "" {
				pages = append(pages, p)
			}
			walk(n.Children)
		}
	}
	walk(t.Children)
	return pages
}

// PlainText is the concatenation of Pages.
func (t *DocTree) PlainText() string {
	return strings.Join(t.Pages(), "")
}

func (n *DocNode) unit() string {
	title := strings.TrimSpace(n.Title)
	text := strings.TrimRight(n.Text, " \t\r\n")
	switch {
	case title == "" && strings.TrimSpace(text) == "":
		return ""
	case title == "":
		return text + "\n"
	case strings.TrimSpace(text) == "":
		return title + "\n"
	default:
		return title + "\n" + text + "\n"
	}
}
