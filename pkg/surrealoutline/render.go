package surrealoutline

import (
	"fmt"
	"io"

	"github.com/xlab/treeprint"

	"github.com/surrealdb/surrealoutline/pkg/outline"
	"github.com/surrealdb/surrealoutline/pkg/page"
)

// renderPage prints the page as an indented tree headed by its title.
func renderPage(w io.Writer, p *page.Page, showIDs bool) error {
	tree := treeprint.NewWithRoot(fmt.Sprintf("%s (page %s)", p.Title(), p.ID()))
	addNodes(tree, p.Tree().Root().Children, showIDs)
	_, err := io.WriteString(w, tree.String())
	return err
}

func addNodes(branch treeprint.Tree, nodes []outline.Node, showIDs bool) {
	for _, n := range nodes {
		label := n.Content
		if showIDs {
			label = fmt.Sprintf("[%s] %s", n.ID, n.Content)
		}
		if len(n.Children) == 0 {
			branch.AddNode(label)
			continue
		}
		addNodes(branch.AddBranch(label), n.Children, showIDs)
	}
}
