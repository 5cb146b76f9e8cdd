package markdown

import (
	gmast "github.com/yuin/goldmark/ast"
)

// LinkKind distinguishes how a link was written.
type LinkKind string

const (
	LinkKindInline LinkKind = "inline"
	LinkKindImage  LinkKind = "image"
	LinkKindAuto   LinkKind = "auto"
)

// Link is one link-like construct found in a document.
type Link struct {
	Kind        LinkKind
	Destination string
}

// ExtractLinks lists links and images of tree in document order. Reference
// style links appear with their resolved destination.
func ExtractLinks(tree gmast.Node, body []byte) []Link {
	var out []Link
	_ = gmast.Walk(tree, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gmast.AutoLink:
			out = append(out, Link{Kind: LinkKindAuto, Destination: string(node.URL(body))})
		case *gmast.Image:
			out = append(out, Link{Kind: LinkKindImage, Destination: string(node.Destination)})
		case *gmast.Link:
			out = append(out, Link{Kind: LinkKindInline, Destination: string(node.Destination)})
		}
		return gmast.WalkContinue, nil
	})
	return out
}
