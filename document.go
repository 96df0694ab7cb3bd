package xmlbind

import (
	"bytes"
	"fmt"

	"github.com/beevik/etree"
)

// NewDocument returns an empty DOM document.
func NewDocument() *etree.Document {
	return etree.NewDocument()
}

// parseDocument builds a fresh document from serialized XML.
func parseDocument(b []byte) (*etree.Document, error) {
	doc := NewDocument()
	if err := doc.ReadFromBytes(b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocument, err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("%w: no root element", ErrDocument)
	}
	return doc, nil
}

// detach copies node into a document of its own. Namespace declarations in
// scope at node are carried onto the copy unless the copy redeclares them.
// A document's own element stands for its root element.
func detach(node *etree.Element) (*etree.Document, error) {
	if node == nil {
		return nil, ErrNilNode
	}
	if node.Tag == "" && node.Parent() == nil {
		if node = firstChildElement(node); node == nil {
			return nil, fmt.Errorf("%w: document has no root element", ErrNilNode)
		}
	}
	root := node.Copy()
	for p := node.Parent(); p != nil; p = p.Parent() {
		for _, a := range p.Attr {
			if !isNamespaceDecl(a) {
				continue
			}
			if root.SelectAttr(a.FullKey()) == nil {
				root.CreateAttr(a.FullKey(), a.Value)
			}
		}
	}
	doc := NewDocument()
	doc.SetRoot(root)
	return doc, nil
}

func firstChildElement(e *etree.Element) *etree.Element {
	if children := e.ChildElements(); len(children) > 0 {
		return children[0]
	}
	return nil
}

func isNamespaceDecl(a etree.Attr) bool {
	return a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns")
}

func writeDocument(doc *etree.Document) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, err
	}
	return &buf, nil
}
