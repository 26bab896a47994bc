package document

import (
	"io"

	"github.com/beevik/etree"
	"github.com/pkg/errors"

	"github.com/robert-at-pretension-io/ipxact-meta/internal/ipxact"
)

func newDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	return doc
}

func writeNamespaces(root *etree.Element) {
	root.CreateAttr("xmlns:ipxact", NamespaceIPXACT)
	root.CreateAttr("xmlns:kactus2", NamespaceKactus2)
}

// ReadDocument parses one IP-XACT document and dispatches on its root element.
func ReadDocument(r io.Reader) (ipxact.Document, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, errors.Wrapf(ipxact.ErrMalformedDocument, "xml: %v", err)
	}
	return FromElement(doc.Root())
}

// FromElement converts a parsed document root.
func FromElement(root *etree.Element) (ipxact.Document, error) {
	if root == nil {
		return nil, malformed("empty document")
	}
	var (
		d   ipxact.Document
		err error
	)
	switch root.FullTag() {
	case "ipxact:component":
		d, err = ReadComponent(root)
	case "ipxact:design":
		d, err = ReadDesign(root)
	case "ipxact:designConfiguration":
		d, err = ReadDesignConfiguration(root)
	case "ipxact:abstractionDefinition":
		d, err = ReadAbstractionDefinition(root)
	case "ipxact:busDefinition":
		d, err = ReadBusDefinition(root)
	default:
		return nil, malformed("unsupported root element %q", root.FullTag())
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// WriteDocument serializes a component, design, design configuration or
// abstraction definition with the given indent.
func WriteDocument(w io.Writer, d ipxact.Document, indent int) error {
	var (
		doc *etree.Document
		err error
	)
	switch v := d.(type) {
	case *ipxact.Component:
		doc, err = WriteComponent(v)
	case *ipxact.Design:
		doc, err = WriteDesign(v)
	case *ipxact.DesignConfiguration:
		doc, err = WriteDesignConfiguration(v)
	case *ipxact.AbstractionDefinition:
		doc, err = WriteAbstractionDefinition(v)
	default:
		return errors.Errorf("cannot write document of type %T", d)
	}
	if err != nil {
		return err
	}
	if indent > 0 {
		doc.Indent(indent)
	}
	_, err = doc.WriteTo(w)
	return errors.Wrap(err, "write document")
}
