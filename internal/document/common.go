// Package document maps IP-XACT 2014 XML to the ipxact model and back.
package document

import (
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/pkg/errors"

	"github.com/robert-at-pretension-io/ipxact-meta/internal/ipxact"
)

// Namespaces written on generated root elements.
const (
	NamespaceIPXACT  = "http://www.accellera.org/XMLSchema/IPXACT/1685-2014"
	NamespaceKactus2 = "http://kactus2.cs.tut.fi"
)

func malformed(format string, args ...interface{}) error {
	return errors.Wrapf(ipxact.ErrMalformedDocument, format, args...)
}

// childText returns the trimmed text of the first child with tag, or "".
func childText(el *etree.Element, tag string) string {
	if el == nil {
		return ""
	}
	if c := el.SelectElement(tag); c != nil {
		return strings.TrimSpace(c.Text())
	}
	return ""
}

func setChildText(parent *etree.Element, tag, value string) *etree.Element {
	c := parent.CreateElement(tag)
	c.SetText(value)
	return c
}

// writeOptional creates the child only when value is non-empty.
func writeOptional(parent *etree.Element, tag, value string) {
	if value != "" {
		setChildText(parent, tag, value)
	}
}

func attrMap(el *etree.Element, skip ...string) map[string]string {
	var m map[string]string
	for _, a := range el.Attr {
		key := a.FullKey()
		if contains(skip, key) {
			continue
		}
		if m == nil {
			m = make(map[string]string)
		}
		m[key] = a.Value
	}
	return m
}

func writeAttrs(el *etree.Element, attrs map[string]string) {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		el.CreateAttr(k, attrs[k])
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type nameGroup struct {
	name, displayName, description string
}

func readNameGroup(el *etree.Element) nameGroup {
	return nameGroup{
		name:        childText(el, "ipxact:name"),
		displayName: childText(el, "ipxact:displayName"),
		description: childText(el, "ipxact:description"),
	}
}

func writeNameGroup(el *etree.Element, g nameGroup) {
	setChildText(el, "ipxact:name", g.name)
	writeOptional(el, "ipxact:displayName", g.displayName)
	writeOptional(el, "ipxact:description", g.description)
}

// readVLNVAttrs reads a VLNV reference held in attributes, as in busType.
func readVLNVAttrs(el *etree.Element, typ ipxact.DocumentType) ipxact.VLNV {
	return ipxact.NewVLNV(typ,
		el.SelectAttrValue("vendor", ""),
		el.SelectAttrValue("library", ""),
		el.SelectAttrValue("name", ""),
		el.SelectAttrValue("version", ""))
}

func writeVLNVAttrs(el *etree.Element, v ipxact.VLNV) {
	el.CreateAttr("vendor", v.Vendor)
	el.CreateAttr("library", v.Library)
	el.CreateAttr("name", v.Name)
	el.CreateAttr("version", v.Version)
}

// readVLNVElements reads the identifying children of a document root.
func readVLNVElements(root *etree.Element, typ ipxact.DocumentType) ipxact.VLNV {
	return ipxact.NewVLNV(typ,
		childText(root, "ipxact:vendor"),
		childText(root, "ipxact:library"),
		childText(root, "ipxact:name"),
		childText(root, "ipxact:version"))
}

func writeVLNVElements(root *etree.Element, v ipxact.VLNV) {
	setChildText(root, "ipxact:vendor", v.Vendor)
	setChildText(root, "ipxact:library", v.Library)
	setChildText(root, "ipxact:name", v.Name)
	setChildText(root, "ipxact:version", v.Version)
}

func readConfigurableVLNV(el *etree.Element, typ ipxact.DocumentType) *ipxact.ConfigurableVLNVReference {
	ref := &ipxact.ConfigurableVLNVReference{VLNV: readVLNVAttrs(el, typ)}
	ref.ConfigurableElementValues = readCEVs(el)
	return ref
}

func readCEVs(el *etree.Element) []ipxact.ConfigurableElementValue {
	group := el.SelectElement("ipxact:configurableElementValues")
	if group == nil {
		return nil
	}
	var cevs []ipxact.ConfigurableElementValue
	for _, c := range group.SelectElements("ipxact:configurableElementValue") {
		cevs = append(cevs, ipxact.ConfigurableElementValue{
			ReferenceID: c.SelectAttrValue("referenceId", ""),
			Value:       strings.TrimSpace(c.Text()),
		})
	}
	return cevs
}

func writeConfigurableVLNV(parent *etree.Element, tag string, ref *ipxact.ConfigurableVLNVReference) {
	el := parent.CreateElement(tag)
	writeVLNVAttrs(el, ref.VLNV)
	writeCEVs(el, ref.ConfigurableElementValues)
}

func writeCEVs(el *etree.Element, cevs []ipxact.ConfigurableElementValue) {
	if len(cevs) == 0 {
		return
	}
	group := el.CreateElement("ipxact:configurableElementValues")
	for _, cev := range cevs {
		c := group.CreateElement("ipxact:configurableElementValue")
		c.CreateAttr("referenceId", cev.ReferenceID)
		c.SetText(cev.Value)
	}
}

func readParameter(el *etree.Element) ipxact.Parameter {
	g := readNameGroup(el)
	return ipxact.Parameter{
		Name:        g.name,
		DisplayName: g.displayName,
		Description: g.description,
		ValueID:     el.SelectAttrValue("parameterId", ""),
		Resolve:     el.SelectAttrValue("resolve", ""),
		Type:        el.SelectAttrValue("type", ""),
		Value:       childText(el, "ipxact:value"),
	}
}

// readParameters reads <group>/<item>* parameter lists.
func readParameters(el *etree.Element, group, item string) []ipxact.Parameter {
	g := el.SelectElement(group)
	if g == nil {
		return nil
	}
	var params []ipxact.Parameter
	for _, p := range g.SelectElements(item) {
		params = append(params, readParameter(p))
	}
	return params
}

func writeParameters(el *etree.Element, group, item string, params []ipxact.Parameter) {
	if len(params) == 0 {
		return
	}
	g := el.CreateElement(group)
	for _, p := range params {
		pe := g.CreateElement(item)
		if p.ValueID != "" {
			pe.CreateAttr("parameterId", p.ValueID)
		}
		if p.Resolve != "" {
			pe.CreateAttr("resolve", p.Resolve)
		}
		if p.Type != "" {
			pe.CreateAttr("type", p.Type)
		}
		writeNameGroup(pe, nameGroup{p.Name, p.DisplayName, p.Description})
		setChildText(pe, "ipxact:value", p.Value)
	}
}

func readRange(el *etree.Element) *ipxact.Range {
	if el == nil {
		return nil
	}
	return &ipxact.Range{
		Left:  childText(el, "ipxact:left"),
		Right: childText(el, "ipxact:right"),
	}
}

// writeRange writes the range only when one of the bounds is set.
func writeRange(parent *etree.Element, r *ipxact.Range) {
	if r == nil || r.IsEmpty() {
		return
	}
	el := parent.CreateElement("ipxact:range")
	setChildText(el, "ipxact:left", r.Left)
	setChildText(el, "ipxact:right", r.Right)
}

func readPartSelect(el *etree.Element) *ipxact.PartSelect {
	if el == nil {
		return nil
	}
	ps := &ipxact.PartSelect{}
	if r := readRange(el.SelectElement("ipxact:range")); r != nil {
		ps.Range = *r
	}
	if idx := el.SelectElement("ipxact:indices"); idx != nil {
		for _, i := range idx.SelectElements("ipxact:index") {
			ps.Indices = append(ps.Indices, strings.TrimSpace(i.Text()))
		}
	}
	return ps
}

func writePartSelect(parent *etree.Element, ps *ipxact.PartSelect) {
	if ps.IsEmpty() {
		return
	}
	el := parent.CreateElement("ipxact:partSelect")
	r := ps.Range
	writeRange(el, &r)
	if len(ps.Indices) > 0 {
		idx := el.CreateElement("ipxact:indices")
		for _, i := range ps.Indices {
			setChildText(idx, "ipxact:index", i)
		}
	}
}

// vendorExtensions holds what the model knows of <ipxact:vendorExtensions>:
// the layout position and every other extension as raw XML.
type vendorExtensions struct {
	position *ipxact.Position
	author   string
	raw      []string
}

func readVendorExtensions(el *etree.Element) vendorExtensions {
	var ve vendorExtensions
	group := el.SelectElement("ipxact:vendorExtensions")
	if group == nil {
		return ve
	}
	for _, c := range group.ChildElements() {
		switch c.FullTag() {
		case "kactus2:position":
			x, _ := strconv.Atoi(c.SelectAttrValue("x", "0"))
			y, _ := strconv.Atoi(c.SelectAttrValue("y", "0"))
			ve.position = &ipxact.Position{X: x, Y: y}
		case "kactus2:author":
			ve.author = strings.TrimSpace(c.Text())
		default:
			doc := etree.NewDocument()
			doc.SetRoot(c.Copy())
			s, err := doc.WriteToString()
			if err == nil {
				ve.raw = append(ve.raw, s)
			}
		}
	}
	return ve
}

func writeVendorExtensions(el *etree.Element, ve vendorExtensions) error {
	if ve.position == nil && ve.author == "" && len(ve.raw) == 0 {
		return nil
	}
	group := el.CreateElement("ipxact:vendorExtensions")
	if ve.author != "" {
		setChildText(group, "kactus2:author", ve.author)
	}
	if ve.position != nil {
		p := group.CreateElement("kactus2:position")
		p.CreateAttr("x", strconv.Itoa(ve.position.X))
		p.CreateAttr("y", strconv.Itoa(ve.position.Y))
	}
	for _, raw := range ve.raw {
		doc := etree.NewDocument()
		if err := doc.ReadFromString(raw); err != nil {
			return errors.Wrapf(err, "vendor extension %q", raw)
		}
		if root := doc.Root(); root != nil {
			group.AddChild(root.Copy())
		}
	}
	return nil
}
