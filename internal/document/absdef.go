package document

import (
	"github.com/beevik/etree"

	"github.com/robert-at-pretension-io/ipxact-meta/internal/ipxact"
)

var wireModeElements = []struct {
	tag  string
	mode ipxact.InterfaceMode
}{
	{"ipxact:onMaster", ipxact.ModeMaster},
	{"ipxact:onSlave", ipxact.ModeSlave},
	{"ipxact:onSystem", ipxact.ModeSystem},
}

// ReadAbstractionDefinition parses an ipxact:abstractionDefinition root element.
func ReadAbstractionDefinition(root *etree.Element) (*ipxact.AbstractionDefinition, error) {
	ad := &ipxact.AbstractionDefinition{VLNV: readVLNVElements(root, ipxact.TypeAbstractionDefinition)}
	if !ad.VLNV.IsValid() {
		return nil, malformed("abstractionDefinition: incomplete VLNV %q", ad.VLNV.String())
	}
	bt := root.SelectElement("ipxact:busType")
	if bt == nil {
		return nil, malformed("abstractionDefinition %s: missing ipxact:busType", ad.VLNV)
	}
	ad.BusType = readVLNVAttrs(bt, ipxact.TypeBusDefinition)

	if ports := root.SelectElement("ipxact:ports"); ports != nil {
		for _, pe := range ports.SelectElements("ipxact:port") {
			pa := ipxact.PortAbstraction{
				LogicalName: childText(pe, "ipxact:logicalName"),
				Description: childText(pe, "ipxact:description"),
			}
			if pa.LogicalName == "" {
				return nil, malformed("abstractionDefinition %s: port without ipxact:logicalName", ad.VLNV)
			}
			if we := pe.SelectElement("ipxact:wire"); we != nil {
				wire := &ipxact.WireAbstraction{
					DefaultValue: childText(we, "ipxact:defaultValue"),
					Modes:        make(map[ipxact.InterfaceMode]*ipxact.WireModeConstraint),
				}
				for _, m := range wireModeElements {
					me := we.SelectElement(m.tag)
					if me == nil {
						continue
					}
					wire.Modes[m.mode] = &ipxact.WireModeConstraint{
						Presence:  childText(me, "ipxact:presence"),
						Width:     childText(me, "ipxact:width"),
						Direction: ipxact.ParseDirection(childText(me, "ipxact:direction")),
					}
				}
				pa.Wire = wire
			}
			ad.Ports = append(ad.Ports, pa)
		}
	}
	ad.Parameters = readParameters(root, "ipxact:parameters", "ipxact:parameter")
	return ad, nil
}

// WriteAbstractionDefinition renders ad as a complete document.
func WriteAbstractionDefinition(ad *ipxact.AbstractionDefinition) (*etree.Document, error) {
	doc := newDocument()
	root := doc.CreateElement("ipxact:abstractionDefinition")
	writeNamespaces(root)
	writeVLNVElements(root, ad.VLNV)
	writeVLNVAttrs(root.CreateElement("ipxact:busType"), ad.BusType)

	if len(ad.Ports) > 0 {
		ports := root.CreateElement("ipxact:ports")
		for _, pa := range ad.Ports {
			pe := ports.CreateElement("ipxact:port")
			setChildText(pe, "ipxact:logicalName", pa.LogicalName)
			writeOptional(pe, "ipxact:description", pa.Description)
			if pa.Wire == nil {
				continue
			}
			we := pe.CreateElement("ipxact:wire")
			for _, m := range wireModeElements {
				c, ok := pa.Wire.Modes[m.mode]
				if !ok || c == nil {
					continue
				}
				me := we.CreateElement(m.tag)
				writeOptional(me, "ipxact:presence", c.Presence)
				writeOptional(me, "ipxact:width", c.Width)
				writeOptional(me, "ipxact:direction", string(c.Direction))
			}
			writeOptional(we, "ipxact:defaultValue", pa.Wire.DefaultValue)
		}
	}
	writeParameters(root, "ipxact:parameters", "ipxact:parameter", ad.Parameters)
	return doc, nil
}

// ReadBusDefinition parses an ipxact:busDefinition root element.
func ReadBusDefinition(root *etree.Element) (*ipxact.BusDefinition, error) {
	bd := &ipxact.BusDefinition{VLNV: readVLNVElements(root, ipxact.TypeBusDefinition)}
	if !bd.VLNV.IsValid() {
		return nil, malformed("busDefinition: incomplete VLNV %q", bd.VLNV.String())
	}
	bd.Description = childText(root, "ipxact:description")
	bd.DirectConnection = ipxact.ParseBool(childText(root, "ipxact:directConnection"))
	bd.IsAddressable = ipxact.ParseBool(childText(root, "ipxact:isAddressable"))
	bd.MaxMasters = childText(root, "ipxact:maxMasters")
	bd.MaxSlaves = childText(root, "ipxact:maxSlaves")
	return bd, nil
}
