package document

import (
	"github.com/beevik/etree"

	"github.com/robert-at-pretension-io/ipxact-meta/internal/ipxact"
)

// ReadDesign parses an ipxact:design root element.
func ReadDesign(root *etree.Element) (*ipxact.Design, error) {
	d := &ipxact.Design{VLNV: readVLNVElements(root, ipxact.TypeDesign)}
	if !d.VLNV.IsValid() {
		return nil, malformed("design: incomplete VLNV %q", d.VLNV.String())
	}
	d.Description = childText(root, "ipxact:description")

	if insts := root.SelectElement("ipxact:componentInstances"); insts != nil {
		for _, ie := range insts.SelectElements("ipxact:componentInstance") {
			inst := ipxact.ComponentInstance{
				InstanceName: childText(ie, "ipxact:instanceName"),
				DisplayName:  childText(ie, "ipxact:displayName"),
				Description:  childText(ie, "ipxact:description"),
			}
			if inst.InstanceName == "" {
				return nil, malformed("design %s: componentInstance without ipxact:instanceName", d.VLNV)
			}
			ref := ie.SelectElement("ipxact:componentRef")
			if ref == nil {
				return nil, malformed("design %s: instance %q: missing ipxact:componentRef", d.VLNV, inst.InstanceName)
			}
			inst.ComponentRef = *readConfigurableVLNV(ref, ipxact.TypeComponent)
			inst.Position = readVendorExtensions(ie).position
			d.ComponentInstances = append(d.ComponentInstances, inst)
		}
	}

	if ics := root.SelectElement("ipxact:interconnections"); ics != nil {
		for _, ie := range ics.SelectElements("ipxact:interconnection") {
			ic := ipxact.Interconnection{Name: childText(ie, "ipxact:name")}
			for i, ai := range ie.SelectElements("ipxact:activeInterface") {
				ref := ipxact.ActiveInterface{
					ComponentRef: ai.SelectAttrValue("componentRef", ""),
					BusRef:       ai.SelectAttrValue("busRef", ""),
				}
				if i == 0 {
					ic.StartInterface = ref
				} else {
					ic.ActiveInterfaces = append(ic.ActiveInterfaces, ref)
				}
			}
			for _, hi := range ie.SelectElements("ipxact:hierInterface") {
				ic.HierInterfaces = append(ic.HierInterfaces, ipxact.HierInterface{BusRef: hi.SelectAttrValue("busRef", "")})
			}
			d.Interconnections = append(d.Interconnections, ic)
		}
		for _, ae := range ics.SelectElements("ipxact:adHocConnection") {
			d.AdHocConnections = append(d.AdHocConnections, readAdHoc(ae))
		}
	}

	if adhocs := root.SelectElement("ipxact:adHocConnections"); adhocs != nil {
		for _, ae := range adhocs.SelectElements("ipxact:adHocConnection") {
			d.AdHocConnections = append(d.AdHocConnections, readAdHoc(ae))
		}
	}

	d.Parameters = readParameters(root, "ipxact:parameters", "ipxact:parameter")
	return d, nil
}

func readAdHoc(el *etree.Element) ipxact.AdHocConnection {
	ah := ipxact.AdHocConnection{
		Name:      childText(el, "ipxact:name"),
		TiedValue: el.SelectAttrValue("tiedValue", ""),
	}
	refs := el.SelectElement("ipxact:portReferences")
	if refs == nil {
		return ah
	}
	for _, r := range refs.SelectElements("ipxact:internalPortReference") {
		ah.InternalPortReferences = append(ah.InternalPortReferences, ipxact.PortReference{
			ComponentRef: r.SelectAttrValue("componentRef", ""),
			PortRef:      r.SelectAttrValue("portRef", ""),
			PartSelect:   readPartSelect(r.SelectElement("ipxact:partSelect")),
		})
	}
	for _, r := range refs.SelectElements("ipxact:externalPortReference") {
		ah.ExternalPortReferences = append(ah.ExternalPortReferences, ipxact.PortReference{
			PortRef:    r.SelectAttrValue("portRef", ""),
			PartSelect: readPartSelect(r.SelectElement("ipxact:partSelect")),
		})
	}
	return ah
}

// WriteDesign renders d as a complete ipxact:design document.
func WriteDesign(d *ipxact.Design) (*etree.Document, error) {
	doc := newDocument()
	root := doc.CreateElement("ipxact:design")
	writeNamespaces(root)
	writeVLNVElements(root, d.VLNV)
	writeOptional(root, "ipxact:description", d.Description)

	if len(d.ComponentInstances) > 0 {
		insts := root.CreateElement("ipxact:componentInstances")
		for _, inst := range d.ComponentInstances {
			ie := insts.CreateElement("ipxact:componentInstance")
			setChildText(ie, "ipxact:instanceName", inst.InstanceName)
			writeOptional(ie, "ipxact:displayName", inst.DisplayName)
			writeOptional(ie, "ipxact:description", inst.Description)
			writeConfigurableVLNV(ie, "ipxact:componentRef", &inst.ComponentRef)
			if err := writeVendorExtensions(ie, vendorExtensions{position: inst.Position}); err != nil {
				return nil, err
			}
		}
	}

	if len(d.Interconnections) > 0 {
		ics := root.CreateElement("ipxact:interconnections")
		for _, ic := range d.Interconnections {
			ie := ics.CreateElement("ipxact:interconnection")
			setChildText(ie, "ipxact:name", ic.Name)
			for _, ai := range append([]ipxact.ActiveInterface{ic.StartInterface}, ic.ActiveInterfaces...) {
				ae := ie.CreateElement("ipxact:activeInterface")
				ae.CreateAttr("componentRef", ai.ComponentRef)
				ae.CreateAttr("busRef", ai.BusRef)
			}
			for _, hi := range ic.HierInterfaces {
				ie.CreateElement("ipxact:hierInterface").CreateAttr("busRef", hi.BusRef)
			}
		}
	}

	if len(d.AdHocConnections) > 0 {
		adhocs := root.CreateElement("ipxact:adHocConnections")
		for _, ah := range d.AdHocConnections {
			ae := adhocs.CreateElement("ipxact:adHocConnection")
			if ah.TiedValue != "" {
				ae.CreateAttr("tiedValue", ah.TiedValue)
			}
			setChildText(ae, "ipxact:name", ah.Name)
			refs := ae.CreateElement("ipxact:portReferences")
			for _, r := range ah.InternalPortReferences {
				re := refs.CreateElement("ipxact:internalPortReference")
				re.CreateAttr("componentRef", r.ComponentRef)
				re.CreateAttr("portRef", r.PortRef)
				writePartSelect(re, r.PartSelect)
			}
			for _, r := range ah.ExternalPortReferences {
				re := refs.CreateElement("ipxact:externalPortReference")
				re.CreateAttr("portRef", r.PortRef)
				writePartSelect(re, r.PartSelect)
			}
		}
	}

	writeParameters(root, "ipxact:parameters", "ipxact:parameter", d.Parameters)
	return doc, nil
}

// ReadDesignConfiguration parses an ipxact:designConfiguration root element.
func ReadDesignConfiguration(root *etree.Element) (*ipxact.DesignConfiguration, error) {
	dc := &ipxact.DesignConfiguration{VLNV: readVLNVElements(root, ipxact.TypeDesignConfiguration)}
	if !dc.VLNV.IsValid() {
		return nil, malformed("designConfiguration: incomplete VLNV %q", dc.VLNV.String())
	}
	if ref := root.SelectElement("ipxact:designRef"); ref != nil {
		dc.DesignRef = readVLNVAttrs(ref, ipxact.TypeDesign)
	}
	for i, vc := range root.SelectElements("ipxact:viewConfiguration") {
		cfg := ipxact.ViewConfiguration{InstanceName: childText(vc, "ipxact:instanceName")}
		if cfg.InstanceName == "" {
			return nil, malformed("designConfiguration %s: viewConfiguration %d without instanceName", dc.VLNV, i)
		}
		if view := vc.SelectElement("ipxact:view"); view != nil {
			cfg.ViewRef = view.SelectAttrValue("viewRef", "")
			cfg.ConfigurableElementValues = readCEVs(view)
		}
		dc.ViewConfigurations = append(dc.ViewConfigurations, cfg)
	}
	dc.Parameters = readParameters(root, "ipxact:parameters", "ipxact:parameter")
	return dc, nil
}

// WriteDesignConfiguration renders dc as a complete document.
func WriteDesignConfiguration(dc *ipxact.DesignConfiguration) (*etree.Document, error) {
	doc := newDocument()
	root := doc.CreateElement("ipxact:designConfiguration")
	writeNamespaces(root)
	writeVLNVElements(root, dc.VLNV)
	if !dc.DesignRef.IsEmpty() {
		writeVLNVAttrs(root.CreateElement("ipxact:designRef"), dc.DesignRef)
	}
	for _, vc := range dc.ViewConfigurations {
		ve := root.CreateElement("ipxact:viewConfiguration")
		setChildText(ve, "ipxact:instanceName", vc.InstanceName)
		view := ve.CreateElement("ipxact:view")
		view.CreateAttr("viewRef", vc.ViewRef)
		writeCEVs(view, vc.ConfigurableElementValues)
	}
	writeParameters(root, "ipxact:parameters", "ipxact:parameter", dc.Parameters)
	return doc, nil
}
