package document

import (
	"github.com/beevik/etree"
	"github.com/pkg/errors"

	"github.com/robert-at-pretension-io/ipxact-meta/internal/ipxact"
)

// ReadComponent parses an ipxact:component root element.
func ReadComponent(root *etree.Element) (*ipxact.Component, error) {
	c := &ipxact.Component{VLNV: readVLNVElements(root, ipxact.TypeComponent)}
	if !c.VLNV.IsValid() {
		return nil, malformed("component: incomplete VLNV %q", c.VLNV.String())
	}
	c.Description = childText(root, "ipxact:description")

	if bis := root.SelectElement("ipxact:busInterfaces"); bis != nil {
		for _, biEl := range bis.SelectElements("ipxact:busInterface") {
			bi, err := ReadBusInterface(biEl)
			if err != nil {
				return nil, errors.Wrapf(err, "component %s", c.VLNV)
			}
			c.BusInterfaces = append(c.BusInterfaces, bi)
		}
	}

	if model := root.SelectElement("ipxact:model"); model != nil {
		if err := readModel(c, model); err != nil {
			return nil, errors.Wrapf(err, "component %s", c.VLNV)
		}
	}

	c.Parameters = readParameters(root, "ipxact:parameters", "ipxact:parameter")
	c.Author = readVendorExtensions(root).author
	return c, nil
}

func readModel(c *ipxact.Component, model *etree.Element) error {
	if views := model.SelectElement("ipxact:views"); views != nil {
		for _, v := range views.SelectElements("ipxact:view") {
			view := ipxact.View{
				Name:                                childText(v, "ipxact:name"),
				ComponentInstantiationRef:           childText(v, "ipxact:componentInstantiationRef"),
				DesignInstantiationRef:              childText(v, "ipxact:designInstantiationRef"),
				DesignConfigurationInstantiationRef: childText(v, "ipxact:designConfigurationInstantiationRef"),
			}
			if view.Name == "" {
				return malformed("view: missing ipxact:name")
			}
			for _, env := range v.SelectElements("ipxact:envIdentifier") {
				view.EnvIdentifiers = append(view.EnvIdentifiers, env.Text())
			}
			c.Views = append(c.Views, view)
		}
	}

	if insts := model.SelectElement("ipxact:instantiations"); insts != nil {
		for _, ci := range insts.SelectElements("ipxact:componentInstantiation") {
			c.ComponentInstantiations = append(c.ComponentInstantiations, ipxact.ComponentInstantiation{
				Name:             childText(ci, "ipxact:name"),
				Language:         childText(ci, "ipxact:language"),
				LibraryName:      childText(ci, "ipxact:libraryName"),
				ModuleName:       childText(ci, "ipxact:moduleName"),
				ModuleParameters: readParameters(ci, "ipxact:moduleParameters", "ipxact:moduleParameter"),
				Parameters:       readParameters(ci, "ipxact:parameters", "ipxact:parameter"),
			})
		}
		for _, di := range insts.SelectElements("ipxact:designInstantiation") {
			ref := di.SelectElement("ipxact:designRef")
			if ref == nil {
				return malformed("designInstantiation %q: missing ipxact:designRef", childText(di, "ipxact:name"))
			}
			c.DesignInstantiations = append(c.DesignInstantiations, ipxact.DesignInstantiation{
				Name:      childText(di, "ipxact:name"),
				DesignRef: *readConfigurableVLNV(ref, ipxact.TypeDesign),
			})
		}
		for _, dci := range insts.SelectElements("ipxact:designConfigurationInstantiation") {
			ref := dci.SelectElement("ipxact:designConfigurationRef")
			if ref == nil {
				return malformed("designConfigurationInstantiation %q: missing ipxact:designConfigurationRef",
					childText(dci, "ipxact:name"))
			}
			c.DesignConfigurationInstantiations = append(c.DesignConfigurationInstantiations,
				ipxact.DesignConfigurationInstantiation{
					Name:                   childText(dci, "ipxact:name"),
					Language:               childText(dci, "ipxact:language"),
					DesignConfigurationRef: *readConfigurableVLNV(ref, ipxact.TypeDesignConfiguration),
					Parameters:             readParameters(dci, "ipxact:parameters", "ipxact:parameter"),
				})
		}
	}

	if ports := model.SelectElement("ipxact:ports"); ports != nil {
		for _, p := range ports.SelectElements("ipxact:port") {
			port := ipxact.Port{
				Name:        childText(p, "ipxact:name"),
				Description: childText(p, "ipxact:description"),
			}
			if port.Name == "" {
				return malformed("port: missing ipxact:name")
			}
			if wire := p.SelectElement("ipxact:wire"); wire != nil {
				port.Direction = ipxact.ParseDirection(childText(wire, "ipxact:direction"))
				if vectors := wire.SelectElement("ipxact:vectors"); vectors != nil {
					if v := vectors.SelectElement("ipxact:vector"); v != nil {
						port.Left = childText(v, "ipxact:left")
						port.Right = childText(v, "ipxact:right")
					}
				}
				if drivers := wire.SelectElement("ipxact:drivers"); drivers != nil {
					port.DefaultValue = childText(drivers.SelectElement("ipxact:driver"), "ipxact:defaultValue")
				}
			}
			c.Ports = append(c.Ports, port)
		}
	}
	return nil
}

// WriteComponent renders c as a complete ipxact:component document.
func WriteComponent(c *ipxact.Component) (*etree.Document, error) {
	doc := newDocument()
	root := doc.CreateElement("ipxact:component")
	writeNamespaces(root)
	writeVLNVElements(root, c.VLNV)
	writeOptional(root, "ipxact:description", c.Description)

	if len(c.BusInterfaces) > 0 {
		bis := root.CreateElement("ipxact:busInterfaces")
		for _, bi := range c.BusInterfaces {
			if err := WriteBusInterface(bis, bi); err != nil {
				return nil, errors.Wrapf(err, "component %s", c.VLNV)
			}
		}
	}

	if len(c.Views) > 0 || len(c.Ports) > 0 || len(c.ComponentInstantiations) > 0 ||
		len(c.DesignInstantiations) > 0 || len(c.DesignConfigurationInstantiations) > 0 {
		writeModel(root.CreateElement("ipxact:model"), c)
	}

	writeParameters(root, "ipxact:parameters", "ipxact:parameter", c.Parameters)
	if err := writeVendorExtensions(root, vendorExtensions{author: c.Author}); err != nil {
		return nil, err
	}
	return doc, nil
}

func writeModel(model *etree.Element, c *ipxact.Component) {
	if len(c.Views) > 0 {
		views := model.CreateElement("ipxact:views")
		for _, v := range c.Views {
			ve := views.CreateElement("ipxact:view")
			setChildText(ve, "ipxact:name", v.Name)
			for _, env := range v.EnvIdentifiers {
				setChildText(ve, "ipxact:envIdentifier", env)
			}
			writeOptional(ve, "ipxact:componentInstantiationRef", v.ComponentInstantiationRef)
			writeOptional(ve, "ipxact:designInstantiationRef", v.DesignInstantiationRef)
			writeOptional(ve, "ipxact:designConfigurationInstantiationRef", v.DesignConfigurationInstantiationRef)
		}
	}

	if len(c.ComponentInstantiations)+len(c.DesignInstantiations)+len(c.DesignConfigurationInstantiations) > 0 {
		insts := model.CreateElement("ipxact:instantiations")
		for _, ci := range c.ComponentInstantiations {
			e := insts.CreateElement("ipxact:componentInstantiation")
			setChildText(e, "ipxact:name", ci.Name)
			writeOptional(e, "ipxact:language", ci.Language)
			writeOptional(e, "ipxact:libraryName", ci.LibraryName)
			writeOptional(e, "ipxact:moduleName", ci.ModuleName)
			writeParameters(e, "ipxact:moduleParameters", "ipxact:moduleParameter", ci.ModuleParameters)
			writeParameters(e, "ipxact:parameters", "ipxact:parameter", ci.Parameters)
		}
		for _, di := range c.DesignInstantiations {
			e := insts.CreateElement("ipxact:designInstantiation")
			setChildText(e, "ipxact:name", di.Name)
			writeConfigurableVLNV(e, "ipxact:designRef", &di.DesignRef)
		}
		for _, dci := range c.DesignConfigurationInstantiations {
			e := insts.CreateElement("ipxact:designConfigurationInstantiation")
			setChildText(e, "ipxact:name", dci.Name)
			writeOptional(e, "ipxact:language", dci.Language)
			writeConfigurableVLNV(e, "ipxact:designConfigurationRef", &dci.DesignConfigurationRef)
			writeParameters(e, "ipxact:parameters", "ipxact:parameter", dci.Parameters)
		}
	}

	if len(c.Ports) > 0 {
		ports := model.CreateElement("ipxact:ports")
		for _, p := range c.Ports {
			pe := ports.CreateElement("ipxact:port")
			setChildText(pe, "ipxact:name", p.Name)
			writeOptional(pe, "ipxact:description", p.Description)
			wire := pe.CreateElement("ipxact:wire")
			setChildText(wire, "ipxact:direction", string(p.Direction))
			if p.Left != "" || p.Right != "" {
				v := wire.CreateElement("ipxact:vectors").CreateElement("ipxact:vector")
				setChildText(v, "ipxact:left", p.Left)
				setChildText(v, "ipxact:right", p.Right)
			}
			if p.DefaultValue != "" {
				d := wire.CreateElement("ipxact:drivers").CreateElement("ipxact:driver")
				setChildText(d, "ipxact:defaultValue", p.DefaultValue)
			}
		}
	}
}
