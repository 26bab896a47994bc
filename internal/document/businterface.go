package document

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/pkg/errors"

	"github.com/robert-at-pretension-io/ipxact-meta/internal/ipxact"
)

// modeElements is the dispatch order of the interface mode elements.
var modeElements = []struct {
	tag  string
	mode ipxact.InterfaceMode
}{
	{"ipxact:master", ipxact.ModeMaster},
	{"ipxact:slave", ipxact.ModeSlave},
	{"ipxact:system", ipxact.ModeSystem},
	{"ipxact:mirroredMaster", ipxact.ModeMirroredMaster},
	{"ipxact:mirroredSlave", ipxact.ModeMirroredSlave},
	{"ipxact:mirroredSystem", ipxact.ModeMirroredSystem},
	{"ipxact:monitor", ipxact.ModeMonitor},
}

// ReadBusInterface parses one ipxact:busInterface element.
func ReadBusInterface(el *etree.Element) (*ipxact.BusInterface, error) {
	if el == nil {
		return nil, malformed("nil busInterface element")
	}

	g := readNameGroup(el)
	if g.name == "" {
		return nil, malformed("busInterface: missing ipxact:name")
	}
	bi := ipxact.NewBusInterface(g.name)
	bi.Attributes = attrMap(el)
	bi.DisplayName = g.displayName
	bi.Description = g.description
	bi.IsPresent = childText(el, "ipxact:isPresent")

	busType := el.SelectElement("ipxact:busType")
	if busType == nil {
		return nil, malformed("busInterface %q: missing ipxact:busType", g.name)
	}
	bi.BusType = *readConfigurableVLNV(busType, ipxact.TypeBusDefinition)

	if ats := el.SelectElement("ipxact:abstractionTypes"); ats != nil {
		for _, atEl := range ats.SelectElements("ipxact:abstractionType") {
			at, err := readAbstractionType(atEl)
			if err != nil {
				return nil, errors.Wrapf(err, "busInterface %q", g.name)
			}
			bi.AbstractionTypes = append(bi.AbstractionTypes, at)
		}
	}

	for _, m := range modeElements {
		if modeEl := el.SelectElement(m.tag); modeEl != nil {
			readMode(bi, m.mode, modeEl)
			break
		}
	}

	bi.ConnectionRequired = ipxact.ParseBool(childText(el, "ipxact:connectionRequired"))
	bi.BitsInLau = childText(el, "ipxact:bitsInLau")
	if bs := el.SelectElement("ipxact:bitSteering"); bs != nil {
		bi.BitSteering = strings.TrimSpace(bs.Text())
		bi.BitSteeringAttrs = attrMap(bs)
	}
	bi.Endianness = ipxact.Endianness(childText(el, "ipxact:endianness"))

	for _, p := range readParameters(el, "ipxact:parameters", "ipxact:parameter") {
		if p.Name == ipxact.MCAPIPortIDParameter {
			if id, err := strconv.Atoi(p.Value); err == nil {
				bi.SetMCAPIPortID(id)
				continue
			}
		}
		bi.Parameters = append(bi.Parameters, p)
	}

	ve := readVendorExtensions(el)
	bi.DefaultPos = ve.position
	bi.VendorExtensions = ve.raw

	return bi, nil
}

func readAbstractionType(el *etree.Element) (ipxact.AbstractionType, error) {
	var at ipxact.AbstractionType
	for _, v := range el.SelectElements("ipxact:viewRef") {
		at.ViewRefs = append(at.ViewRefs, strings.TrimSpace(v.Text()))
	}

	ref := el.SelectElement("ipxact:abstractionRef")
	if ref == nil {
		return at, malformed("abstractionType: missing ipxact:abstractionRef")
	}
	at.AbstractionRef = readConfigurableVLNV(ref, ipxact.TypeAbstractionDefinition)

	if pms := el.SelectElement("ipxact:portMaps"); pms != nil {
		for _, pmEl := range pms.SelectElements("ipxact:portMap") {
			at.PortMaps = append(at.PortMaps, readPortMap(pmEl))
		}
	}
	return at, nil
}

func readPortMap(el *etree.Element) ipxact.PortMap {
	pm := ipxact.PortMap{
		Invert:    ipxact.ParseBool(el.SelectAttrValue("invert", "")),
		IsPresent: childText(el, "ipxact:isPresent"),
	}
	if lp := el.SelectElement("ipxact:logicalPort"); lp != nil {
		pm.LogicalPort = &ipxact.LogicalPort{
			Name:  childText(lp, "ipxact:name"),
			Range: readRange(lp.SelectElement("ipxact:range")),
		}
	}
	if pp := el.SelectElement("ipxact:physicalPort"); pp != nil {
		pm.PhysicalPort = &ipxact.PhysicalPort{
			Name:       childText(pp, "ipxact:name"),
			PartSelect: readPartSelect(pp.SelectElement("ipxact:partSelect")),
		}
	}
	pm.LogicalTieOff = childText(el, "ipxact:logicalTieOff")
	pm.IsInformative = ipxact.ParseBool(childText(el, "ipxact:isInformative"))
	return pm
}

func readMode(bi *ipxact.BusInterface, mode ipxact.InterfaceMode, el *etree.Element) {
	switch mode {
	case ipxact.ModeMaster:
		m := &ipxact.MasterInterface{}
		if as := el.SelectElement("ipxact:addressSpaceRef"); as != nil {
			m.AddressSpaceRef = as.SelectAttrValue("addressSpaceRef", "")
			m.IsPresent = childText(as, "ipxact:isPresent")
			if base := as.SelectElement("ipxact:baseAddress"); base != nil {
				m.BaseAddress = strings.TrimSpace(base.Text())
				m.BaseAttributes = attrMap(base)
			}
		}
		bi.SetMaster(m)
		bi.SetInterfaceMode(ipxact.ModeMaster)

	case ipxact.ModeMirroredMaster:
		bi.SetInterfaceMode(ipxact.ModeMirroredMaster)

	case ipxact.ModeSlave:
		s := &ipxact.SlaveInterface{}
		if mm := el.SelectElement("ipxact:memoryMapRef"); mm != nil {
			s.MemoryMapRef = mm.SelectAttrValue("memoryMapRef", "")
		}
		for _, b := range el.SelectElements("ipxact:transparentBridge") {
			s.Bridges = append(s.Bridges, ipxact.TransparentBridge{
				MasterRef: b.SelectAttrValue("masterRef", ""),
				IsPresent: childText(b, "ipxact:isPresent"),
			})
		}
		for _, g := range el.SelectElements("ipxact:fileSetRefGroup") {
			group := ipxact.FileSetRefGroup{Group: childText(g, "ipxact:group")}
			for _, ref := range g.SelectElements("ipxact:fileSetRef") {
				group.FileSetRefs = append(group.FileSetRefs, childText(ref, "ipxact:localName"))
			}
			s.FileSetRefGroups = append(s.FileSetRefGroups, group)
		}
		bi.SetSlave(s)

	case ipxact.ModeSystem:
		bi.SetSystem(childText(el, "ipxact:group"))

	case ipxact.ModeMirroredSystem:
		bi.SetMirroredSystem(childText(el, "ipxact:group"))

	case ipxact.ModeMirroredSlave:
		ms := &ipxact.MirroredSlaveInterface{}
		if ba := el.SelectElement("ipxact:baseAddresses"); ba != nil {
			for _, r := range ba.SelectElements("ipxact:remapAddress") {
				ms.RemapAddresses = append(ms.RemapAddresses, ipxact.RemapAddress{
					Address:    strings.TrimSpace(r.Text()),
					State:      r.SelectAttrValue("state", ""),
					Attributes: attrMap(r, "state"),
				})
			}
			ms.Range = childText(ba, "ipxact:range")
		}
		bi.SetMirroredSlave(ms)

	case ipxact.ModeMonitor:
		bi.SetMonitor(&ipxact.MonitorInterface{
			InterfaceMode: ipxact.ParseInterfaceMode(el.SelectAttrValue("interfaceMode", "")),
			Group:         childText(el, "ipxact:group"),
		})
	}
}

// WriteBusInterface appends bi to parent as an ipxact:busInterface element.
func WriteBusInterface(parent *etree.Element, bi *ipxact.BusInterface) error {
	switch bi.InterfaceMode() {
	case ipxact.ModeUnset:
		return errors.Wrapf(ipxact.ErrUnsupportedInterfaceMode, "busInterface %q", bi.Name)
	case ipxact.ModeMonitor:
		mon := bi.Mode.Monitor()
		if mon == nil || mon.InterfaceMode == ipxact.ModeUnset || mon.InterfaceMode == ipxact.ModeMonitor {
			return errors.Wrapf(ipxact.ErrUnsupportedInterfaceMode, "busInterface %q: monitor needs a monitored interface mode", bi.Name)
		}
	}

	el := parent.CreateElement("ipxact:busInterface")
	writeAttrs(el, bi.Attributes)
	writeNameGroup(el, nameGroup{bi.Name, bi.DisplayName, bi.Description})
	writeOptional(el, "ipxact:isPresent", bi.IsPresent)
	writeConfigurableVLNV(el, "ipxact:busType", &bi.BusType)

	if len(bi.AbstractionTypes) > 0 {
		ats := el.CreateElement("ipxact:abstractionTypes")
		for i := range bi.AbstractionTypes {
			writeAbstractionType(ats, &bi.AbstractionTypes[i])
		}
	}

	writeMode(el, bi)

	if bi.ConnectionRequired.IsSpecified() {
		setChildText(el, "ipxact:connectionRequired", bi.ConnectionRequired.String())
	}
	writeOptional(el, "ipxact:bitsInLau", bi.BitsInLau)
	if bi.BitSteering != "" || len(bi.BitSteeringAttrs) > 0 {
		bs := setChildText(el, "ipxact:bitSteering", bi.BitSteering)
		writeAttrs(bs, bi.BitSteeringAttrs)
	}
	writeOptional(el, "ipxact:endianness", string(bi.Endianness))

	params := bi.Parameters
	if p, ok := bi.MCAPIPortIDAsParameter(); ok {
		params = append(append([]ipxact.Parameter(nil), params...), p)
	}
	writeParameters(el, "ipxact:parameters", "ipxact:parameter", params)

	return writeVendorExtensions(el, vendorExtensions{position: bi.DefaultPos, raw: bi.VendorExtensions})
}

func writeAbstractionType(parent *etree.Element, at *ipxact.AbstractionType) {
	el := parent.CreateElement("ipxact:abstractionType")
	for _, v := range at.ViewRefs {
		setChildText(el, "ipxact:viewRef", v)
	}
	ref := at.AbstractionRef
	if ref == nil {
		ref = &ipxact.ConfigurableVLNVReference{}
	}
	writeConfigurableVLNV(el, "ipxact:abstractionRef", ref)

	if len(at.PortMaps) == 0 {
		return
	}
	pms := el.CreateElement("ipxact:portMaps")
	for _, pm := range at.PortMaps {
		writePortMap(pms, pm)
	}
}

func writePortMap(parent *etree.Element, pm ipxact.PortMap) {
	el := parent.CreateElement("ipxact:portMap")
	if pm.Invert.IsSpecified() {
		el.CreateAttr("invert", pm.Invert.String())
	}
	writeOptional(el, "ipxact:isPresent", pm.IsPresent)
	if pm.LogicalPort != nil {
		lp := el.CreateElement("ipxact:logicalPort")
		setChildText(lp, "ipxact:name", pm.LogicalPort.Name)
		writeRange(lp, pm.LogicalPort.Range)
	}
	if pm.PhysicalPort != nil {
		pp := el.CreateElement("ipxact:physicalPort")
		setChildText(pp, "ipxact:name", pm.PhysicalPort.Name)
		writePartSelect(pp, pm.PhysicalPort.PartSelect)
	}
	writeOptional(el, "ipxact:logicalTieOff", pm.LogicalTieOff)
	if pm.IsInformative.IsSpecified() {
		setChildText(el, "ipxact:isInformative", pm.IsInformative.String())
	}
}

func writeMode(el *etree.Element, bi *ipxact.BusInterface) {
	mode := bi.Mode
	switch bi.InterfaceMode() {
	case ipxact.ModeMaster:
		m := el.CreateElement("ipxact:master")
		if master := mode.Master(); master != nil && (master.AddressSpaceRef != "" || master.BaseAddress != "") {
			as := m.CreateElement("ipxact:addressSpaceRef")
			as.CreateAttr("addressSpaceRef", master.AddressSpaceRef)
			writeOptional(as, "ipxact:isPresent", master.IsPresent)
			if master.BaseAddress != "" {
				base := setChildText(as, "ipxact:baseAddress", master.BaseAddress)
				writeAttrs(base, master.BaseAttributes)
			}
		}

	case ipxact.ModeMirroredMaster:
		el.CreateElement("ipxact:mirroredMaster")

	case ipxact.ModeSlave:
		s := el.CreateElement("ipxact:slave")
		slave := mode.Slave()
		if slave == nil {
			return
		}
		if slave.MemoryMapRef != "" {
			mm := s.CreateElement("ipxact:memoryMapRef")
			mm.CreateAttr("memoryMapRef", slave.MemoryMapRef)
		}
		for _, b := range slave.Bridges {
			br := s.CreateElement("ipxact:transparentBridge")
			br.CreateAttr("masterRef", b.MasterRef)
			writeOptional(br, "ipxact:isPresent", b.IsPresent)
		}
		for _, g := range slave.FileSetRefGroups {
			ge := s.CreateElement("ipxact:fileSetRefGroup")
			writeOptional(ge, "ipxact:group", g.Group)
			for _, ref := range g.FileSetRefs {
				r := ge.CreateElement("ipxact:fileSetRef")
				setChildText(r, "ipxact:localName", ref)
			}
		}

	case ipxact.ModeSystem:
		s := el.CreateElement("ipxact:system")
		setChildText(s, "ipxact:group", mode.SystemGroup())

	case ipxact.ModeMirroredSystem:
		s := el.CreateElement("ipxact:mirroredSystem")
		setChildText(s, "ipxact:group", mode.SystemGroup())

	case ipxact.ModeMirroredSlave:
		s := el.CreateElement("ipxact:mirroredSlave")
		ms := mode.MirroredSlave()
		if ms == nil || ms.Range == "" {
			return
		}
		ba := s.CreateElement("ipxact:baseAddresses")
		for _, r := range ms.RemapAddresses {
			re := setChildText(ba, "ipxact:remapAddress", r.Address)
			if r.State != "" {
				re.CreateAttr("state", r.State)
			}
			writeAttrs(re, r.Attributes)
		}
		setChildText(ba, "ipxact:range", ms.Range)

	case ipxact.ModeMonitor:
		m := el.CreateElement("ipxact:monitor")
		mon := mode.Monitor()
		m.CreateAttr("interfaceMode", mon.InterfaceMode.String())
		writeOptional(m, "ipxact:group", mon.Group)
	}
}
