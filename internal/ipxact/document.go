package ipxact

// Document is any top-level IP-XACT document held by a library.
type Document interface {
	DocumentVLNV() VLNV
}

func (c *Component) DocumentVLNV() VLNV { return c.VLNV }

func (d *Design) DocumentVLNV() VLNV { return d.VLNV }

func (d *DesignConfiguration) DocumentVLNV() VLNV { return d.VLNV }

func (a *AbstractionDefinition) DocumentVLNV() VLNV { return a.VLNV }

func (b *BusDefinition) DocumentVLNV() VLNV { return b.VLNV }
