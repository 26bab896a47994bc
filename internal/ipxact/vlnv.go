package ipxact

import (
	"strings"

	"github.com/pkg/errors"
)

// DocumentType identifies which kind of IP-XACT document a VLNV names.
type DocumentType string

const (
	TypeUnknown               DocumentType = ""
	TypeComponent             DocumentType = "component"
	TypeBusDefinition         DocumentType = "busDefinition"
	TypeAbstractionDefinition DocumentType = "abstractionDefinition"
	TypeDesign                DocumentType = "design"
	TypeDesignConfiguration   DocumentType = "designConfiguration"
)

// VLNV is the vendor:library:name:version identifier of an IP-XACT document.
// Type is informational and is ignored by Compare and Equal.
type VLNV struct {
	Type    DocumentType `json:"type,omitempty"`
	Vendor  string       `json:"vendor"`
	Library string       `json:"library"`
	Name    string       `json:"name"`
	Version string       `json:"version"`
}

// NewVLNV builds a VLNV of the given document type.
func NewVLNV(typ DocumentType, vendor, library, name, version string) VLNV {
	return VLNV{Type: typ, Vendor: vendor, Library: library, Name: name, Version: version}
}

// ParseVLNV parses "vendor:library:name:version".
func ParseVLNV(s string) (VLNV, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 4 {
		return VLNV{}, errors.Errorf("invalid VLNV %q: want vendor:library:name:version", s)
	}
	v := VLNV{Vendor: parts[0], Library: parts[1], Name: parts[2], Version: parts[3]}
	if !v.IsValid() {
		return VLNV{}, errors.Errorf("invalid VLNV %q: empty field", s)
	}
	return v, nil
}

func (v VLNV) String() string {
	return v.Vendor + ":" + v.Library + ":" + v.Name + ":" + v.Version
}

// IsValid reports whether all four identifier parts are set.
func (v VLNV) IsValid() bool {
	return v.Vendor != "" && v.Library != "" && v.Name != "" && v.Version != ""
}

// IsEmpty reports whether no identifier part is set.
func (v VLNV) IsEmpty() bool {
	return v.Vendor == "" && v.Library == "" && v.Name == "" && v.Version == ""
}

// Equal compares the identifier parts only.
func (v VLNV) Equal(o VLNV) bool {
	return v.Key() == o.Key()
}

// Key is the comparable form used as a library map key.
func (v VLNV) Key() VLNV {
	v.Type = TypeUnknown
	return v
}

// Compare orders VLNVs lexicographically by vendor, library, name, version.
func (v VLNV) Compare(o VLNV) int {
	if c := strings.Compare(v.Vendor, o.Vendor); c != 0 {
		return c
	}
	if c := strings.Compare(v.Library, o.Library); c != 0 {
		return c
	}
	if c := strings.Compare(v.Name, o.Name); c != 0 {
		return c
	}
	return strings.Compare(v.Version, o.Version)
}

// ConfigurableElementValue overrides the parameter whose value id equals ReferenceID.
type ConfigurableElementValue struct {
	ReferenceID string `json:"reference_id"`
	Value       string `json:"value"`
}

// ConfigurableVLNVReference is a VLNV reference carrying parameter overrides
// for the referenced document.
type ConfigurableVLNVReference struct {
	VLNV
	ConfigurableElementValues []ConfigurableElementValue `json:"configurable_element_values,omitempty"`
}

// Clone returns a deep copy.
func (r *ConfigurableVLNVReference) Clone() *ConfigurableVLNVReference {
	if r == nil {
		return nil
	}
	c := *r
	c.ConfigurableElementValues = append([]ConfigurableElementValue(nil), r.ConfigurableElementValues...)
	return &c
}
