package primitives

// Measurement describes what a raster band measures. A zero Measurement is
// unitless.
type Measurement struct {
	Name string `json:"measurement,omitempty"`
	Unit string `json:"unit,omitempty"`
}

// Unitless returns the empty measurement.
func Unitless() Measurement { return Measurement{} }

// IsUnitless reports whether no measurement semantics are attached.
func (m Measurement) IsUnitless() bool { return m == Measurement{} }

func (m Measurement) String() string {
	if m.IsUnitless() {
		return "unitless"
	}
	if m.Unit == "" {
		return m.Name
	}
	return m.Name + " [" + m.Unit + "]"
}
