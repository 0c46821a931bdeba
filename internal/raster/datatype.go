package raster

import "github.com/rotisserie/eris"

// Pixel is the closed set of primitive types a raster band may carry.
type Pixel interface {
	~uint8 | ~uint16 | ~uint32 | ~int8 | ~int16 | ~int32 | ~float32 | ~float64
}

// DataType tags the pixel type of a raster at runtime. The set is fixed;
// all per-type dispatch happens once, against this tag.
type DataType uint8

const (
	U8 DataType = iota
	U16
	U32
	I8
	I16
	I32
	F32
	F64
)

var dataTypeNames = [...]string{"U8", "U16", "U32", "I8", "I16", "I32", "F32", "F64"}

func (d DataType) String() string {
	if int(d) < len(dataTypeNames) {
		return dataTypeNames[d]
	}
	return "unknown"
}

// ParseDataType resolves a data type by its name.
func ParseDataType(s string) (DataType, error) {
	for i, name := range dataTypeNames {
		if name == s {
			return DataType(i), nil
		}
	}
	return 0, eris.Errorf("unknown raster data type %q", s)
}

// MarshalText serializes the data type by name.
func (d DataType) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText parses the data type by name.
func (d *DataType) UnmarshalText(text []byte) error {
	parsed, err := ParseDataType(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// TypeOf returns the runtime tag for a pixel type parameter.
func TypeOf[T Pixel]() DataType {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return U8
	case uint16:
		return U16
	case uint32:
		return U32
	case int8:
		return I8
	case int16:
		return I16
	case int32:
		return I32
	case float32:
		return F32
	default:
		return F64
	}
}
