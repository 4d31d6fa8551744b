package hdf5

import (
	"errors"
	"strconv"
)

// ErrNotFound is wrapped by errors about absent groups, datasets or attributes.
var ErrNotFound = errors.New("hdf5: object not found")

// ErrDriverUnavailable is returned when libhdf5 was built without the ros3 driver.
var ErrDriverUnavailable = errors.New("hdf5: ros3 driver not available in this libhdf5 build")

// Error describes a failed libhdf5 operation on one object.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return "hdf5: " + e.Op + " " + e.Path + ": " + e.Err.Error()
	}
	return "hdf5: " + e.Op + " " + e.Path + " failed"
}

func (e *Error) Unwrap() error { return e.Err }

// EnumMember is one name/value pair of an HDF5 enum type.
type EnumMember struct {
	Name  string
	Value int64
}

// EnumTable holds two columns of a compound dataset plus the enum declaration.
type EnumTable struct {
	Index   []uint64
	Codes   []int64
	Members []EnumMember
}

// AttrKind is the class of a scalar attribute.
type AttrKind int

const (
	AttrString AttrKind = iota + 1
	AttrInt
	AttrUint
	AttrFloat
)

// Attr is one scalar attribute. Only the field matching Kind is set.
type Attr struct {
	Name  string
	Kind  AttrKind
	Bytes []byte
	Int   int64
	Uint  uint64
	Float float64
}

// Text returns the attribute as bytes: raw for strings, decimal for numbers.
func (a Attr) Text() []byte {
	switch a.Kind {
	case AttrString:
		return a.Bytes
	case AttrInt:
		return strconv.AppendInt(nil, a.Int, 10)
	case AttrUint:
		return strconv.AppendUint(nil, a.Uint, 10)
	case AttrFloat:
		return strconv.AppendFloat(nil, a.Float, 'g', -1, 64)
	default:
		return nil
	}
}
