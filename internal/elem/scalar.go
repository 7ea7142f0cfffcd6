package elem

import "github.com/frdeso/yactfr/internal/metadata"

// FixedLengthBitArray carries a raw fixed-length bit array value: the
// low Len bits of Bits hold the decoded pattern.
type FixedLengthBitArray struct {
	Bits uint64
	Type metadata.DataType
}

func (FixedLengthBitArray) Kind() Kind { return KindFixedLengthBitArray }
func (FixedLengthBitArray) isElem()    {}

// FixedLengthSignedInteger carries a decoded fixed-length signed
// integer (or enumeration) value.
type FixedLengthSignedInteger struct {
	Value int64
	Type  metadata.DataType
}

func (FixedLengthSignedInteger) Kind() Kind { return KindFixedLengthSignedInteger }
func (FixedLengthSignedInteger) isElem()    {}

// FixedLengthUnsignedInteger carries a decoded fixed-length unsigned
// integer (or enumeration) value.
type FixedLengthUnsignedInteger struct {
	Value uint64
	Type  metadata.DataType
}

func (FixedLengthUnsignedInteger) Kind() Kind { return KindFixedLengthUnsignedInteger }
func (FixedLengthUnsignedInteger) isElem()    {}

// FixedLengthFloat carries a decoded fixed-length IEEE-754 float value.
type FixedLengthFloat struct {
	Value float64
	Type  *metadata.FlFloatType
}

func (FixedLengthFloat) Kind() Kind { return KindFixedLengthFloat }
func (FixedLengthFloat) isElem()    {}

// FixedLengthBool carries a decoded fixed-length boolean value.
type FixedLengthBool struct {
	Value bool
	Type  *metadata.FlBoolType
}

func (FixedLengthBool) Kind() Kind { return KindFixedLengthBool }
func (FixedLengthBool) isElem()    {}

// VariableLengthSignedInteger carries a decoded LEB128 signed integer
// (or enumeration) value.
type VariableLengthSignedInteger struct {
	Value int64
	Type  metadata.DataType
}

func (VariableLengthSignedInteger) Kind() Kind { return KindVariableLengthSignedInteger }
func (VariableLengthSignedInteger) isElem()    {}

// VariableLengthUnsignedInteger carries a decoded LEB128 unsigned
// integer (or enumeration) value.
type VariableLengthUnsignedInteger struct {
	Value uint64
	Type  metadata.DataType
}

func (VariableLengthUnsignedInteger) Kind() Kind { return KindVariableLengthUnsignedInteger }
func (VariableLengthUnsignedInteger) isElem()    {}
