package metadata

// Align is a bit alignment; it is always a power of two.
type Align uint

// ByteOrder is the byte order of a fixed-length scalar.
type ByteOrder int

const (
	BigEndian ByteOrder = iota
	LittleEndian
)

// Encoding marks whether a fixed-length 8-bit integer's bytes should be
// read as text, which lets the procedure builder fold a static- or
// dynamic-length array of such elements into a string (spec §4.1 edge
// policy).
type Encoding int

const (
	EncodingNone Encoding = iota
	EncodingUTF8
)

// Role is a semantic role a scalar field plays in the trace preamble or
// a data-stream/event-record preamble. A field may carry zero or more
// roles (in practice almost always zero or one).
type Role int

const (
	RoleNone Role = iota
	RolePacketMagicNumber
	RolePacketTotalLength
	RolePacketContentLength
	RoleDataStreamTypeID
	RoleDataStreamID
	RoleEventRecordTypeID
	RolePacketSeqNum
	RoleDiscardedEventRecordCounterSnapshot
	RoleDefaultClockTimestamp
	RolePacketEndDefaultClockTimestamp
	RoleMetadataStreamUUID
)

// DataType is the sealed interface implemented by every node of the type
// tree. It is read-only from the procedure builder's point of view.
type DataType interface {
	// Attrs returns the type's user attributes, or nil if it has none.
	Attrs() map[string]any
	// TextLoc returns the optional source position of this type, as a
	// textual metadata frontend would record it.
	TextLoc() TextLoc

	isDataType()
}

// base is embedded by every concrete DataType to provide Attrs/TextLoc
// without repeating the bookkeeping in each type.
type base struct {
	UserAttrs map[string]any
	Loc       TextLoc
}

func (b base) Attrs() map[string]any { return b.UserAttrs }
func (b base) TextLoc() TextLoc      { return b.Loc }
func (base) isDataType()             {}

// SIntRange is an inclusive signed integer range.
type SIntRange struct {
	Begin, End int64
}

func (r SIntRange) Contains(v int64) bool { return v >= r.Begin && v <= r.End }

// UIntRange is an inclusive unsigned integer range.
type UIntRange struct {
	Begin, End uint64
}

func (r UIntRange) Contains(v uint64) bool { return v >= r.Begin && v <= r.End }

// EnumMapping associates a name with one or more integer ranges.
type EnumMapping struct {
	Name    string
	SRanges []SIntRange
	URanges []UIntRange
}
