package elem

import "github.com/frdeso/yactfr/internal/metadata"

// PacketBegin marks the start of one packet's decoding.
type PacketBegin struct{}

func (PacketBegin) Kind() Kind { return KindPacketBegin }
func (PacketBegin) isElem()    {}

// PacketEnd marks the end of one packet's decoding.
type PacketEnd struct{}

func (PacketEnd) Kind() Kind { return KindPacketEnd }
func (PacketEnd) isElem()    {}

// ScopeBegin marks entry into one of the six standard scopes.
type ScopeBegin struct {
	Scope metadata.Scope
}

func (ScopeBegin) Kind() Kind { return KindScopeBegin }
func (ScopeBegin) isElem()    {}

// ScopeEnd marks exit from the current scope.
type ScopeEnd struct{}

func (ScopeEnd) Kind() Kind { return KindScopeEnd }
func (ScopeEnd) isElem()    {}

// StructBegin marks entry into a structure.
type StructBegin struct {
	Type *metadata.StructType
}

func (StructBegin) Kind() Kind { return KindStructBegin }
func (StructBegin) isElem()    {}

// StructEnd marks exit from a structure.
type StructEnd struct{}

func (StructEnd) Kind() Kind { return KindStructEnd }
func (StructEnd) isElem()    {}

// StaticLengthArrayBegin marks entry into a static-length array.
type StaticLengthArrayBegin struct {
	Len  uint
	Type *metadata.SlArrayType
}

func (StaticLengthArrayBegin) Kind() Kind { return KindStaticLengthArrayBegin }
func (StaticLengthArrayBegin) isElem()    {}

// StaticLengthArrayEnd marks exit from a static-length array.
type StaticLengthArrayEnd struct{}

func (StaticLengthArrayEnd) Kind() Kind { return KindStaticLengthArrayEnd }
func (StaticLengthArrayEnd) isElem()    {}

// DynamicLengthArrayBegin marks entry into a dynamic-length array.
type DynamicLengthArrayBegin struct {
	Len  uint64
	Type *metadata.DlArrayType
}

func (DynamicLengthArrayBegin) Kind() Kind { return KindDynamicLengthArrayBegin }
func (DynamicLengthArrayBegin) isElem()    {}

// DynamicLengthArrayEnd marks exit from a dynamic-length array.
type DynamicLengthArrayEnd struct{}

func (DynamicLengthArrayEnd) Kind() Kind { return KindDynamicLengthArrayEnd }
func (DynamicLengthArrayEnd) isElem()    {}
