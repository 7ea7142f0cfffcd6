// Package proc implements the procedure builder (spec §4.1) and the flat
// instruction set it lowers a validated trace type into (spec §4.2). A
// TraceProc built once by Build is read many times by independent vm.VM
// instances; nothing in this package mutates a TraceProc after Build
// returns.
package proc

import "github.com/frdeso/yactfr/internal/metadata"

// Kind tags the single concrete shape every Instr carries. This is the
// flat tagged-union re-architecture mandated by spec §9 in place of the
// source's class-per-kind + visitor dispatch: one enum, one struct, a
// switch in the VM's execution loop instead of virtual calls.
type Kind uint8

const (
	// Fixed-length bit array family. The plain Kind performs a generic
	// bit-extract; the A* suffixed kinds are fast paths the builder
	// picks when length and alignment line up on a byte-order-aware
	// native word size, so the VM never branches on alignment/length/
	// byte-order per element (spec §4.1 step 1).
	KindReadFlBitArray Kind = iota
	KindReadFlBitArrayA8
	KindReadFlBitArrayA16BE
	KindReadFlBitArrayA16LE
	KindReadFlBitArrayA32BE
	KindReadFlBitArrayA32LE
	KindReadFlBitArrayA64BE
	KindReadFlBitArrayA64LE

	KindReadFlSInt
	KindReadFlSIntA8
	KindReadFlSIntA16BE
	KindReadFlSIntA16LE
	KindReadFlSIntA32BE
	KindReadFlSIntA32LE
	KindReadFlSIntA64BE
	KindReadFlSIntA64LE

	KindReadFlUInt
	KindReadFlUIntA8
	KindReadFlUIntA16BE
	KindReadFlUIntA16LE
	KindReadFlUIntA32BE
	KindReadFlUIntA32LE
	KindReadFlUIntA64BE
	KindReadFlUIntA64LE

	KindReadFlSEnum
	KindReadFlSEnumA8
	KindReadFlSEnumA16BE
	KindReadFlSEnumA16LE
	KindReadFlSEnumA32BE
	KindReadFlSEnumA32LE
	KindReadFlSEnumA64BE
	KindReadFlSEnumA64LE

	KindReadFlUEnum
	KindReadFlUEnumA8
	KindReadFlUEnumA16BE
	KindReadFlUEnumA16LE
	KindReadFlUEnumA32BE
	KindReadFlUEnumA32LE
	KindReadFlUEnumA64BE
	KindReadFlUEnumA64LE

	KindReadFlFloat
	KindReadFlFloatA8
	KindReadFlFloatA16BE
	KindReadFlFloatA16LE
	KindReadFlFloatA32BE
	KindReadFlFloatA32LE
	KindReadFlFloatA64BE
	KindReadFlFloatA64LE

	KindReadFlBool
	KindReadFlBoolA8
	KindReadFlBoolA16BE
	KindReadFlBoolA16LE
	KindReadFlBoolA32BE
	KindReadFlBoolA32LE
	KindReadFlBoolA64BE
	KindReadFlBoolA64LE

	// Variable-length (LEB128) scalar family.
	KindReadVlUInt
	KindReadVlSInt
	KindReadVlUEnum
	KindReadVlSEnum

	// String family.
	KindReadNtStr
	KindBeginReadSlStr
	KindBeginReadDlStr

	// Compound family.
	KindBeginReadStruct
	KindBeginReadSlArray
	KindBeginReadSlBlob
	KindBeginReadSlUuidArray
	KindBeginReadSlUuidBlob
	KindBeginReadDlArray
	KindBeginReadDlBlob

	// Selector family.
	KindBeginReadVarUIntSel
	KindBeginReadVarSIntSel
	KindBeginReadOptBool
	KindBeginReadOptUIntSel
	KindBeginReadOptSIntSel

	// End-compound family, one per matching Begin.
	KindEndReadSlArray
	KindEndReadDlArray
	KindEndReadStruct
	KindEndReadSlStr
	KindEndReadDlStr
	KindEndReadSlBlob
	KindEndReadDlBlob
	KindEndReadVarUIntSel
	KindEndReadVarSIntSel
	KindEndReadOptBoolSel
	KindEndReadOptUIntSel
	KindEndReadOptSIntSel

	// Scope bracketing.
	KindBeginReadScope
	KindEndReadScope

	// Control / metadata.
	KindSaveVal
	KindSetCurId
	KindSetDst
	KindSetErt
	KindSetDsId
	KindSetPktSeqNum
	KindSetPktDiscErCounterSnap
	KindSetPktTotalLen
	KindSetPktContentLen
	KindSetPktMagicNumber
	KindSetPktEndDefClkVal
	KindUpdateDefClkVal
	KindUpdateDefClkValFl
	KindSetDsInfo
	KindSetPktInfo
	KindSetErInfo

	// Procedure terminators, driving the top-level state machine.
	KindEndPktPreambleProc
	KindEndDsPktPreambleProc
	KindEndDsErPreambleProc
	KindEndErProc

	// Array bookkeeping.
	KindDecrRemainingElems
)

// OptionProc is one named, range-gated branch of a variant or optional
// selector instruction. Ranges are pairwise disjoint within one
// instruction's Options (spec invariant 5, validated at build time).
type OptionProc struct {
	Name    string
	SRanges []metadata.SIntRange
	URanges []metadata.UIntRange
	SubOff  int
	SubLen  int
}

// Instr is the single struct every instruction kind is represented with;
// only the fields relevant to Kind are meaningful, matching the flat
// tagged-variant shape spec §9 calls for in place of a class hierarchy.
type Instr struct {
	Kind Kind

	// Scalar read shape: alignment/length/byte-order/signedness and a
	// reference to the originating metadata type, carried through to
	// the element the VM emits.
	Align  metadata.Align
	Len    uint
	BO     metadata.ByteOrder
	Signed bool
	Type   metadata.DataType

	// Static compound/string/BLOB length (elements for arrays, bytes
	// for strings/BLOBs).
	FixedLen uint

	// Dynamic-length/selector slots, resolved at build time; left at
	// the zero value when not applicable to this Kind.
	LenSlot int
	SelSlot int

	// Single-body sub-procedure reference (struct, sl/dl array/blob,
	// scope). Arena-backed per spec §9's shared sub-procedures note.
	SubOff int
	SubLen int

	// Multi-body sub-procedure references, for variant/optional
	// selector instructions.
	Options []OptionProc

	// KindSaveVal.
	SaveSlot int

	// KindSetDst / KindSetErt: a fixed ID pins the destination instead
	// of reading it from the current scalar register.
	FixedID    uint64
	HasFixedID bool

	// KindUpdateDefClkValFl: bit length of the source field, carried on
	// the instruction instead of re-read from the clock type at
	// execute time (spec §9's distinct-kind clock-extension note).
	ClkBits uint

	// KindBeginReadScope.
	Scope metadata.Scope

	// Symbolic location surfaced in vm.DecodeError (spec §7): a short
	// human-readable breadcrumb like "packet-context.len", not a slot
	// index.
	Loc string
}

// Proc is the arena backing every procedure and sub-procedure built from
// one trace type: a single contiguous []Instr, with sub-procedures
// referenced by (offset, length) rather than owned pointers (spec §9).
type Proc struct {
	Instrs []Instr
}

// Slice returns the sub-procedure starting at off with length n.
func (p *Proc) Slice(off, n int) []Instr {
	return p.Instrs[off : off+n]
}
