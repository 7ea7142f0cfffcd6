package vm

import (
	"math"

	"github.com/frdeso/yactfr/internal/elem"
	"github.com/frdeso/yactfr/internal/metadata"
	"github.com/frdeso/yactfr/internal/proc"
)

// exec runs one instruction of the frame on top of the stack. It
// returns the element to surface to the caller (nil if this step is
// silent), whether the instruction fully completed (and so fr.ip should
// advance), and a status/error pair following the same NeedMoreData
// convention as Next.
func (v *VM) exec(instr *proc.Instr, fi int) (elem.Elem, bool, Status, error) {
	switch {
	case instr.Kind <= proc.KindReadFlBoolA64LE:
		return v.execFlScalar(instr)
	case instr.Kind >= proc.KindReadVlUInt && instr.Kind <= proc.KindReadVlSEnum:
		return v.execVlScalar(instr)
	}

	switch instr.Kind {
	case proc.KindReadNtStr:
		return v.execLeafStep(instr, leafNtStr, 0)
	case proc.KindBeginReadSlStr:
		return v.execLeafStep(instr, leafSlStr, uint64(instr.FixedLen))
	case proc.KindBeginReadDlStr:
		return v.execLeafStep(instr, leafDlStr, v.saved[instr.LenSlot])
	case proc.KindBeginReadSlBlob:
		return v.execLeafStep(instr, leafSlBlob, uint64(instr.FixedLen))
	case proc.KindBeginReadDlBlob:
		return v.execLeafStep(instr, leafDlBlob, v.saved[instr.LenSlot])
	case proc.KindBeginReadSlUuidArray, proc.KindBeginReadSlUuidBlob:
		return v.execUuid(instr)

	case proc.KindBeginReadStruct:
		if !v.cur.Align(uint(instr.Align)) {
			return nil, false, StatusNeedMoreData, nil
		}
		v.pushFrame(v.tp.Arena.Slice(instr.SubOff, instr.SubLen))
		st, _ := instr.Type.(*metadata.StructType)
		return elem.StructBegin{Type: st}, true, StatusOK, nil

	case proc.KindBeginReadScope:
		if !v.cur.Align(uint(instr.Align)) {
			return nil, false, StatusNeedMoreData, nil
		}
		v.pushFrame(v.tp.Arena.Slice(instr.SubOff, instr.SubLen))
		return elem.ScopeBegin{Scope: instr.Scope}, true, StatusOK, nil

	case proc.KindBeginReadSlArray:
		n := uint64(instr.FixedLen)
		if n == 0 {
			v.pushFrameAt(v.tp.Arena.Slice(instr.SubOff, instr.SubLen), instr.SubLen-1)
		} else {
			v.frames = append(v.frames, frame{instrs: v.tp.Arena.Slice(instr.SubOff, instr.SubLen), remaining: n})
		}
		at, _ := instr.Type.(*metadata.SlArrayType)
		return elem.StaticLengthArrayBegin{Len: instr.FixedLen, Type: at}, true, StatusOK, nil

	case proc.KindBeginReadDlArray:
		n := v.saved[instr.LenSlot]
		if n == 0 {
			v.pushFrameAt(v.tp.Arena.Slice(instr.SubOff, instr.SubLen), instr.SubLen-1)
		} else {
			v.frames = append(v.frames, frame{instrs: v.tp.Arena.Slice(instr.SubOff, instr.SubLen), remaining: n})
		}
		at, _ := instr.Type.(*metadata.DlArrayType)
		return elem.DynamicLengthArrayBegin{Len: n, Type: at}, true, StatusOK, nil

	case proc.KindDecrRemainingElems:
		v.frames[fi].remaining--
		if v.frames[fi].remaining > 0 {
			v.frames[fi].ip = 0
		} else {
			v.frames[fi].ip++
		}
		return nil, false, StatusOK, nil

	case proc.KindBeginReadVarUIntSel, proc.KindBeginReadVarSIntSel:
		return v.execBeginVariant(instr)

	case proc.KindBeginReadOptBool:
		present := v.saved[instr.SelSlot] != 0
		v.pushBodyFrame(instr.SubOff, instr.SubLen, present)
		return elem.OptionalBegin{Present: present}, true, StatusOK, nil

	case proc.KindBeginReadOptUIntSel:
		sel := v.saved[instr.SelSlot]
		present := rangesContainU(instr.Options[0].URanges, sel)
		v.pushBodyFrame(instr.Options[0].SubOff, instr.Options[0].SubLen, present)
		return elem.OptionalBegin{Present: present}, true, StatusOK, nil

	case proc.KindBeginReadOptSIntSel:
		sel := int64(v.saved[instr.SelSlot])
		present := rangesContainS(instr.Options[0].SRanges, sel)
		v.pushBodyFrame(instr.Options[0].SubOff, instr.Options[0].SubLen, present)
		return elem.OptionalBegin{Present: present}, true, StatusOK, nil

	case proc.KindEndReadSlArray:
		return elem.StaticLengthArrayEnd{}, true, StatusOK, nil
	case proc.KindEndReadDlArray:
		return elem.DynamicLengthArrayEnd{}, true, StatusOK, nil
	case proc.KindEndReadStruct:
		return elem.StructEnd{}, true, StatusOK, nil
	case proc.KindEndReadScope:
		return elem.ScopeEnd{}, true, StatusOK, nil
	case proc.KindEndReadVarUIntSel, proc.KindEndReadVarSIntSel:
		return elem.VariantEnd{}, true, StatusOK, nil
	case proc.KindEndReadOptBoolSel, proc.KindEndReadOptUIntSel, proc.KindEndReadOptSIntSel:
		return elem.OptionalEnd{}, true, StatusOK, nil
	case proc.KindEndReadSlStr, proc.KindEndReadDlStr, proc.KindEndReadSlBlob, proc.KindEndReadDlBlob:
		// Never emitted by the builder: Begin*Str/Blob instructions are
		// self-contained leaf reads executed entirely by execLeafStep.
		return nil, true, StatusOK, nil

	case proc.KindSaveVal:
		v.saved[instr.SaveSlot] = v.last
		return nil, true, StatusOK, nil

	case proc.KindSetCurId:
		v.curID = v.last
		return nil, true, StatusOK, nil

	case proc.KindSetDsId:
		v.dsInstanceID = v.last
		v.hasDsInstanceID = true
		return nil, true, StatusOK, nil

	case proc.KindSetDst:
		id := v.curID
		if instr.HasFixedID {
			id = instr.FixedID
		}
		dp, ok := v.tp.DataStreamProcByID(id)
		if !ok {
			return nil, false, 0, v.errAt(ErrUnknownDataStreamType, instr.Loc, "")
		}
		v.curDst = dp
		v.curDstID = id
		v.hasCurDst = true
		return nil, true, StatusOK, nil

	case proc.KindSetErt:
		id := v.curID
		if instr.HasFixedID {
			id = instr.FixedID
		}
		erp, ok := v.curDst.EventRecordProcByID(id)
		if !ok {
			return nil, false, 0, v.errAt(ErrUnknownEventRecordType, instr.Loc, "")
		}
		v.curErt = erp
		v.curErtID = id
		return nil, true, StatusOK, nil

	case proc.KindSetPktMagicNumber:
		v.pktMagic = uint32(v.last)
		v.hasPktMagic = true
		if v.hasExpectMagic && v.pktMagic != v.expectMagic {
			return nil, false, 0, v.errAt(ErrMagicMismatch, instr.Loc, "")
		}
		return elem.PacketMagicNumber{Value: v.pktMagic}, true, StatusOK, nil

	case proc.KindSetPktTotalLen:
		v.pktTotalLen = v.last
		v.hasPktTotalLen = true
		return nil, true, StatusOK, nil

	case proc.KindSetPktContentLen:
		v.pktContentLen = v.last
		v.hasPktContentLen = true
		return nil, true, StatusOK, nil

	case proc.KindSetPktSeqNum:
		v.pktSeqNum = v.last
		v.hasPktSeqNum = true
		return nil, true, StatusOK, nil

	case proc.KindSetPktDiscErCounterSnap:
		v.pktDiscErSnap = v.last
		v.hasPktDiscErSnap = true
		return nil, true, StatusOK, nil

	case proc.KindSetPktEndDefClkVal:
		v.pktEndClock = v.last
		v.hasPktEndClock = true
		return nil, true, StatusOK, nil

	case proc.KindUpdateDefClkVal:
		v.defClock = v.last
		v.hasDefClock = true
		return elem.DefaultClockValue{CycleCount: v.defClock}, true, StatusOK, nil

	case proc.KindUpdateDefClkValFl:
		v.defClock = updateClockCarry(v.defClock, v.last, instr.ClkBits)
		v.hasDefClock = true
		return elem.DefaultClockValue{CycleCount: v.defClock}, true, StatusOK, nil

	case proc.KindSetDsInfo:
		return elem.DataStreamInfo{
			TypeID:      v.curDstID,
			TypeIDValid: v.hasCurDst,
			ID:          v.dsInstanceID,
			IDValid:     v.hasDsInstanceID,
		}, true, StatusOK, nil

	case proc.KindSetPktInfo:
		return elem.PacketInfo{
			TotalLen:          v.pktTotalLen,
			TotalLenValid:     v.hasPktTotalLen,
			ContentLen:        v.pktContentLen,
			ContentLenValid:   v.hasPktContentLen,
			SeqNum:            v.pktSeqNum,
			SeqNumValid:       v.hasPktSeqNum,
			DiscErCounterSnap: v.pktDiscErSnap,
			DiscErSnapValid:   v.hasPktDiscErSnap,
			BeginClock:        v.defClock,
			BeginClockValid:   v.hasDefClock,
			EndClock:          v.pktEndClock,
			EndClockValid:     v.hasPktEndClock,
		}, true, StatusOK, nil

	case proc.KindSetErInfo:
		return elem.EventRecordInfo{TypeID: v.curErtID}, true, StatusOK, nil

	case proc.KindEndPktPreambleProc, proc.KindEndDsPktPreambleProc,
		proc.KindEndDsErPreambleProc, proc.KindEndErProc:
		// Silent terminators: reaching them just drains this frame: the
		// phase machine in advance() picks up once the stack is empty.
		return nil, true, StatusOK, nil
	}

	return nil, false, 0, v.errAt(errInternal, instr.Loc, "unhandled instruction kind")
}

func (v *VM) pushBodyFrame(off, n int, present bool) {
	if present {
		v.pushFrame(v.tp.Arena.Slice(off, n))
	} else {
		v.pushFrameAt(v.tp.Arena.Slice(off, n), n-1)
	}
}

func (v *VM) execBeginVariant(instr *proc.Instr) (elem.Elem, bool, Status, error) {
	sel := v.saved[instr.SelSlot]
	for i, opt := range instr.Options {
		matched := false
		if instr.Signed {
			matched = rangesContainS(opt.SRanges, int64(sel))
		} else {
			matched = rangesContainU(opt.URanges, sel)
		}
		if matched {
			v.pushFrame(v.tp.Arena.Slice(opt.SubOff, opt.SubLen))
			vt, _ := instr.Type.(*metadata.VarType)
			return elem.VariantBegin{OptionIndex: i, Type: vt}, true, StatusOK, nil
		}
	}
	return nil, false, 0, v.errAt(ErrUnknownVariantSelector, instr.Loc, "")
}

func rangesContainU(ranges []metadata.UIntRange, v uint64) bool {
	for _, r := range ranges {
		if r.Contains(v) {
			return true
		}
	}
	return false
}

func rangesContainS(ranges []metadata.SIntRange, v int64) bool {
	for _, r := range ranges {
		if r.Contains(v) {
			return true
		}
	}
	return false
}

func (v *VM) execUuid(instr *proc.Instr) (elem.Elem, bool, Status, error) {
	if !v.cur.Align(8) {
		return nil, false, StatusNeedMoreData, nil
	}
	b, ok := v.cur.ReadBytes(16)
	if !ok {
		return nil, false, StatusNeedMoreData, nil
	}
	var out [16]byte
	copy(out[:], b)
	if v.hasExpectUUID && out != v.expectUUID {
		return nil, false, 0, v.errAt(ErrMetadataStreamUuidMismatch, instr.Loc, "")
	}
	return elem.MetadataStreamUUID{UUID: out}, true, StatusOK, nil
}

// execFlScalar reads one fixed-length scalar family instruction: the
// generic Kind does an unaligned bit-level extract; the A*-suffixed
// fast-path kinds (spec §4.1 step 1) require byte alignment and read a
// native word directly, byte-swapping for little-endian.
func (v *VM) execFlScalar(instr *proc.Instr) (elem.Elem, bool, Status, error) {
	raw, ok := v.readFlWord(instr)
	if !ok {
		return nil, false, StatusNeedMoreData, nil
	}

	family := flFamily(instr.Kind)
	switch family {
	case proc.KindReadFlBitArray:
		v.last = raw
		return elem.FixedLengthBitArray{Bits: raw, Type: instr.Type}, true, StatusOK, nil
	case proc.KindReadFlSInt, proc.KindReadFlSEnum:
		se := signExtend(raw, instr.Len)
		v.last = uint64(se)
		return elem.FixedLengthSignedInteger{Value: se, Type: instr.Type}, true, StatusOK, nil
	case proc.KindReadFlUInt, proc.KindReadFlUEnum:
		v.last = raw
		return elem.FixedLengthUnsignedInteger{Value: raw, Type: instr.Type}, true, StatusOK, nil
	case proc.KindReadFlFloat:
		ft, _ := instr.Type.(*metadata.FlFloatType)
		var f float64
		if instr.Len == 32 {
			f = float64(math.Float32frombits(uint32(raw)))
		} else {
			f = math.Float64frombits(raw)
		}
		return elem.FixedLengthFloat{Value: f, Type: ft}, true, StatusOK, nil
	case proc.KindReadFlBool:
		bt, _ := instr.Type.(*metadata.FlBoolType)
		v.last = raw
		return elem.FixedLengthBool{Value: raw != 0, Type: bt}, true, StatusOK, nil
	}
	return nil, false, 0, v.errAt(errInternal, instr.Loc, "unreachable fixed-length scalar family")
}

// flFamily maps any Kind in the fixed-length scalar range back to its
// family's base (non-fast-path) Kind, the 8-wide layout flFastKind
// relies on at build time.
func flFamily(k proc.Kind) proc.Kind {
	return k - (k-proc.KindReadFlBitArray)%8
}

// readFlWord reads the raw bit pattern for a fixed-length scalar
// instruction, dispatching to the aligned-word fast path when the
// builder picked one.
func (v *VM) readFlWord(instr *proc.Instr) (uint64, bool) {
	if !v.cur.Align(uint(instr.Align)) {
		return 0, false
	}
	if isFastKind(instr.Kind) {
		nBytes := int(instr.Len / 8)
		return v.cur.ReadAlignedWord(nBytes, instr.BO == metadata.LittleEndian)
	}
	return v.cur.ReadBits(instr.Len)
}

func isFastKind(k proc.Kind) bool {
	return (k-proc.KindReadFlBitArray)%8 != 0
}

// execVlScalar reads one LEB128-encoded scalar.
func (v *VM) execVlScalar(instr *proc.Instr) (elem.Elem, bool, Status, error) {
	if !v.cur.Align(8) {
		return nil, false, StatusNeedMoreData, nil
	}
	switch instr.Kind {
	case proc.KindReadVlUInt, proc.KindReadVlUEnum:
		val, _, ok, err := v.cur.ReadVlUInt()
		if err != nil {
			return nil, false, 0, v.errAt(ErrInvalidVariableLengthInteger, instr.Loc, err.Error())
		}
		if !ok {
			return nil, false, StatusNeedMoreData, nil
		}
		v.last = val
		return elem.VariableLengthUnsignedInteger{Value: val, Type: instr.Type}, true, StatusOK, nil
	case proc.KindReadVlSInt, proc.KindReadVlSEnum:
		val, _, ok, err := v.cur.ReadVlSInt()
		if err != nil {
			return nil, false, 0, v.errAt(ErrInvalidVariableLengthInteger, instr.Loc, err.Error())
		}
		if !ok {
			return nil, false, StatusNeedMoreData, nil
		}
		v.last = uint64(val)
		return elem.VariableLengthSignedInteger{Value: val, Type: instr.Type}, true, StatusOK, nil
	}
	return nil, false, 0, v.errAt(errInternal, instr.Loc, "unreachable variable-length scalar kind")
}

// execLeafStep advances a string/BLOB leaf read by one chunk. total is
// ignored for leafNtStr, which has no declared length. The leaf state
// persists across Next() calls until the End element has been emitted.
func (v *VM) execLeafStep(instr *proc.Instr, kind leafKind, total uint64) (elem.Elem, bool, Status, error) {
	if v.leaf.kind == leafNone {
		v.leaf = leafState{kind: kind, remaining: total}
		return v.beginLeafElem(instr), false, StatusOK, nil
	}

	if kind == leafNtStr {
		return v.stepNtStr(instr)
	}
	return v.stepFixedLeaf(instr, kind)
}

func (v *VM) beginLeafElem(instr *proc.Instr) elem.Elem {
	switch v.leaf.kind {
	case leafNtStr:
		return elem.DynamicLengthStringBegin{MaxLen: 0, Type: nil}
	case leafSlStr:
		st, _ := instr.Type.(*metadata.SlStrType)
		return elem.StaticLengthStringBegin{MaxLen: instr.FixedLen, Type: st}
	case leafDlStr:
		dt, _ := instr.Type.(*metadata.DlStrType)
		return elem.DynamicLengthStringBegin{MaxLen: v.leaf.remaining, Type: dt}
	case leafSlBlob, leafDlBlob:
		return elem.BlobBegin{Len: v.leaf.remaining}
	}
	return nil
}

func (v *VM) stepFixedLeaf(instr *proc.Instr, kind leafKind) (elem.Elem, bool, Status, error) {
	if v.leaf.remaining == 0 {
		v.leaf = leafState{}
		return v.endLeafElem(kind), true, StatusOK, nil
	}
	if !v.cur.Align(8) {
		return nil, false, StatusNeedMoreData, nil
	}
	avail := uint64(v.cur.AvailableBits() / 8)
	if avail == 0 {
		return nil, false, StatusNeedMoreData, nil
	}
	n := v.leaf.remaining
	if avail < n {
		n = avail
	}
	b, ok := v.cur.ReadBytes(int(n))
	if !ok {
		return nil, false, StatusNeedMoreData, nil
	}
	v.leaf.remaining -= n
	if kind == leafSlStr || kind == leafDlStr {
		return elem.SubstringBytes{Bytes: b}, false, StatusOK, nil
	}
	return elem.BlobSectionBytes{Bytes: b}, false, StatusOK, nil
}

func (v *VM) endLeafElem(kind leafKind) elem.Elem {
	switch kind {
	case leafSlStr:
		return elem.StaticLengthStringEnd{}
	case leafDlStr:
		return elem.DynamicLengthStringEnd{}
	default:
		return elem.BlobEnd{}
	}
}

func (v *VM) stepNtStr(instr *proc.Instr) (elem.Elem, bool, Status, error) {
	if v.leaf.ntPendingEnd {
		v.leaf = leafState{}
		return elem.DynamicLengthStringEnd{}, true, StatusOK, nil
	}
	if !v.cur.Align(8) {
		return nil, false, StatusNeedMoreData, nil
	}
	idx, found := v.cur.ScanZero()
	if found {
		if idx == 0 {
			v.cur.SkipBits(8)
			v.leaf = leafState{}
			return elem.DynamicLengthStringEnd{}, true, StatusOK, nil
		}
		b, ok := v.cur.ReadBytes(idx)
		if !ok {
			return nil, false, StatusNeedMoreData, nil
		}
		v.cur.SkipBits(8)
		v.leaf.ntPendingEnd = true
		return elem.SubstringBytes{Bytes: b}, false, StatusOK, nil
	}
	if idx == 0 {
		return nil, false, StatusNeedMoreData, nil
	}
	b, ok := v.cur.ReadBytes(idx)
	if !ok {
		return nil, false, StatusNeedMoreData, nil
	}
	return elem.SubstringBytes{Bytes: b}, false, StatusOK, nil
}
