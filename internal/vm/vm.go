package vm

import (
	"github.com/frdeso/yactfr/internal/bitio"
	"github.com/frdeso/yactfr/internal/elem"
	"github.com/frdeso/yactfr/internal/proc"
)

// phase drives the top-level state machine once the instruction frame
// stack has fully drained (spec §4.3): the transitions between a
// packet's header, its data stream's packet context, and the
// repeating event-record loop aren't expressed as proc.Instr values,
// since they span sub-procedures picked at runtime by resolved IDs.
type phase int

const (
	phaseStart phase = iota
	phaseHdr
	phaseDsPreamble
	phaseErLoop
	phaseErBody
	phaseErLoopAgain
)

// frame is one active instruction body on the VM's execution stack: a
// struct, scope, array element body, variant option, or optional body.
// Sub-procedures are arena slices (spec §9), so pushing a frame never
// allocates beyond the slice header.
type frame struct {
	instrs []proc.Instr
	ip     int

	// remaining counts elements left to decode in an array frame; unused
	// by every other frame kind.
	remaining uint64
}

// leafKind tags which multi-step leaf read is in progress.
type leafKind int

const (
	leafNone leafKind = iota
	leafNtStr
	leafSlStr
	leafDlStr
	leafSlBlob
	leafDlBlob
)

// leafState tracks an in-progress string/BLOB read, which spans as many
// Next() calls as it takes the caller to Feed enough bytes. A leaf read
// has no sub-procedure of its own (the builder emits it as one Instr),
// so its progress lives here instead of on the frame stack.
type leafState struct {
	kind      leafKind
	remaining uint64 // bytes not yet read, meaningful for non-Nt kinds

	// ntPendingEnd marks that a null-terminated string's terminator has
	// already been scanned past and only the End element remains to be
	// surfaced on the next step.
	ntPendingEnd bool
}

// VM executes one proc.TraceProc against caller-fed bytes, emitting
// elem.Elem values in document order (spec §4.3). One VM decodes one
// packet stream at a time and is owned by one caller at a time; a
// *proc.TraceProc may be shared read-only across many VMs (spec §5).
type VM struct {
	tp    *proc.TraceProc
	saved []uint64

	cur    bitio.Cursor
	frames []frame
	phase  phase
	last   uint64

	leaf leafState

	curID uint64

	curDst    *proc.DataStreamProc
	curDstID  uint64
	hasCurDst bool

	dsInstanceID    uint64
	hasDsInstanceID bool

	curErt   proc.EventRecordProc
	curErtID uint64

	pktMagic        uint32
	hasPktMagic     bool
	pktTotalLen     uint64
	hasPktTotalLen  bool
	pktContentLen   uint64
	hasPktContentLen bool
	pktSeqNum       uint64
	hasPktSeqNum    bool
	pktDiscErSnap   uint64
	hasPktDiscErSnap bool
	pktEndClock     uint64
	hasPktEndClock  bool

	defClock    uint64
	hasDefClock bool

	inputClosed bool

	expectMagic    uint32
	hasExpectMagic bool
	expectUUID     [16]byte
	hasExpectUUID  bool
}

// Option configures optional cross-checks a VM performs while decoding.
type Option func(*VM)

// WithExpectedMagicNumber rejects a packet whose header magic number
// field doesn't equal want, surfacing vm.ErrMagicMismatch.
func WithExpectedMagicNumber(want uint32) Option {
	return func(v *VM) { v.expectMagic = want; v.hasExpectMagic = true }
}

// WithExpectedMetadataStreamUUID rejects a packet whose header
// metadata-stream-UUID field doesn't equal want, surfacing
// vm.ErrMetadataStreamUuidMismatch.
func WithExpectedMetadataStreamUUID(want [16]byte) Option {
	return func(v *VM) { v.expectUUID = want; v.hasExpectUUID = true }
}

// New returns a VM ready to decode packets against tp. slotCount is the
// saved-value slot count Build returned alongside tp.
func New(tp *proc.TraceProc, slotCount int, opts ...Option) *VM {
	v := &VM{
		tp:    tp,
		saved: make([]uint64, slotCount),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Feed appends more input bytes for the VM to decode.
func (v *VM) Feed(b []byte) {
	v.cur.Feed(b)
}

// CloseInput tells the VM no further bytes will ever be fed. Once the
// buffered input is fully consumed at a packet boundary, Next reports
// StatusEnd instead of StatusNeedMoreData.
func (v *VM) CloseInput() {
	v.inputClosed = true
}

// Reset abandons the packet currently being decoded, if any, and
// rewinds the VM to a fresh stream boundary. It reports
// ErrDecodeInProgress instead if the VM is mid-packet and still holds
// buffered bytes a caller might want to inspect before they're
// discarded.
func (v *VM) Reset() error {
	if v.phase != phaseStart && v.cur.AvailableBits() > 0 {
		return ErrDecodeInProgress
	}
	v.cur.Reset()
	v.frames = v.frames[:0]
	v.phase = phaseStart
	v.inputClosed = false
	v.resetPacketState()
	return nil
}

// resetPacketState clears every per-packet register ahead of decoding a
// new packet; saved-value slots are left alone deliberately, since a
// slot belongs to one data-stream/event-record procedure and is always
// overwritten by its own SaveVal before anything reads it again.
func (v *VM) resetPacketState() {
	v.hasCurDst = false
	v.curDst = nil
	v.hasDsInstanceID = false
	v.hasPktMagic = false
	v.hasPktTotalLen = false
	v.hasPktContentLen = false
	v.hasPktSeqNum = false
	v.hasPktDiscErSnap = false
	v.hasPktEndClock = false
	v.hasDefClock = false
	v.leaf = leafState{}
}

func (v *VM) pushFrame(instrs []proc.Instr) {
	v.frames = append(v.frames, frame{instrs: instrs})
}

// pushFrameAt pushes instrs with the cursor already positioned at ip,
// used to skip straight to an interned sub-procedure's guaranteed-last
// End instruction for a zero-element array or an absent optional,
// without a dedicated skip instruction (spec §9 arena layout note).
func (v *VM) pushFrameAt(instrs []proc.Instr, ip int) {
	v.frames = append(v.frames, frame{instrs: instrs, ip: ip})
}

// Next returns the next element in document order, or a Status
// explaining why none is available yet.
func (v *VM) Next() (elem.Elem, Status, error) {
	for {
		if len(v.frames) == 0 {
			e, status, err := v.advance()
			if err != nil {
				return nil, 0, err
			}
			if status == StatusNeedMoreData && v.inputClosed {
				return nil, 0, v.errEndOfInput("packet-padding")
			}
			if status != StatusOK {
				return e, status, nil
			}
			if e != nil {
				return e, StatusOK, nil
			}
			continue
		}

		fi := len(v.frames) - 1
		if v.frames[fi].ip >= len(v.frames[fi].instrs) {
			v.frames = v.frames[:fi]
			continue
		}

		// instr points into the shared, immutable instruction arena, not
		// into v.frames, so it stays valid even if exec appends a child
		// frame and reallocates v.frames's backing array underneath it.
		instr := &v.frames[fi].instrs[v.frames[fi].ip]
		e, consumed, status, err := v.exec(instr, fi)
		if err != nil {
			return nil, 0, err
		}
		if status == StatusNeedMoreData {
			if v.inputClosed {
				return nil, 0, v.errEndOfInput(instr.Loc)
			}
			return nil, StatusNeedMoreData, nil
		}
		if consumed {
			// Re-index rather than reuse a pointer taken before exec
			// ran: exec may have appended a child frame, and append can
			// reallocate v.frames's backing array.
			v.frames[fi].ip++
		}
		if e != nil {
			return e, StatusOK, nil
		}
	}
}

// advance runs the top-level phase transitions, invoked only once the
// frame stack is empty (spec §4.3's packet/data-stream/event-record
// preamble handoffs).
func (v *VM) advance() (elem.Elem, Status, error) {
	switch v.phase {
	case phaseStart:
		if v.cur.AvailableBits() == 0 {
			if v.inputClosed {
				return elem.End{}, StatusEnd, nil
			}
			return nil, StatusNeedMoreData, nil
		}
		v.resetPacketState()
		v.pushFrame(v.tp.Arena.Slice(v.tp.PktHdrPreambleOff, v.tp.PktHdrPreambleLen))
		v.phase = phaseHdr
		return elem.PacketBegin{}, StatusOK, nil

	case phaseHdr:
		if !v.hasCurDst {
			return nil, 0, v.errAt(errInternal, "packet-header", "no data stream type resolved")
		}
		v.pushFrame(v.tp.Arena.Slice(v.curDst.PktPreambleOff, v.curDst.PktPreambleLen))
		v.phase = phaseDsPreamble
		return nil, StatusOK, nil

	case phaseDsPreamble:
		v.phase = phaseErLoop
		return nil, StatusOK, nil

	case phaseErLoop:
		done, status := v.contentExhausted()
		if status != StatusOK {
			return nil, status, nil
		}
		if done {
			return v.finishPacket()
		}
		v.pushFrame(v.tp.Arena.Slice(v.curDst.ErPreambleOff, v.curDst.ErPreambleLen))
		v.phase = phaseErBody
		return nil, StatusOK, nil

	case phaseErBody:
		v.pushFrame(v.tp.Arena.Slice(v.curErt.Off, v.curErt.Len))
		v.phase = phaseErLoopAgain
		return nil, StatusOK, nil

	case phaseErLoopAgain:
		v.phase = phaseErLoop
		return nil, StatusOK, nil
	}
	return nil, 0, v.errAt(errInternal, "vm", "unreachable phase")
}

// contentLimit returns the packet-absolute bit offset at which this
// packet's content ends, preferring the declared content length over
// the total length (spec §3.2's padding region is content..total).
func (v *VM) contentLimit() (uint64, bool) {
	if v.hasPktContentLen {
		return v.pktContentLen, true
	}
	if v.hasPktTotalLen {
		return v.pktTotalLen, true
	}
	return 0, false
}

// contentExhausted reports whether the current packet has no more
// event records left to decode. When neither a content nor a total
// length was declared, the packet runs until the caller's input is
// exhausted and CloseInput has been called, since there is no other
// signal for where the packet ends.
func (v *VM) contentExhausted() (bool, Status) {
	if lim, ok := v.contentLimit(); ok {
		return uint64(v.cur.BitOffset()) >= lim, StatusOK
	}
	if v.cur.AvailableBits() == 0 {
		if v.inputClosed {
			return true, StatusOK
		}
		return false, StatusNeedMoreData
	}
	return false, StatusOK
}

// finishPacket skips any trailing padding up to the declared total
// length, emits PacketEnd, and rewinds the cursor for the next packet
// without discarding bytes belonging to it (spec §5's ResetPacket
// distinction from a caller-initiated Reset).
func (v *VM) finishPacket() (elem.Elem, Status, error) {
	if v.hasPktTotalLen {
		pos := uint64(v.cur.BitOffset())
		switch {
		case pos < v.pktTotalLen:
			if !v.cur.SkipBits(uint(v.pktTotalLen - pos)) {
				return nil, StatusNeedMoreData, nil
			}
		case pos > v.pktTotalLen:
			return nil, 0, v.errAt(ErrOversizedPacketContent, "packet", "decoded content exceeds declared total length")
		}
	}
	v.cur.ResetPacket()
	v.phase = phaseStart
	return elem.PacketEnd{}, StatusOK, nil
}

// signExtend interprets the low n bits of raw as a two's-complement
// signed integer and sign-extends it to a full int64.
func signExtend(raw uint64, n uint) int64 {
	if n >= 64 {
		return int64(raw)
	}
	shift := 64 - n
	return int64(raw<<shift) >> shift
}

// updateClockCarry folds a newly decoded low-order clock field back
// into a wider running clock register, carrying one unit into the
// untouched high bits whenever the new low bits are numerically smaller
// than the ones they replace (the field wrapped around since the last
// update). bits is the bit width of the field that was just read.
func updateClockCarry(old uint64, newLow uint64, bits uint) uint64 {
	if bits >= 64 {
		return newLow
	}
	mask := uint64(1)<<bits - 1
	oldLow := old & mask
	high := old &^ mask
	if newLow&mask < oldLow {
		high += mask + 1
	}
	return high | (newLow & mask)
}
