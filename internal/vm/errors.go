package vm

import (
	"errors"
	"fmt"
)

// ErrorKind identifies the class of a decoding failure (spec §7).
type ErrorKind string

const (
	ErrMagicMismatch                ErrorKind = "magic-mismatch"
	ErrUnknownDataStreamType        ErrorKind = "unknown-data-stream-type"
	ErrUnknownEventRecordType       ErrorKind = "unknown-event-record-type"
	ErrUnknownVariantSelector       ErrorKind = "unknown-variant-selector"
	ErrOversizedPacketContent       ErrorKind = "oversized-packet-content"
	ErrPrematurePacketEnd           ErrorKind = "premature-packet-end"
	ErrInvalidVariableLengthInteger ErrorKind = "invalid-variable-length-integer"
	ErrMetadataStreamUuidMismatch   ErrorKind = "metadata-stream-uuid-mismatch"
	ErrEndOfStream                  ErrorKind = "end-of-stream"

	// errInternal marks a builder-invariant violation (an unset saved
	// slot, an option list a validated build should never produce).
	// Not one of spec §7's named kinds; it exists purely as a defensive
	// assertion, mirroring the teacher's own few "should never happen"
	// typed-error paths rather than a bare panic mid-decode.
	errInternal ErrorKind = "internal"
)

// DecodeError reports a decoding failure at the Next() boundary,
// carrying the packet-absolute bit offset and the offending
// instruction's symbolic location (spec §7). It is never returned for
// NeedMoreData, which is a Status, not an error.
type DecodeError struct {
	Kind      ErrorKind
	BitOffset int64
	InstrLoc  string
	Err       error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("vm: %s at bit %d (%s): %v", e.Kind, e.BitOffset, e.InstrLoc, e.Err)
	}
	return fmt.Sprintf("vm: %s at bit %d (%s)", e.Kind, e.BitOffset, e.InstrLoc)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ErrDecodeInProgress is returned by Reset when called while the VM
// still has buffered input it hasn't been asked to abandon, following
// the teacher's sentinel-for-simple-conditions half of its error style
// (internal/protocol/errors.go).
var ErrDecodeInProgress = errors.New("vm: decode in progress")

func (v *VM) errAt(kind ErrorKind, loc string, reason string) error {
	var err error
	if reason != "" {
		err = errors.New(reason)
	}
	return &DecodeError{Kind: kind, BitOffset: v.cur.BitOffset(), InstrLoc: loc, Err: err}
}

// errEndOfInput classifies a read that stalled for lack of bits once the
// caller has signalled no more input is coming (CloseInput), per spec
// §7: a declared packet length that promised more bits than the stream
// actually supplied is a PrematurePacketEnd; with no such promise in
// play, the stream simply ended mid-field (EndOfStream).
func (v *VM) errEndOfInput(loc string) error {
	if v.hasPktTotalLen && v.cur.BitOffset() < int64(v.pktTotalLen) {
		return v.errAt(ErrPrematurePacketEnd, loc, "")
	}
	return v.errAt(ErrEndOfStream, loc, "")
}
