package vm

import (
	"testing"

	"github.com/frdeso/yactfr/internal/elem"
	"github.com/frdeso/yactfr/internal/metadata"
	"github.com/frdeso/yactfr/internal/proc"
)

func u8Type() *metadata.FlIntType {
	return &metadata.FlIntType{
		FlBitArrayType: metadata.FlBitArrayType{MinAlign: 8, Len: 8, BO: metadata.BigEndian},
	}
}

// minimalTrace builds the smallest possible trace: no packet header, one
// data stream type with no packet context, one event record type whose
// payload is a single u8 struct member. It exercises the packet-begin,
// data-stream/event-record dispatch, and packet-end machinery with
// nothing else in the way.
func minimalTrace(t *testing.T) (*proc.TraceProc, int) {
	t.Helper()
	payload := &metadata.StructType{
		MinAlign: 8,
		Members:  []metadata.StructMember{{Name: "value", Type: u8Type()}},
	}
	ert := &metadata.EventRecordType{ID: 0, PayloadType: payload}
	dst := &metadata.DataStreamType{ID: 0, EventRecordTypes: []*metadata.EventRecordType{ert}}
	tt := &metadata.TraceType{DataStreamTypes: []*metadata.DataStreamType{dst}}

	tp, slots, err := proc.Build(tt)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return tp, slots
}

func nextOK(t *testing.T, v *VM) elem.Elem {
	t.Helper()
	e, status, err := v.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if status != StatusOK {
		t.Fatalf("Next status = %v, want StatusOK", status)
	}
	return e
}

func TestMinimalPacket(t *testing.T) {
	tp, slots := minimalTrace(t)
	v := New(tp, slots)
	v.Feed([]byte{0x2A})
	v.CloseInput()

	if _, ok := nextOK(t, v).(elem.PacketBegin); !ok {
		t.Fatal("expected PacketBegin")
	}
	pi, ok := nextOK(t, v).(elem.PacketInfo)
	if !ok || pi.TotalLenValid {
		t.Fatalf("expected invalid PacketInfo, got %#v ok=%v", pi, ok)
	}
	di, ok := nextOK(t, v).(elem.DataStreamInfo)
	if !ok || !di.TypeIDValid || di.TypeID != 0 {
		t.Fatalf("expected DataStreamInfo type 0, got %#v ok=%v", di, ok)
	}
	ei, ok := nextOK(t, v).(elem.EventRecordInfo)
	if !ok || ei.TypeID != 0 {
		t.Fatalf("expected EventRecordInfo type 0, got %#v ok=%v", ei, ok)
	}
	sb, ok := nextOK(t, v).(elem.ScopeBegin)
	if !ok || sb.Scope != metadata.EventRecordPayload {
		t.Fatalf("expected ScopeBegin(event-record-payload), got %#v ok=%v", sb, ok)
	}
	if _, ok := nextOK(t, v).(elem.StructBegin); !ok {
		t.Fatal("expected StructBegin")
	}
	scalar, ok := nextOK(t, v).(elem.FixedLengthUnsignedInteger)
	if !ok || scalar.Value != 0x2A {
		t.Fatalf("expected value 0x2A, got %#v ok=%v", scalar, ok)
	}
	if _, ok := nextOK(t, v).(elem.StructEnd); !ok {
		t.Fatal("expected StructEnd")
	}
	if _, ok := nextOK(t, v).(elem.ScopeEnd); !ok {
		t.Fatal("expected ScopeEnd")
	}
	if _, ok := nextOK(t, v).(elem.PacketEnd); !ok {
		t.Fatal("expected PacketEnd")
	}
	e, status, err := v.Next()
	if err != nil || status != StatusEnd {
		t.Fatalf("expected StatusEnd, got e=%#v status=%v err=%v", e, status, err)
	}
}

func TestMinimalPacketIncrementalFeed(t *testing.T) {
	tp, slots := minimalTrace(t)
	v := New(tp, slots)

	if _, status, _ := v.Next(); status != StatusNeedMoreData {
		t.Fatalf("expected StatusNeedMoreData before any bytes fed, got %v", status)
	}

	v.Feed([]byte{0x2A})
	if _, ok := nextOK(t, v).(elem.PacketBegin); !ok {
		t.Fatal("expected PacketBegin")
	}
	nextOK(t, v) // PacketInfo
	nextOK(t, v) // DataStreamInfo
	nextOK(t, v) // EventRecordInfo
	nextOK(t, v) // ScopeBegin (payload)
	nextOK(t, v) // StructBegin
	scalar :=nextOK(t, v).(elem.FixedLengthUnsignedInteger)
	if scalar.Value != 0x2A {
		t.Fatalf("got %#v", scalar)
	}
	nextOK(t, v) // StructEnd
	nextOK(t, v) // ScopeEnd

	// No more input yet and input not closed: the VM must wait rather
	// than guess the packet is over.
	if _, status, _ := v.Next(); status != StatusNeedMoreData {
		t.Fatalf("expected StatusNeedMoreData mid-packet, got %v", status)
	}
	v.CloseInput()
	if _, ok := nextOK(t, v).(elem.PacketEnd); !ok {
		t.Fatal("expected PacketEnd once input is closed")
	}
}

// dynArrayTrace builds a trace whose event record payload is a u8
// length followed by a dynamic-length array of u8 elements whose count
// is read back from the length member's saved-value slot.
func dynArrayTrace(t *testing.T) (*proc.TraceProc, int) {
	t.Helper()
	payload := &metadata.StructType{
		MinAlign: 8,
		Members: []metadata.StructMember{
			{Name: "len", Type: u8Type()},
			{Name: "data", Type: &metadata.DlArrayType{
				LenLoc:   metadata.DataLoc{Scope: metadata.EventRecordPayload, Path: []string{"len"}},
				ElemType: u8Type(),
			}},
		},
	}
	ert := &metadata.EventRecordType{ID: 0, PayloadType: payload}
	dst := &metadata.DataStreamType{ID: 0, EventRecordTypes: []*metadata.EventRecordType{ert}}
	tt := &metadata.TraceType{DataStreamTypes: []*metadata.DataStreamType{dst}}

	tp, slots, err := proc.Build(tt)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return tp, slots
}

func TestDynamicLengthArrayOfU8(t *testing.T) {
	tp, slots := dynArrayTrace(t)
	v := New(tp, slots)
	v.Feed([]byte{0x03, 0x10, 0x11, 0x12})
	v.CloseInput()

	nextOK(t, v) // PacketBegin
	nextOK(t, v) // PacketInfo
	nextOK(t, v) // DataStreamInfo
	nextOK(t, v) // EventRecordInfo
	nextOK(t, v) // ScopeBegin (payload)
	nextOK(t, v) // StructBegin

	lenElem := nextOK(t, v).(elem.FixedLengthUnsignedInteger)
	if lenElem.Value != 3 {
		t.Fatalf("expected len 3, got %d", lenElem.Value)
	}

	arrBegin, ok := nextOK(t, v).(elem.DynamicLengthArrayBegin)
	if !ok || arrBegin.Len != 3 {
		t.Fatalf("expected DynamicLengthArrayBegin len 3, got %#v ok=%v", arrBegin, ok)
	}

	var got []uint64
	for i := 0; i < 3; i++ {
		e := nextOK(t, v).(elem.FixedLengthUnsignedInteger)
		got = append(got, e.Value)
	}
	want := []uint64{0x10, 0x11, 0x12}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("element %d: got %#x want %#x", i, got[i], want[i])
		}
	}

	if _, ok := nextOK(t, v).(elem.DynamicLengthArrayEnd); !ok {
		t.Fatal("expected DynamicLengthArrayEnd")
	}
	if _, ok := nextOK(t, v).(elem.StructEnd); !ok {
		t.Fatal("expected StructEnd")
	}
	if _, ok := nextOK(t, v).(elem.ScopeEnd); !ok {
		t.Fatal("expected ScopeEnd")
	}
	if _, ok := nextOK(t, v).(elem.PacketEnd); !ok {
		t.Fatal("expected PacketEnd")
	}
}

func TestDynamicLengthArrayZeroElements(t *testing.T) {
	tp, slots := dynArrayTrace(t)
	v := New(tp, slots)
	v.Feed([]byte{0x00})
	v.CloseInput()

	nextOK(t, v) // PacketBegin
	nextOK(t, v) // PacketInfo
	nextOK(t, v) // DataStreamInfo
	nextOK(t, v) // EventRecordInfo
	nextOK(t, v) // ScopeBegin (payload)
	nextOK(t, v) // StructBegin

	lenElem := nextOK(t, v).(elem.FixedLengthUnsignedInteger)
	if lenElem.Value != 0 {
		t.Fatalf("expected len 0, got %d", lenElem.Value)
	}

	arrBegin := nextOK(t, v).(elem.DynamicLengthArrayBegin)
	if arrBegin.Len != 0 {
		t.Fatalf("expected len 0, got %d", arrBegin.Len)
	}
	if _, ok := nextOK(t, v).(elem.DynamicLengthArrayEnd); !ok {
		t.Fatal("expected DynamicLengthArrayEnd immediately, no elements")
	}
}

// variantTrace builds a payload of a u8 selector followed by a variant
// with two single-member options picked by the selector's value.
func variantTrace(t *testing.T) (*proc.TraceProc, int) {
	t.Helper()
	payload := &metadata.StructType{
		MinAlign: 8,
		Members: []metadata.StructMember{
			{Name: "tag", Type: u8Type()},
			{Name: "body", Type: &metadata.VarType{
				SelLoc: metadata.DataLoc{Scope: metadata.EventRecordPayload, Path: []string{"tag"}},
				Options: []metadata.VarOption{
					{Name: "a", URanges: []metadata.UIntRange{{Begin: 0, End: 0}}, Type: u8Type()},
					{Name: "b", URanges: []metadata.UIntRange{{Begin: 1, End: 1}}, Type: u8Type()},
				},
			}},
		},
	}
	ert := &metadata.EventRecordType{ID: 0, PayloadType: payload}
	dst := &metadata.DataStreamType{ID: 0, EventRecordTypes: []*metadata.EventRecordType{ert}}
	tt := &metadata.TraceType{DataStreamTypes: []*metadata.DataStreamType{dst}}

	tp, slots, err := proc.Build(tt)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return tp, slots
}

func TestVariantDispatch(t *testing.T) {
	tp, slots := variantTrace(t)
	v := New(tp, slots)
	v.Feed([]byte{0x01, 0x77})
	v.CloseInput()

	nextOK(t, v) // PacketBegin
	nextOK(t, v) // PacketInfo
	nextOK(t, v) // DataStreamInfo
	nextOK(t, v) // EventRecordInfo
	nextOK(t, v) // ScopeBegin (payload)
	nextOK(t, v) // StructBegin

	tag :=nextOK(t, v).(elem.FixedLengthUnsignedInteger)
	if tag.Value != 1 {
		t.Fatalf("expected tag 1, got %d", tag.Value)
	}

	vb, ok := nextOK(t, v).(elem.VariantBegin)
	if !ok || vb.OptionIndex != 1 {
		t.Fatalf("expected option index 1, got %#v ok=%v", vb, ok)
	}
	inner := nextOK(t, v).(elem.FixedLengthUnsignedInteger)
	if inner.Value != 0x77 {
		t.Fatalf("expected inner value 0x77, got %#x", inner.Value)
	}
	if _, ok := nextOK(t, v).(elem.VariantEnd); !ok {
		t.Fatal("expected VariantEnd")
	}
}

// TestTruncatedFieldAfterCloseIsError covers spec §7's EndOfStream: a
// packet whose payload is cut short must surface an error once the
// caller signals no more bytes are coming, rather than looping on
// StatusNeedMoreData forever.
func TestTruncatedFieldAfterCloseIsError(t *testing.T) {
	payload := &metadata.StructType{
		MinAlign: 8,
		Members: []metadata.StructMember{{Name: "value", Type: &metadata.FlIntType{
			FlBitArrayType: metadata.FlBitArrayType{MinAlign: 8, Len: 32, BO: metadata.BigEndian},
		}}},
	}
	ert := &metadata.EventRecordType{ID: 0, PayloadType: payload}
	dst := &metadata.DataStreamType{ID: 0, EventRecordTypes: []*metadata.EventRecordType{ert}}
	tt := &metadata.TraceType{DataStreamTypes: []*metadata.DataStreamType{dst}}
	tp, slots, err := proc.Build(tt)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	v := New(tp, slots)
	v.Feed([]byte{0x00, 0x01}) // 2 of the 4 bytes a u32 needs
	v.CloseInput()

	nextOK(t, v) // PacketBegin
	nextOK(t, v) // PacketInfo
	nextOK(t, v) // DataStreamInfo
	nextOK(t, v) // EventRecordInfo
	nextOK(t, v) // ScopeBegin (payload)
	nextOK(t, v) // StructBegin

	_, status, err := v.Next()
	if err == nil {
		t.Fatalf("expected an error for a field truncated by CloseInput, got status %v", status)
	}
	de, ok := err.(*DecodeError)
	if !ok || de.Kind != ErrEndOfStream {
		t.Fatalf("expected ErrEndOfStream, got %#v", err)
	}
}

func TestVariantUnknownSelectorIsError(t *testing.T) {
	tp, slots := variantTrace(t)
	v := New(tp, slots)
	v.Feed([]byte{0x09, 0x00})
	v.CloseInput()

	nextOK(t, v) // PacketBegin
	nextOK(t, v) // PacketInfo
	nextOK(t, v) // DataStreamInfo
	nextOK(t, v) // EventRecordInfo
	nextOK(t, v) // ScopeBegin (payload)
	nextOK(t, v) // StructBegin
	nextOK(t, v) // tag scalar

	_, _, err := v.Next()
	if err == nil {
		t.Fatal("expected an error for an unmatched variant selector")
	}
	de, ok := err.(*DecodeError)
	if !ok || de.Kind != ErrUnknownVariantSelector {
		t.Fatalf("expected ErrUnknownVariantSelector, got %#v", err)
	}
}
