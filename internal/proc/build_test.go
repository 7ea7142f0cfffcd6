package proc

import (
	"testing"

	"github.com/frdeso/yactfr/internal/metadata"
)

func u8EnumType(mappings []metadata.EnumMapping) *metadata.FlEnumType {
	return &metadata.FlEnumType{
		FlIntType: metadata.FlIntType{
			FlBitArrayType: metadata.FlBitArrayType{MinAlign: 8, Len: 8, BO: metadata.BigEndian},
		},
		Mappings: mappings,
	}
}

// variantEventRecordInstrs builds a one-event-record-type trace whose
// payload is a u8 enum selector followed by a variant, and returns that
// event record's procedure with every nested sub-procedure expanded in
// place (see flatten).
func variantEventRecordInstrs(t *testing.T, v *metadata.VarType) ([]Instr, error) {
	t.Helper()
	payload := &metadata.StructType{
		MinAlign: 8,
		Members: []metadata.StructMember{
			{Name: "tag", Type: u8EnumType([]metadata.EnumMapping{
				{Name: "a", URanges: []metadata.UIntRange{{Begin: 0, End: 0}}},
				{Name: "b", URanges: []metadata.UIntRange{{Begin: 1, End: 1}}},
			})},
			{Name: "body", Type: v},
		},
	}
	ert := &metadata.EventRecordType{ID: 0, PayloadType: payload}
	dst := &metadata.DataStreamType{ID: 0, EventRecordTypes: []*metadata.EventRecordType{ert}}
	tt := &metadata.TraceType{DataStreamTypes: []*metadata.DataStreamType{dst}}

	tp, _, err := Build(tt)
	if err != nil {
		return nil, err
	}
	dp, ok := tp.DataStreamProcByID(0)
	if !ok {
		t.Fatal("expected data stream proc 0")
	}
	erp, ok := dp.EventRecordProcByID(0)
	if !ok {
		t.Fatal("expected event record proc 0")
	}
	return flatten(tp.Arena, tp.Arena.Slice(erp.Off, erp.Len)), nil
}

// flatten expands instrs depth-first, following each instruction's
// SubOff/SubLen sub-procedure, so instructions nested inside scope and
// struct bodies can be searched.
func flatten(arena *Proc, instrs []Instr) []Instr {
	var out []Instr
	for _, in := range instrs {
		out = append(out, in)
		if in.SubLen > 0 {
			out = append(out, flatten(arena, arena.Slice(in.SubOff, in.SubLen))...)
		}
	}
	return out
}

func findVariant(instrs []Instr) (Instr, bool) {
	for _, in := range instrs {
		if in.Kind == KindBeginReadVarUIntSel || in.Kind == KindBeginReadVarSIntSel {
			return in, true
		}
	}
	return Instr{}, false
}

func TestVariantEnumNameResolution(t *testing.T) {
	v := &metadata.VarType{
		SelLoc: metadata.DataLoc{Scope: metadata.EventRecordPayload, Path: []string{"tag"}},
		Options: []metadata.VarOption{
			{Name: "a", Type: u8IntType()},
			{Name: "b", Type: u8IntType()},
		},
	}
	instrs, err := variantEventRecordInstrs(t, v)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	vi, ok := findVariant(instrs)
	if !ok {
		t.Fatal("expected a variant instruction")
	}
	if len(vi.Options) != 2 {
		t.Fatalf("expected 2 options, got %d", len(vi.Options))
	}
	if got := vi.Options[0].URanges; len(got) != 1 || got[0] != (metadata.UIntRange{Begin: 0, End: 0}) {
		t.Fatalf("option %q: expected resolved range [0,0], got %#v", vi.Options[0].Name, got)
	}
	if got := vi.Options[1].URanges; len(got) != 1 || got[0] != (metadata.UIntRange{Begin: 1, End: 1}) {
		t.Fatalf("option %q: expected resolved range [1,1], got %#v", vi.Options[1].Name, got)
	}
}

func TestVariantEnumNameUnknownIsError(t *testing.T) {
	v := &metadata.VarType{
		SelLoc: metadata.DataLoc{Scope: metadata.EventRecordPayload, Path: []string{"tag"}},
		Options: []metadata.VarOption{
			{Name: "nonexistent", Type: u8IntType()},
		},
	}
	_, err := variantEventRecordInstrs(t, v)
	if err == nil {
		t.Fatal("expected an error for an option name absent from the selector's mapping")
	}
	be, ok := err.(*BuildError)
	if !ok || be.Kind != ErrIncompleteEnumSelector {
		t.Fatalf("expected ErrIncompleteEnumSelector, got %#v", err)
	}
}

func TestVariantEnumNameOverlapIsError(t *testing.T) {
	v := &metadata.VarType{
		SelLoc: metadata.DataLoc{Scope: metadata.EventRecordPayload, Path: []string{"tag"}},
		Options: []metadata.VarOption{
			{Name: "a", URanges: []metadata.UIntRange{{Begin: 0, End: 1}}, Type: u8IntType()},
			{Name: "b", Type: u8IntType()},
		},
	}
	_, err := variantEventRecordInstrs(t, v)
	if err == nil {
		t.Fatal("expected an error for overlapping option ranges")
	}
	be, ok := err.(*BuildError)
	if !ok || be.Kind != ErrOverlappingSelectorMapping {
		t.Fatalf("expected ErrOverlappingSelectorMapping, got %#v", err)
	}
}

func u8IntType() *metadata.FlIntType {
	return &metadata.FlIntType{
		FlBitArrayType: metadata.FlBitArrayType{MinAlign: 8, Len: 8, BO: metadata.BigEndian},
	}
}

// TestScopeAffectsFingerprint guards against the sub-procedure dedup
// hash treating two event record types as interchangeable when they
// differ only in which scope wraps an identical body (a specific
// context member versus a payload member of the same shape): the
// emitted ScopeBegin must name the right scope for each. The event
// record header carries an event-record-type-ID field, which Build
// requires once a data stream type has more than one event record type.
func TestScopeAffectsFingerprint(t *testing.T) {
	u8 := u8IntType()
	erHdr := &metadata.StructType{
		MinAlign: 8,
		Members: []metadata.StructMember{{Name: "id", Type: &metadata.FlIntType{
			FlBitArrayType: metadata.FlBitArrayType{MinAlign: 8, Len: 8, BO: metadata.BigEndian},
			Roles:          []metadata.Role{metadata.RoleEventRecordTypeID},
		}}},
	}
	ertA := &metadata.EventRecordType{
		ID: 0,
		PayloadType: &metadata.StructType{
			MinAlign: 8,
			Members:  []metadata.StructMember{{Name: "value", Type: u8}},
		},
	}
	ertB := &metadata.EventRecordType{
		ID: 1,
		SpecCtxType: &metadata.StructType{
			MinAlign: 8,
			Members:  []metadata.StructMember{{Name: "value", Type: u8}},
		},
	}
	dst := &metadata.DataStreamType{ID: 0, ERHeaderType: erHdr, EventRecordTypes: []*metadata.EventRecordType{ertA, ertB}}
	tt := &metadata.TraceType{DataStreamTypes: []*metadata.DataStreamType{dst}}

	tp, _, err := Build(tt)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	dp, _ := tp.DataStreamProcByID(0)

	erpA, _ := dp.EventRecordProcByID(0)
	scopeOf := func(instrs []Instr) (metadata.Scope, bool) {
		for _, in := range instrs {
			if in.Kind == KindBeginReadScope {
				return in.Scope, true
			}
		}
		return 0, false
	}
	scopeA, ok := scopeOf(tp.Arena.Slice(erpA.Off, erpA.Len))
	if !ok || scopeA != metadata.EventRecordPayload {
		t.Fatalf("expected event record 0's scope to be EventRecordPayload, got %v ok=%v", scopeA, ok)
	}

	erpB, _ := dp.EventRecordProcByID(1)
	scopeB, ok := scopeOf(tp.Arena.Slice(erpB.Off, erpB.Len))
	if !ok || scopeB != metadata.EventRecordSpecificContext {
		t.Fatalf("expected event record 1's scope to be EventRecordSpecificContext, got %v ok=%v", scopeB, ok)
	}
}
