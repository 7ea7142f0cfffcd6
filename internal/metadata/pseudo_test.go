package metadata

import "testing"

func u8() *PseudoDataType {
	return &PseudoDataType{Kind: PKFlInt, Align: 8, Len: 8, BigEndian: true}
}

func TestValidateStructRejectsDuplicateMemberNames(t *testing.T) {
	p := &PseudoDataType{
		Kind: PKStruct,
		Members: []PseudoMember{
			{Name: "a", Type: u8()},
			{Name: "a", Type: u8()},
		},
	}
	if _, err := Validate(p, "root"); err == nil {
		t.Fatal("expected error for duplicate member name")
	}
}

func TestValidateStructHonorsDeclaredAlignment(t *testing.T) {
	p := &PseudoDataType{
		Kind:  PKStruct,
		Align: 32,
		Members: []PseudoMember{
			{Name: "a", Type: u8()},
		},
	}
	dt, err := Validate(p, "root")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	st, ok := dt.(*StructType)
	if !ok || st.MinAlign != 32 {
		t.Fatalf("expected MinAlign 32, got %#v", dt)
	}
}

func TestValidateStructDefaultsToByteAlignment(t *testing.T) {
	p := &PseudoDataType{
		Kind: PKStruct,
		Members: []PseudoMember{
			{Name: "a", Type: u8()},
		},
	}
	dt, err := Validate(p, "root")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	st, ok := dt.(*StructType)
	if !ok || st.MinAlign != 8 {
		t.Fatalf("expected default MinAlign 8, got %#v", dt)
	}
}

func TestValidateRejectsNonPowerOfTwoAlignment(t *testing.T) {
	p := &PseudoDataType{Kind: PKFlInt, Align: 3, Len: 8, BigEndian: true}
	if _, err := Validate(p, "root"); err == nil {
		t.Fatal("expected error for non power-of-two alignment")
	}
}

func TestValidateRejectsBadFloatLength(t *testing.T) {
	p := &PseudoDataType{Kind: PKFlFloat, Align: 8, Len: 48}
	if _, err := Validate(p, "root"); err == nil {
		t.Fatal("expected error for float length not in {32,64}")
	}
}

func TestValidateRejectsOverlappingEnumRanges(t *testing.T) {
	p := &PseudoDataType{
		Kind: PKFlEnum, Align: 8, Len: 8, BigEndian: true, Signed: false,
		Mappings: []PseudoEnumMapping{
			{Name: "A", Ranges: []PseudoRange{{Begin: 0, End: 5}}},
			{Name: "B", Ranges: []PseudoRange{{Begin: 5, End: 10}}},
		},
	}
	if _, err := Validate(p, "root"); err == nil {
		t.Fatal("expected error for overlapping enum ranges")
	}
}

func TestValidateAcceptsDisjointVariantOptions(t *testing.T) {
	p := &PseudoDataType{
		Kind:   PKVar,
		Signed: false,
		Loc2:   &PseudoDataLoc{Path: []string{"sel"}},
		Options: []PseudoVarOption{
			{Name: "A", Ranges: []PseudoRange{{Begin: 0, End: 5}}, Type: u8()},
			{Name: "B", Ranges: []PseudoRange{{Begin: 6, End: 10}}, Type: u8()},
		},
	}
	dt, err := Validate(p, "root")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	vt, ok := dt.(*VarType)
	if !ok {
		t.Fatalf("expected *VarType, got %T", dt)
	}
	if len(vt.Options) != 2 {
		t.Fatalf("expected 2 options, got %d", len(vt.Options))
	}
}

func TestValidateRejectsOverlappingVariantOptions(t *testing.T) {
	p := &PseudoDataType{
		Kind:   PKVar,
		Signed: false,
		Loc2:   &PseudoDataLoc{Path: []string{"sel"}},
		Options: []PseudoVarOption{
			{Name: "A", Ranges: []PseudoRange{{Begin: 0, End: 5}}, Type: u8()},
			{Name: "B", Ranges: []PseudoRange{{Begin: 5, End: 10}}, Type: u8()},
		},
	}
	if _, err := Validate(p, "root"); err == nil {
		t.Fatal("expected error for overlapping variant options")
	}
}

func TestValidateDataLocRejectsEmptyPath(t *testing.T) {
	if _, err := ValidateDataLoc(&PseudoDataLoc{Abs: true, Scope: "packet-header"}, "root"); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestValidateDataLocRejectsUnknownScope(t *testing.T) {
	if _, err := ValidateDataLoc(&PseudoDataLoc{Abs: true, Scope: "nowhere", Path: []string{"x"}}, "root"); err == nil {
		t.Fatal("expected error for unknown scope")
	}
}
