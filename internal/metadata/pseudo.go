package metadata

import (
	"fmt"
	"sort"
)

// PseudoKind tags the shape of a PseudoDataType node, mirroring the
// "pseudo" type produced by a textual metadata frontend before
// validation (yactfr's dtFromPseudoRootDt boundary).
type PseudoKind string

const (
	PKStruct  PseudoKind = "struct"
	PKFlArray PseudoKind = "fl-bit-array"
	PKFlInt   PseudoKind = "fl-int"
	PKFlEnum  PseudoKind = "fl-enum"
	PKFlBool  PseudoKind = "fl-bool"
	PKFlFloat PseudoKind = "fl-float"
	PKVlInt   PseudoKind = "vl-int"
	PKVlEnum  PseudoKind = "vl-enum"
	PKNtStr   PseudoKind = "nt-str"
	PKSlStr   PseudoKind = "sl-str"
	PKDlStr   PseudoKind = "dl-str"
	PKSlBlob  PseudoKind = "sl-blob"
	PKDlBlob  PseudoKind = "dl-blob"
	PKSlArray PseudoKind = "sl-array"
	PKDlArray PseudoKind = "dl-array"
	PKVar     PseudoKind = "var"
	PKOptBool PseudoKind = "opt-bool"
	PKOptInt  PseudoKind = "opt-int"
)

// PseudoRange is an inclusive integer range as a frontend would spell
// it, before it's known whether the domain is signed or unsigned.
type PseudoRange struct {
	Begin int64 `json:"begin"`
	End   int64 `json:"end"`
}

// PseudoEnumMapping names one range set of an enumeration.
type PseudoEnumMapping struct {
	Name   string        `json:"name"`
	Ranges []PseudoRange `json:"ranges"`
}

// PseudoMember is one member of a pseudo struct.
type PseudoMember struct {
	Name      string          `json:"name"`
	Type      *PseudoDataType `json:"type"`
	UserAttrs map[string]any  `json:"user_attrs,omitempty"`
}

// PseudoVarOption is one option of a pseudo variant.
type PseudoVarOption struct {
	Name   string          `json:"name"`
	Ranges []PseudoRange   `json:"ranges"`
	Type   *PseudoDataType `json:"type"`
}

// PseudoDataLoc is a data location as a frontend would spell it: an
// absolute location names its scope explicitly, a relative one doesn't.
type PseudoDataLoc struct {
	Scope string   `json:"scope,omitempty"`
	Path  []string `json:"path"`
	Abs   bool     `json:"abs"`
}

// PseudoDataType is the loosely-typed, not-yet-validated counterpart of
// DataType. Fields are reused across kinds; which ones apply depends on
// Kind (documented per field below).
type PseudoDataType struct {
	Kind      PseudoKind     `json:"kind"`
	UserAttrs map[string]any `json:"user_attrs,omitempty"`
	Loc       TextLoc        `json:"-"`

	// fl-bit-array, fl-int, fl-enum, fl-bool, fl-float
	Align     uint   `json:"align,omitempty"`
	Len       uint   `json:"len,omitempty"`
	BigEndian bool   `json:"big_endian,omitempty"`
	Signed    bool   `json:"signed,omitempty"`
	Encoding  string `json:"encoding,omitempty"`
	Roles     []string `json:"roles,omitempty"`

	// fl-enum, vl-enum
	Mappings []PseudoEnumMapping `json:"mappings,omitempty"`

	// vl-int, vl-enum reuse Signed above.

	// struct
	Members []PseudoMember `json:"members,omitempty"`

	// sl-str, sl-blob, sl-array
	SLen uint `json:"slen,omitempty"`

	// dl-str, dl-blob, dl-array, var, opt-bool, opt-int
	Loc2 *PseudoDataLoc `json:"loc,omitempty"`

	// sl-array, dl-array
	ElemType *PseudoDataType `json:"elem_type,omitempty"`

	// var, opt-bool, opt-int
	InnerType *PseudoDataType   `json:"inner_type,omitempty"`
	Options   []PseudoVarOption `json:"options,omitempty"`
	Ranges    []PseudoRange     `json:"ranges,omitempty"`
}

// PseudoEventRecordType is the not-yet-validated counterpart of
// EventRecordType.
type PseudoEventRecordType struct {
	ID          uint64          `json:"id"`
	SpecCtxType *PseudoDataType `json:"spec_ctx_type,omitempty"`
	PayloadType *PseudoDataType `json:"payload_type,omitempty"`
}

// PseudoDataStreamType is the not-yet-validated counterpart of
// DataStreamType.
type PseudoDataStreamType struct {
	ID               uint64                   `json:"id"`
	PktCtxType       *PseudoDataType          `json:"pkt_ctx_type,omitempty"`
	ERHeaderType     *PseudoDataType          `json:"er_header_type,omitempty"`
	ERCommonCtxType  *PseudoDataType          `json:"er_common_ctx_type,omitempty"`
	EventRecordTypes []*PseudoEventRecordType `json:"event_record_types,omitempty"`
}

// PseudoTraceType is the not-yet-validated counterpart of TraceType.
type PseudoTraceType struct {
	PktHeaderType   *PseudoDataType         `json:"pkt_header_type,omitempty"`
	DataStreamTypes []*PseudoDataStreamType `json:"data_stream_types,omitempty"`
}

func isPow2(a uint) bool { return a > 0 && a&(a-1) == 0 }

func scopeFromString(s string) (Scope, bool) {
	switch s {
	case "packet-header":
		return PacketHeader, true
	case "packet-context":
		return PacketContext, true
	case "event-record-header":
		return EventRecordHeader, true
	case "event-record-common-context":
		return EventRecordCommonContext, true
	case "event-record-specific-context":
		return EventRecordSpecificContext, true
	case "event-record-payload":
		return EventRecordPayload, true
	default:
		return 0, false
	}
}

func roleFromString(s string) (Role, bool) {
	switch s {
	case "packet-magic-number":
		return RolePacketMagicNumber, true
	case "packet-total-length":
		return RolePacketTotalLength, true
	case "packet-content-length":
		return RolePacketContentLength, true
	case "data-stream-type-id":
		return RoleDataStreamTypeID, true
	case "data-stream-id":
		return RoleDataStreamID, true
	case "event-record-type-id":
		return RoleEventRecordTypeID, true
	case "packet-seq-num":
		return RolePacketSeqNum, true
	case "discarded-event-record-counter-snapshot":
		return RoleDiscardedEventRecordCounterSnapshot, true
	case "default-clock-timestamp":
		return RoleDefaultClockTimestamp, true
	case "packet-end-default-clock-timestamp":
		return RolePacketEndDefaultClockTimestamp, true
	case "metadata-stream-uuid":
		return RoleMetadataStreamUUID, true
	default:
		return RoleNone, false
	}
}

// ValidateDataLoc converts a pseudo data location, checking that its
// scope (when absolute) names one of the six standard scopes and that
// its path is non-empty.
func ValidateDataLoc(p *PseudoDataLoc, path string) (DataLoc, error) {
	if p == nil {
		return DataLoc{}, &ValidationError{Path: path, Reason: "missing data location"}
	}
	if len(p.Path) == 0 {
		return DataLoc{}, &ValidationError{Path: path, Reason: "data location has an empty path"}
	}
	loc := DataLoc{Path: append([]string(nil), p.Path...), Abs: p.Abs}
	if p.Abs {
		scope, ok := scopeFromString(p.Scope)
		if !ok {
			return DataLoc{}, &ValidationError{Path: path, Reason: fmt.Sprintf("unknown scope %q", p.Scope)}
		}
		loc.Scope = scope
	}
	return loc, nil
}

func validateRanges(path string, ranges []PseudoRange, signed bool) ([]SIntRange, []UIntRange, error) {
	var sr []SIntRange
	var ur []UIntRange
	for _, r := range ranges {
		if r.Begin > r.End {
			return nil, nil, &ValidationError{Path: path, Reason: "range begin greater than end"}
		}
		if signed {
			sr = append(sr, SIntRange{Begin: r.Begin, End: r.End})
		} else {
			ur = append(ur, UIntRange{Begin: uint64(r.Begin), End: uint64(r.End)})
		}
	}
	if signed {
		if overlapsS(sr) {
			return nil, nil, &ValidationError{Path: path, Reason: "overlapping ranges"}
		}
	} else if overlapsU(ur) {
		return nil, nil, &ValidationError{Path: path, Reason: "overlapping ranges"}
	}
	return sr, ur, nil
}

func overlapsS(rs []SIntRange) bool {
	sorted := append([]SIntRange(nil), rs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Begin < sorted[j].Begin })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Begin <= sorted[i-1].End {
			return true
		}
	}
	return false
}

func overlapsU(rs []UIntRange) bool {
	sorted := append([]UIntRange(nil), rs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Begin < sorted[j].Begin })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Begin <= sorted[i-1].End {
			return true
		}
	}
	return false
}

// Validate converts a pseudo type tree into a validated DataType tree,
// checking the static invariants spec.md §3.1 documents: power-of-two
// alignments, unique member names, pairwise-disjoint enum/variant
// ranges, and float lengths restricted to 32/64.
func Validate(p *PseudoDataType, path string) (DataType, error) {
	if p == nil {
		return nil, &ValidationError{Path: path, Reason: "nil data type"}
	}
	b := base{UserAttrs: p.UserAttrs, Loc: p.Loc}

	bo := BigEndian
	if !p.BigEndian {
		bo = LittleEndian
	}

	switch p.Kind {
	case PKStruct:
		if p.Align != 0 && !isPow2(p.Align) {
			return nil, &ValidationError{Path: path, Reason: "alignment is not a power of two"}
		}
		minAlign := Align(8)
		if p.Align != 0 {
			minAlign = Align(p.Align)
		}
		seen := make(map[string]struct{}, len(p.Members))
		members := make([]StructMember, 0, len(p.Members))
		for _, m := range p.Members {
			if _, dup := seen[m.Name]; dup {
				return nil, &ValidationError{Path: path, Reason: fmt.Sprintf("duplicate member name %q", m.Name)}
			}
			seen[m.Name] = struct{}{}
			dt, err := Validate(m.Type, path+"."+m.Name)
			if err != nil {
				return nil, err
			}
			members = append(members, StructMember{Name: m.Name, Type: dt, UserAttrs: m.UserAttrs})
		}
		return &StructType{base: b, MinAlign: minAlign, Members: members}, nil

	case PKFlArray:
		if !isPow2(p.Align) {
			return nil, &ValidationError{Path: path, Reason: "alignment is not a power of two"}
		}
		if p.Len == 0 || p.Len > 64 {
			return nil, &ValidationError{Path: path, Reason: "length out of range 1..64"}
		}
		return &FlBitArrayType{base: b, MinAlign: Align(p.Align), Len: p.Len, BO: bo}, nil

	case PKFlBool:
		if !isPow2(p.Align) {
			return nil, &ValidationError{Path: path, Reason: "alignment is not a power of two"}
		}
		if p.Len == 0 || p.Len > 64 {
			return nil, &ValidationError{Path: path, Reason: "length out of range 1..64"}
		}
		return &FlBoolType{FlBitArrayType{base: b, MinAlign: Align(p.Align), Len: p.Len, BO: bo}}, nil

	case PKFlFloat:
		if !isPow2(p.Align) {
			return nil, &ValidationError{Path: path, Reason: "alignment is not a power of two"}
		}
		if p.Len != 32 && p.Len != 64 {
			return nil, &ValidationError{Path: path, Reason: "float length must be 32 or 64"}
		}
		return &FlFloatType{FlBitArrayType{base: b, MinAlign: Align(p.Align), Len: p.Len, BO: bo}}, nil

	case PKFlInt:
		if !isPow2(p.Align) {
			return nil, &ValidationError{Path: path, Reason: "alignment is not a power of two"}
		}
		if p.Len == 0 || p.Len > 64 {
			return nil, &ValidationError{Path: path, Reason: "length out of range 1..64"}
		}
		enc := EncodingNone
		if p.Encoding == "utf-8" {
			enc = EncodingUTF8
		}
		roles, err := rolesFromStrings(path, p.Roles)
		if err != nil {
			return nil, err
		}
		return &FlIntType{
			FlBitArrayType: FlBitArrayType{base: b, MinAlign: Align(p.Align), Len: p.Len, BO: bo},
			Signed:         p.Signed,
			Encoding:       enc,
			Roles:          roles,
		}, nil

	case PKFlEnum:
		if !isPow2(p.Align) {
			return nil, &ValidationError{Path: path, Reason: "alignment is not a power of two"}
		}
		if p.Len == 0 || p.Len > 64 {
			return nil, &ValidationError{Path: path, Reason: "length out of range 1..64"}
		}
		mappings, err := validateMappings(path, p.Mappings, p.Signed)
		if err != nil {
			return nil, err
		}
		return &FlEnumType{
			FlIntType: FlIntType{
				FlBitArrayType: FlBitArrayType{base: b, MinAlign: Align(p.Align), Len: p.Len, BO: bo},
				Signed:         p.Signed,
			},
			Mappings: mappings,
		}, nil

	case PKVlInt:
		return &VlIntType{base: b, Signed: p.Signed}, nil

	case PKVlEnum:
		mappings, err := validateMappings(path, p.Mappings, p.Signed)
		if err != nil {
			return nil, err
		}
		return &VlEnumType{VlIntType: VlIntType{base: b, Signed: p.Signed}, Mappings: mappings}, nil

	case PKNtStr:
		return &NtStrType{base: b}, nil

	case PKSlStr:
		return &SlStrType{base: b, Len: p.SLen}, nil

	case PKDlStr:
		loc, err := ValidateDataLoc(p.Loc2, path)
		if err != nil {
			return nil, err
		}
		return &DlStrType{base: b, MaxLenLoc: loc}, nil

	case PKSlBlob:
		roles, err := rolesFromStrings(path, p.Roles)
		if err != nil {
			return nil, err
		}
		return &SlBlobType{base: b, Len: p.SLen, Roles: roles}, nil

	case PKDlBlob:
		loc, err := ValidateDataLoc(p.Loc2, path)
		if err != nil {
			return nil, err
		}
		return &DlBlobType{base: b, LenLoc: loc}, nil

	case PKSlArray:
		elem, err := Validate(p.ElemType, path+"[]")
		if err != nil {
			return nil, err
		}
		roles, err := rolesFromStrings(path, p.Roles)
		if err != nil {
			return nil, err
		}
		return &SlArrayType{base: b, Len: p.SLen, ElemType: elem, Roles: roles}, nil

	case PKDlArray:
		loc, err := ValidateDataLoc(p.Loc2, path)
		if err != nil {
			return nil, err
		}
		elem, err := Validate(p.ElemType, path+"[]")
		if err != nil {
			return nil, err
		}
		return &DlArrayType{base: b, LenLoc: loc, ElemType: elem}, nil

	case PKVar:
		loc, err := ValidateDataLoc(p.Loc2, path)
		if err != nil {
			return nil, err
		}
		opts := make([]VarOption, 0, len(p.Options))
		for _, o := range p.Options {
			sr, ur, err := validateRanges(path+"."+o.Name, o.Ranges, p.Signed)
			if err != nil {
				return nil, err
			}
			dt, err := Validate(o.Type, path+"."+o.Name)
			if err != nil {
				return nil, err
			}
			opts = append(opts, VarOption{Name: o.Name, SRanges: sr, URanges: ur, Type: dt})
		}
		if err := checkOptionsDisjoint(path, opts, p.Signed); err != nil {
			return nil, err
		}
		return &VarType{base: b, SelLoc: loc, Signed: p.Signed, Options: opts}, nil

	case PKOptBool:
		loc, err := ValidateDataLoc(p.Loc2, path)
		if err != nil {
			return nil, err
		}
		inner, err := Validate(p.InnerType, path)
		if err != nil {
			return nil, err
		}
		return &OptBoolType{base: b, SelLoc: loc, Type: inner}, nil

	case PKOptInt:
		loc, err := ValidateDataLoc(p.Loc2, path)
		if err != nil {
			return nil, err
		}
		sr, ur, err := validateRanges(path, p.Ranges, p.Signed)
		if err != nil {
			return nil, err
		}
		inner, err := Validate(p.InnerType, path)
		if err != nil {
			return nil, err
		}
		return &OptIntType{base: b, SelLoc: loc, Signed: p.Signed, SRanges: sr, URanges: ur, Type: inner}, nil

	default:
		return nil, &ValidationError{Path: path, Reason: fmt.Sprintf("unknown pseudo kind %q", p.Kind)}
	}
}

func rolesFromStrings(path string, ss []string) ([]Role, error) {
	if len(ss) == 0 {
		return nil, nil
	}
	roles := make([]Role, 0, len(ss))
	for _, s := range ss {
		r, ok := roleFromString(s)
		if !ok {
			return nil, &ValidationError{Path: path, Reason: fmt.Sprintf("unknown role %q", s)}
		}
		roles = append(roles, r)
	}
	return roles, nil
}

func validateMappings(path string, ms []PseudoEnumMapping, signed bool) ([]EnumMapping, error) {
	out := make([]EnumMapping, 0, len(ms))
	var allS []SIntRange
	var allU []UIntRange
	for _, m := range ms {
		sr, ur, err := validateRanges(path+"."+m.Name, m.Ranges, signed)
		if err != nil {
			return nil, err
		}
		allS = append(allS, sr...)
		allU = append(allU, ur...)
		out = append(out, EnumMapping{Name: m.Name, SRanges: sr, URanges: ur})
	}
	if signed {
		if overlapsS(allS) {
			return nil, &ValidationError{Path: path, Reason: "overlapping ranges across enumerators"}
		}
	} else if overlapsU(allU) {
		return nil, &ValidationError{Path: path, Reason: "overlapping ranges across enumerators"}
	}
	return out, nil
}

func checkOptionsDisjoint(path string, opts []VarOption, signed bool) error {
	var allS []SIntRange
	var allU []UIntRange
	for _, o := range opts {
		allS = append(allS, o.SRanges...)
		allU = append(allU, o.URanges...)
	}
	if signed {
		if overlapsS(allS) {
			return &ValidationError{Path: path, Reason: "overlapping variant option ranges"}
		}
	} else if overlapsU(allU) {
		return &ValidationError{Path: path, Reason: "overlapping variant option ranges"}
	}
	return nil
}

// ValidateTraceType converts a pseudo trace type into a validated
// TraceType.
func ValidateTraceType(p *PseudoTraceType) (*TraceType, error) {
	tt := &TraceType{}
	if p.PktHeaderType != nil {
		dt, err := Validate(p.PktHeaderType, "packet-header")
		if err != nil {
			return nil, err
		}
		tt.PktHeaderType = dt
	}
	for _, pdst := range p.DataStreamTypes {
		dst := &DataStreamType{ID: pdst.ID}
		if pdst.PktCtxType != nil {
			dt, err := Validate(pdst.PktCtxType, "packet-context")
			if err != nil {
				return nil, err
			}
			dst.PktCtxType = dt
		}
		if pdst.ERHeaderType != nil {
			dt, err := Validate(pdst.ERHeaderType, "event-record-header")
			if err != nil {
				return nil, err
			}
			dst.ERHeaderType = dt
		}
		if pdst.ERCommonCtxType != nil {
			dt, err := Validate(pdst.ERCommonCtxType, "event-record-common-context")
			if err != nil {
				return nil, err
			}
			dst.ERCommonCtxType = dt
		}
		for _, pert := range pdst.EventRecordTypes {
			ert := &EventRecordType{ID: pert.ID}
			if pert.SpecCtxType != nil {
				dt, err := Validate(pert.SpecCtxType, "event-record-specific-context")
				if err != nil {
					return nil, err
				}
				ert.SpecCtxType = dt
			}
			if pert.PayloadType != nil {
				dt, err := Validate(pert.PayloadType, "event-record-payload")
				if err != nil {
					return nil, err
				}
				ert.PayloadType = dt
			}
			dst.EventRecordTypes = append(dst.EventRecordTypes, ert)
		}
		tt.DataStreamTypes = append(tt.DataStreamTypes, dst)
	}
	return tt, nil
}
