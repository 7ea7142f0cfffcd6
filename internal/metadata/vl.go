package metadata

// VlIntType is a variable-length (LEB128-style) integer.
type VlIntType struct {
	base
	Signed bool
}

// VlEnumType is a variable-length enumeration: a variable-length integer
// whose value set is partitioned into named, non-overlapping ranges.
type VlEnumType struct {
	VlIntType
	Mappings []EnumMapping
}
