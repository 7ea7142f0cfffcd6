package metadata

// NtStrType is a null-terminated string: byte-aligned, terminated by a
// zero byte.
type NtStrType struct {
	base
}

// SlStrType is a static-length string: exactly Len bytes.
type SlStrType struct {
	base
	Len uint
}

// DlStrType is a dynamic-length string: the byte count is given by the
// member MaxLenLoc resolves to.
type DlStrType struct {
	base
	MaxLenLoc DataLoc
}
