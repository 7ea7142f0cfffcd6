package elem

import "github.com/frdeso/yactfr/internal/metadata"

// StaticLengthStringBegin marks entry into a static-length string.
type StaticLengthStringBegin struct {
	MaxLen uint
	Type   *metadata.SlStrType
}

func (StaticLengthStringBegin) Kind() Kind { return KindStaticLengthStringBegin }
func (StaticLengthStringBegin) isElem()    {}

// StaticLengthStringEnd marks exit from a static-length string.
type StaticLengthStringEnd struct{}

func (StaticLengthStringEnd) Kind() Kind { return KindStaticLengthStringEnd }
func (StaticLengthStringEnd) isElem()    {}

// DynamicLengthStringBegin marks entry into a dynamic-length string.
type DynamicLengthStringBegin struct {
	MaxLen uint64
	Type   *metadata.DlStrType
}

func (DynamicLengthStringBegin) Kind() Kind { return KindDynamicLengthStringBegin }
func (DynamicLengthStringBegin) isElem()    {}

// DynamicLengthStringEnd marks exit from a dynamic-length string.
type DynamicLengthStringEnd struct{}

func (DynamicLengthStringEnd) Kind() Kind { return KindDynamicLengthStringEnd }
func (DynamicLengthStringEnd) isElem()    {}

// SubstringBytes carries one chunk of a string's bytes, as delimited by
// buffer boundaries. The null terminator of a null-terminated string is
// consumed but never included here.
type SubstringBytes struct {
	Bytes []byte
}

func (SubstringBytes) Kind() Kind { return KindSubstringBytes }
func (SubstringBytes) isElem()    {}

// BlobBegin marks entry into a BLOB (static- or dynamic-length).
type BlobBegin struct {
	Len uint64
}

func (BlobBegin) Kind() Kind { return KindBlobBegin }
func (BlobBegin) isElem()    {}

// BlobEnd marks exit from a BLOB.
type BlobEnd struct{}

func (BlobEnd) Kind() Kind { return KindBlobEnd }
func (BlobEnd) isElem()    {}

// BlobSectionBytes carries one chunk of a BLOB's bytes.
type BlobSectionBytes struct {
	Bytes []byte
}

func (BlobSectionBytes) Kind() Kind { return KindBlobSectionBytes }
func (BlobSectionBytes) isElem()    {}
