package elem

import "github.com/frdeso/yactfr/internal/metadata"

// VariantBegin marks entry into a variant; OptionIndex is the index
// into the variant type's Options slice that was selected.
type VariantBegin struct {
	OptionIndex int
	Type        *metadata.VarType
}

func (VariantBegin) Kind() Kind { return KindVariantBegin }
func (VariantBegin) isElem()    {}

// VariantEnd marks exit from a variant.
type VariantEnd struct{}

func (VariantEnd) Kind() Kind { return KindVariantEnd }
func (VariantEnd) isElem()    {}

// OptionalBegin marks entry into an optional; Present reports whether
// the inner type follows.
type OptionalBegin struct {
	Present bool
}

func (OptionalBegin) Kind() Kind { return KindOptionalBegin }
func (OptionalBegin) isElem()    {}

// OptionalEnd marks exit from an optional.
type OptionalEnd struct{}

func (OptionalEnd) Kind() Kind { return KindOptionalEnd }
func (OptionalEnd) isElem()    {}
