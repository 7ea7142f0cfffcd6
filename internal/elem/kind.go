package elem

// Kind tags the concrete shape of an Elem, letting callers fast-switch
// without a full Go type switch, mirroring the small-integer tag style
// the teacher uses for its own wire types (protocol.FieldType,
// tlv.TypeU8..TypeBytes).
type Kind uint8

const (
	KindPacketBegin Kind = iota
	KindPacketEnd
	KindScopeBegin
	KindScopeEnd
	KindStructBegin
	KindStructEnd
	KindStaticLengthArrayBegin
	KindStaticLengthArrayEnd
	KindDynamicLengthArrayBegin
	KindDynamicLengthArrayEnd
	KindStaticLengthStringBegin
	KindStaticLengthStringEnd
	KindDynamicLengthStringBegin
	KindDynamicLengthStringEnd
	KindSubstringBytes
	KindBlobBegin
	KindBlobEnd
	KindBlobSectionBytes
	KindVariantBegin
	KindVariantEnd
	KindOptionalBegin
	KindOptionalEnd
	KindFixedLengthBitArray
	KindFixedLengthSignedInteger
	KindFixedLengthUnsignedInteger
	KindFixedLengthFloat
	KindFixedLengthBool
	KindVariableLengthSignedInteger
	KindVariableLengthUnsignedInteger
	KindMetadataStreamUUID
	KindDefaultClockValue
	KindPacketMagicNumber
	KindDataStreamInfo
	KindPacketInfo
	KindEventRecordInfo
	KindEnd
)

// Elem is the sealed interface every decoding element implements.
type Elem interface {
	Kind() Kind

	isElem()
}

var kindNames = [...]string{
	KindPacketBegin:                   "packet-begin",
	KindPacketEnd:                     "packet-end",
	KindScopeBegin:                    "scope-begin",
	KindScopeEnd:                      "scope-end",
	KindStructBegin:                   "struct-begin",
	KindStructEnd:                     "struct-end",
	KindStaticLengthArrayBegin:        "static-length-array-begin",
	KindStaticLengthArrayEnd:          "static-length-array-end",
	KindDynamicLengthArrayBegin:       "dynamic-length-array-begin",
	KindDynamicLengthArrayEnd:         "dynamic-length-array-end",
	KindStaticLengthStringBegin:       "static-length-string-begin",
	KindStaticLengthStringEnd:         "static-length-string-end",
	KindDynamicLengthStringBegin:      "dynamic-length-string-begin",
	KindDynamicLengthStringEnd:        "dynamic-length-string-end",
	KindSubstringBytes:                "substring-bytes",
	KindBlobBegin:                     "blob-begin",
	KindBlobEnd:                       "blob-end",
	KindBlobSectionBytes:              "blob-section-bytes",
	KindVariantBegin:                  "variant-begin",
	KindVariantEnd:                    "variant-end",
	KindOptionalBegin:                 "optional-begin",
	KindOptionalEnd:                   "optional-end",
	KindFixedLengthBitArray:           "fixed-length-bit-array",
	KindFixedLengthSignedInteger:      "fixed-length-signed-integer",
	KindFixedLengthUnsignedInteger:    "fixed-length-unsigned-integer",
	KindFixedLengthFloat:              "fixed-length-float",
	KindFixedLengthBool:               "fixed-length-bool",
	KindVariableLengthSignedInteger:   "variable-length-signed-integer",
	KindVariableLengthUnsignedInteger: "variable-length-unsigned-integer",
	KindMetadataStreamUUID:            "metadata-stream-uuid",
	KindDefaultClockValue:             "default-clock-value",
	KindPacketMagicNumber:             "packet-magic-number",
	KindDataStreamInfo:                "data-stream-info",
	KindPacketInfo:                    "packet-info",
	KindEventRecordInfo:               "event-record-info",
	KindEnd:                           "end",
}

// String returns the kind's symbolic name, used for metrics labels and
// text-mode rendering.
func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown"
}
