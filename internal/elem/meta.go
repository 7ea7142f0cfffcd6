package elem

// MetadataStreamUUID carries the trace's metadata stream UUID, decoded
// from a packet header array of 16 static-length bytes bearing the
// MetadataStreamUuid role.
type MetadataStreamUUID struct {
	UUID [16]byte
}

func (MetadataStreamUUID) Kind() Kind { return KindMetadataStreamUUID }
func (MetadataStreamUUID) isElem()    {}

// DefaultClockValue carries a packet-context or event-record-header
// field's value once applied to the VM's default clock register.
type DefaultClockValue struct {
	CycleCount uint64
}

func (DefaultClockValue) Kind() Kind { return KindDefaultClockValue }
func (DefaultClockValue) isElem()    {}

// PacketMagicNumber carries the decoded packet header magic number.
type PacketMagicNumber struct {
	Value uint32
}

func (PacketMagicNumber) Kind() Kind { return KindPacketMagicNumber }
func (PacketMagicNumber) isElem()    {}

// DataStreamInfo reports the resolved data stream, once its type ID
// (and, when present, instance ID) has been decoded from the packet
// header and/or context.
type DataStreamInfo struct {
	TypeID      uint64
	TypeIDValid bool
	ID          uint64
	IDValid     bool
}

func (DataStreamInfo) Kind() Kind { return KindDataStreamInfo }
func (DataStreamInfo) isElem()    {}

// PacketInfo reports everything the VM learned about a packet's
// envelope from its header and context. A length or counter only
// carries meaning when its companion Valid flag is set, since CTF lets
// metadata omit any of these fields.
type PacketInfo struct {
	TotalLen          uint64
	TotalLenValid     bool
	ContentLen        uint64
	ContentLenValid   bool
	SeqNum            uint64
	SeqNumValid       bool
	DiscErCounterSnap uint64
	DiscErSnapValid   bool
	BeginClock        uint64
	BeginClockValid   bool
	EndClock          uint64
	EndClockValid     bool
}

func (PacketInfo) Kind() Kind { return KindPacketInfo }
func (PacketInfo) isElem()    {}

// EventRecordInfo reports the resolved event record type ID once
// decoded from the event record header.
type EventRecordInfo struct {
	TypeID uint64
}

func (EventRecordInfo) Kind() Kind { return KindEventRecordInfo }
func (EventRecordInfo) isElem()    {}

// End marks the end of the decoding element stream: no further
// elements follow on this VM.
type End struct{}

func (End) Kind() Kind { return KindEnd }
func (End) isElem()    {}
