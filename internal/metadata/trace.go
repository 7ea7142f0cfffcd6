package metadata

// EventRecordType describes one kind of event record within a data
// stream type: its own specific context and payload.
type EventRecordType struct {
	ID          uint64
	SpecCtxType DataType // optional, nil if absent
	PayloadType DataType // optional, nil if absent
}

// DataStreamType describes one kind of data stream within a trace: its
// packet context, the header and common context shared by every event
// record within it, and its event record types.
type DataStreamType struct {
	ID              uint64
	PktCtxType      DataType // optional, nil if absent
	ERHeaderType    DataType // optional, nil if absent
	ERCommonCtxType DataType // optional, nil if absent
	EventRecordTypes []*EventRecordType
}

// EventRecordTypeByID returns the event record type with the given ID,
// or nil if none matches.
func (d *DataStreamType) EventRecordTypeByID(id uint64) *EventRecordType {
	for _, ert := range d.EventRecordTypes {
		if ert.ID == id {
			return ert
		}
	}
	return nil
}

// TraceType is the root of the validated type model: the packet header
// shared by every packet of the trace, plus one DataStreamType per kind
// of data stream the trace may contain.
type TraceType struct {
	PktHeaderType   DataType // optional, nil if absent
	DataStreamTypes []*DataStreamType
}

// DataStreamTypeByID returns the data stream type with the given ID, or
// nil if none matches.
func (t *TraceType) DataStreamTypeByID(id uint64) *DataStreamType {
	for _, dst := range t.DataStreamTypes {
		if dst.ID == id {
			return dst
		}
	}
	return nil
}
