package vm

// Status reports the outcome of a Next() call that did not return an
// error. NeedMoreData is a status, never an error: callers distinguish
// it with ==, not errors.Is (spec §7).
type Status int

const (
	// StatusOK means the returned Elem is valid.
	StatusOK Status = iota
	// StatusNeedMoreData means the VM ran out of buffered input and is
	// waiting for the next Feed call; the returned Elem is nil.
	StatusNeedMoreData
	// StatusEnd means the element stream is over: no packet is in
	// progress and the caller has signalled no more input is coming
	// (CloseInput). The returned Elem is elem.End{}.
	StatusEnd
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNeedMoreData:
		return "need-more-data"
	case StatusEnd:
		return "end"
	default:
		return "unknown"
	}
}
