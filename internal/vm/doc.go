// Package vm implements the virtual machine (spec §4.3): a stateful
// executor that drives a proc.TraceProc bit by bit against a caller-fed
// byte stream and emits elem.Elem values in document order.
//
// One VM decodes one packet stream at a time and is owned by exactly
// one caller at a time (spec §5): Feed appends input, Next pulls the
// next element or status, Reset abandons the current packet and
// rewinds to a fresh boundary. A *proc.TraceProc is immutable once
// built and may be shared read-only across many independent VMs
// running on independent goroutines.
package vm
