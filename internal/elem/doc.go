// Package elem defines the decoding element stream: the ordered events
// the virtual machine emits, one per scalar field decoded or structural
// boundary crossed. Callers poll the VM for one Elem at a time; this
// package owns only the event shapes, not how they're produced.
package elem
