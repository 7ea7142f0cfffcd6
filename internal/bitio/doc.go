// Package bitio provides the bit-level cursor and variable-length
// integer primitives the virtual machine uses to walk a caller-fed byte
// stream: alignment advances, fixed-width bit extraction with a fast
// path for byte-aligned power-of-two widths, and LEB128 decoding.
//
// A Cursor keeps its own copy of the bytes fed to it and not yet
// consumed: Feed appends a copy of each buffer, and a read that would
// cross the end of those bytes reports ok=false, mirroring the frame-at-a-
// time reads in the teacher's internal/protocol/frame package, just
// generalized below the byte granularity.
package bitio
