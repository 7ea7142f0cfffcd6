// Package metadata owns the CTF type model: the validated type tree the
// procedure builder walks, plus the loosely-typed "pseudo" tree shape a
// textual metadata frontend would produce before validation.
//
// Ownership boundary:
// - data type tree (structures, arrays, strings, BLOBs, variants, optionals,
//   integers, enumerations, booleans, floats)
// - data locations (symbolic paths resolved by the procedure builder)
// - trace/data-stream/event-record type aggregation
//
// metadata does not decode bytes and does not build procedures; it is
// consumed read-only by package proc.
package metadata
