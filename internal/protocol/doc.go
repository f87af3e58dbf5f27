// Package protocol owns the jelka wire contract and its codec.
//
// Ownership boundary:
// - header record encode/decode (versioned, self-describing)
// - frame record encode/decode (fixed-width hex)
// - duration arithmetic and producer defaults
//
// Every protocol line starts with Marker and ends with '\n' or '\r'.
// Anything outside such a line is user text and is not owned here.
package protocol
