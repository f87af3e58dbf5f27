// Package tools provides runtime helpers for the command-line front ends.
//
// Ownership boundary:
// - producer process execution
package tools
