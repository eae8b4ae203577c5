// Package fiscat owns the FisCat cash register command contract.
//
// Ownership boundary:
// - sale command decoding and defaulting
// - payment kind codes
// - serial command string formatting
//
// Only the FisCat AEE model (software version 0005) over a serial line is supported.
package fiscat
