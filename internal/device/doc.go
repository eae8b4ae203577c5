// Package device owns the serial line to the cash register.
//
// One Writer per device path. Every command is one open/write/close cycle
// and cycles never overlap, so two commands cannot interleave on the wire.
// Nothing is read back from the register; a complete write is success.
package device
