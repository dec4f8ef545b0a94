// Package asm is a two-pass assembler for NanoCore text source. The
// first pass resolves label addresses, the second encodes 32-bit
// big-endian instruction words. It supports the full instruction set,
// the LI pseudo-op, and the .org and .word directives.
package asm
