// Package xfer provides the L0 struct transfer protocol.
package xfer

// Struct transfer is communicated between rover boards over a
// peer-to-peer wired link (UART, or a TCP stream from base station).
// Each frame carries exactly one fixed-size binary record:
//
//   0x06 0x85 LEN PAYLOAD[LEN] CHECKSUM
//
// CHECKSUM is LEN XOR'ed with every payload byte. It only catches bit
// errors on the wire and doesn't protect against tampering.
//
// The record size is configured on both ends, never negotiated: a
// decoder only accepts frames announcing its own size and rejects
// everything else before buffering payload.
//
// The decoder never blocks. It consumes whatever the byte source has
// buffered and keeps partial progress for the next call, so bytes may
// arrive fragmented in any way.
