// Package msgs provides the envelope of records on the L1 message bus.
package msgs

// Records received from L0 boards are published without interpretation:
// the envelope only carries the record kind in the type URL and the raw
// record bytes, in the byte order of the producing board.
//
// Producer: motherboard bridge
// Consumer: base station, monitors
