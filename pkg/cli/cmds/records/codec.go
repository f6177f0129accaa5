package records

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/robotalks/rove.go/pkg/l0/device"
	"github.com/robotalks/rove.go/pkg/l0/xfer"
)

// ParseHex parses bytes from args like "06 85", "0x0685" or "06:85".
func ParseHex(args ...string) ([]byte, error) {
	var sb strings.Builder
	for _, arg := range args {
		for _, item := range strings.FieldsFunc(arg, func(r rune) bool {
			return r == ':' || r == ',' || r == ' '
		}) {
			item = strings.TrimPrefix(strings.TrimPrefix(item, "0x"), "0X")
			if len(item)%2 != 0 {
				item = "0" + item
			}
			sb.WriteString(item)
		}
	}
	data, err := hex.DecodeString(sb.String())
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return data, nil
}

// EncodeRecord frames a record of kind.
func EncodeRecord(reg *device.Registry, kind device.Kind, record []byte) ([]byte, error) {
	d, err := reg.Lookup(kind)
	if err != nil {
		return nil, err
	}
	enc, err := d.NewEncoder()
	if err != nil {
		return nil, err
	}
	return enc.Frame(record)
}

// Decoded is one decoded frame or rejection.
type Decoded struct {
	Status string `json:"status"`
	Record []byte `json:"record,omitempty"`
	Error  string `json:"error,omitempty"`
}

// String implements fmt.Stringer.
func (d Decoded) String() string {
	switch {
	case d.Error != "":
		return d.Status + ": " + d.Error
	case d.Record != nil:
		return fmt.Sprintf("%s: % x", d.Status, d.Record)
	}
	return d.Status
}

// DecodeStream decodes all frames of kind in data. partial reports
// the data ends in the middle of a frame.
func DecodeStream(reg *device.Registry, kind device.Kind, data []byte) (results []Decoded, partial bool, err error) {
	d, err := reg.Lookup(kind)
	if err != nil {
		return nil, false, err
	}
	dec, err := d.NewDecoder()
	if err != nil {
		return nil, false, err
	}
	for len(data) > 0 {
		n, r := dec.Decode(data)
		data = data[n:]
		switch r.Status {
		case xfer.NeedMoreData:
		case xfer.FrameReady:
			results = append(results, Decoded{
				Status: r.Status.String(),
				Record: append([]byte(nil), r.Record...),
			})
		default:
			results = append(results, Decoded{Status: r.Status.String(), Error: r.Err.Error()})
		}
	}
	return results, dec.State() != xfer.StateStart1, nil
}
