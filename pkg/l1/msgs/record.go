package msgs

import (
	"errors"
	"strings"

	"github.com/golang/protobuf/proto"
	"github.com/golang/protobuf/ptypes/any"

	"github.com/robotalks/rove.go/pkg/l0/device"
)

// RecordTypeURLPrefix prefixes the type URL of wrapped records.
const RecordTypeURLPrefix = "rove.go/record/"

var (
	// ErrNotRecord indicates the envelope doesn't carry a record.
	ErrNotRecord = errors.New("not a record")
)

// RecordTypeURL returns the type URL of a record kind.
func RecordTypeURL(kind device.Kind) string {
	return RecordTypeURLPrefix + string(kind)
}

// Wrap encodes a record of kind into an envelope.
func Wrap(kind device.Kind, record []byte) ([]byte, error) {
	return proto.Marshal(&any.Any{
		TypeUrl: RecordTypeURL(kind),
		Value:   record,
	})
}

// Unwrap decodes an envelope into the record and its kind.
func Unwrap(data []byte) (device.Kind, []byte, error) {
	var env any.Any
	if err := proto.Unmarshal(data, &env); err != nil {
		return "", nil, err
	}
	if !strings.HasPrefix(env.TypeUrl, RecordTypeURLPrefix) {
		return "", nil, ErrNotRecord
	}
	kind := device.Kind(env.TypeUrl[len(RecordTypeURLPrefix):])
	if kind == "" {
		return "", nil, ErrNotRecord
	}
	return kind, env.Value, nil
}
