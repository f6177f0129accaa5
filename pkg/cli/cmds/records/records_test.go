package records

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/rove.go/pkg/l0/device"
)

func TestParseHex(t *testing.T) {
	testCases := []struct {
		args []string
		data []byte
	}{
		{[]string{"06", "85"}, []byte{0x06, 0x85}},
		{[]string{"0x0685"}, []byte{0x06, 0x85}},
		{[]string{"06:85,4"}, []byte{0x06, 0x85, 0x04}},
		{[]string{"6 85"}, []byte{0x06, 0x85}},
		{nil, []byte{}},
	}
	for _, tc := range testCases {
		data, err := ParseHex(tc.args...)
		require.NoError(t, err)
		assert.Equal(t, tc.data, data)
	}
	_, err := ParseHex("zz")
	require.Error(t, err)
}

func TestEncodeRecord(t *testing.T) {
	reg := device.DefaultRegistry()
	frame, err := EncodeRecord(reg, device.Test, []byte{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x06, 0x85, 0x04, 1, 2, 3, 4, 0x00}, frame)

	_, err = EncodeRecord(reg, device.Test, []byte{1})
	require.Error(t, err)
	_, err = EncodeRecord(reg, device.GPS, []byte{1})
	require.ErrorIs(t, err, device.ErrUnknownDevice)
}

func TestDecodeStream(t *testing.T) {
	reg := device.DefaultRegistry()
	data := []byte{
		0x00, 0x06, 0x85, 0x04, 1, 2, 3, 4, 0x00, // valid
		0x06, 0x85, 0x04, 1, 2, 3, 4, 0x05, // bad checksum
		0x06, 0x85, 0x05, // bad size
		0x06, 0x85, 0x04, 9, // partial
	}
	results, partial, err := DecodeStream(reg, device.Test, data)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "frame-ready: 01 02 03 04", results[0].String())
	assert.Equal(t, "checksum-mismatch", results[1].Status)
	assert.Equal(t, "size-mismatch", results[2].Status)
	assert.NotEmpty(t, results[2].Error)
	assert.True(t, partial)

	results, partial, err = DecodeStream(reg, device.Test, []byte{0x06, 0x85, 0x04, 1, 2, 3, 4, 0x00})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, partial)
}

func TestBaseStationCommand(t *testing.T) {
	record, err := BaseStationCommand(100, []byte{0xe8, 0x03}, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte{100, 0xe8, 0x03, 0, 0}, record)
	_, err = BaseStationCommand(100, make([]byte, 5), 5)
	require.Error(t, err)
}
