package serial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

func TestMode(t *testing.T) {
	m := Config{Port: "/dev/null"}.Mode()
	assert.Equal(t, DefaultBaud, m.BaudRate)
	assert.Equal(t, 8, m.DataBits)
	assert.Equal(t, serial.NoParity, m.Parity)
	assert.Equal(t, serial.OneStopBit, m.StopBits)

	m = Config{Baud: 9600}.Mode()
	assert.Equal(t, 9600, m.BaudRate)
}

func TestOpenRequiresPort(t *testing.T) {
	_, err := Open(Config{})
	require.Error(t, err)
}
