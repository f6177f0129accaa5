// Package records adds shell commands to encode, decode and send
// struct transfer records.
package records

import (
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/rove.go/pkg/cli/sh"
	"github.com/robotalks/rove.go/pkg/l0/device"
	"github.com/robotalks/rove.go/pkg/l0/serial"
)

var (
	// EncodeCmd frames a record.
	EncodeCmd = ishell.Cmd{
		Name:    "encode",
		Aliases: []string{"enc"},
		Help:    "KIND HEX...",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("KIND and HEX required"))
				return
			}
			record, err := ParseHex(c.Args[1:]...)
			if err != nil {
				c.Err(err)
				return
			}
			s := sh.ShellFrom(c)
			frame, err := EncodeRecord(s.Registry, device.Kind(c.Args[0]), record)
			if err != nil {
				c.Err(err)
				return
			}
			s.Print(c, frame, "% x\n", frame)
		},
	}

	// DecodeCmd decodes frames from bytes.
	DecodeCmd = ishell.Cmd{
		Name:    "decode",
		Aliases: []string{"dec"},
		Help:    "KIND HEX...",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("KIND and HEX required"))
				return
			}
			data, err := ParseHex(c.Args[1:]...)
			if err != nil {
				c.Err(err)
				return
			}
			s := sh.ShellFrom(c)
			results, partial, err := DecodeStream(s.Registry, device.Kind(c.Args[0]), data)
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				s.Print(c, results, "")
				return
			}
			for _, r := range results {
				c.Println(r.String())
			}
			if partial {
				c.Println("need-more-data")
			}
		},
	}

	// SendCmd sends a record on the current connection.
	SendCmd = ishell.Cmd{
		Name:    "send",
		Aliases: []string{"s"},
		Help:    "HEX...",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			record, err := ParseHex(c.Args...)
			if err != nil {
				c.Err(err)
				return
			}
			if err := sh.ShellFrom(c).Current().Link.Send(record); err != nil {
				c.Err(err)
			}
		}),
	}

	// CommandCmd sends a base station command [ID][VALUE], with VALUE
	// zero padded to the record size.
	CommandCmd = ishell.Cmd{
		Name:    "command",
		Aliases: []string{"cmd"},
		Help:    "ID HEX...",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("ID required"))
				return
			}
			id, err := strconv.ParseUint(c.Args[0], 0, 8)
			if err != nil {
				c.Err(fmt.Errorf("invalid ID: %v", err))
				return
			}
			value, err := ParseHex(c.Args[1:]...)
			if err != nil {
				c.Err(err)
				return
			}
			link := sh.ShellFrom(c).Current().Link
			record, err := BaseStationCommand(byte(id), value, link.Size())
			if err != nil {
				c.Err(err)
				return
			}
			if err := link.Send(record); err != nil {
				c.Err(err)
			}
		}),
	}

	// PortsCmd lists serial ports.
	PortsCmd = ishell.Cmd{
		Name: "ports",
		Help: "",
		Func: func(c *ishell.Context) {
			ports, err := serial.Ports()
			if err != nil {
				c.Err(err)
				return
			}
			s := sh.ShellFrom(c)
			if s.OutputJSON {
				if ports == nil {
					ports = []string{}
				}
				s.Print(c, ports, "")
				return
			}
			for _, port := range ports {
				c.Println(port)
			}
		},
	}
)

// BaseStationCommand builds a command record of size.
func BaseStationCommand(id byte, value []byte, size int) ([]byte, error) {
	if len(value)+1 > size {
		return nil, fmt.Errorf("value too long: %d > %d", len(value), size-1)
	}
	record := make([]byte, size)
	record[0] = id
	copy(record[1:], value)
	return record, nil
}

func init() {
	sh.AddCmds(
		&EncodeCmd,
		&DecodeCmd,
		&SendCmd,
		&CommandCmd,
		&PortsCmd,
	)
}
