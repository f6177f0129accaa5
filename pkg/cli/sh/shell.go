// Package sh provides an interactive shell to encode, decode and
// exchange struct transfer records with a bridge.
package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"sync"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/rove.go/pkg/l0/device"
	"github.com/robotalks/rove.go/pkg/l0/xfer"
	"github.com/robotalks/rove.go/pkg/l1/comm/tcp"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell    *ishell.Shell
	Registry *device.Registry
	Conn     *Conn

	lock sync.Mutex
}

// Conn is a running connection to a bridge.
type Conn struct {
	Ctx    context.Context
	Cancel func()
	Addr   string
	Kind   device.Kind
	Link   *tcp.Conn
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool
	connectTo  string

	// commands
	commands = []*ishell.Cmd{
		&DevicesCmd,
		&ConnectCmd,
		&DisconnectCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.StringVar(&connectTo, "connect", connectTo, "Bridge address to connect on start.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(reg *device.Registry) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:    ishell.New(),
		Registry: reg,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Current() == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

// Print prints v in JSON if requested, otherwise with format.
func (s *Shell) Print(c *ishell.Context, v interface{}, format string, args ...interface{}) {
	if s.OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Printf(format, args...)
}

// Current returns the current connection.
func (s *Shell) Current() *Conn {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.Conn
}

// Connect dials a bridge and exchanges records of kind.
func (s *Shell) Connect(addr string, kind device.Kind) error {
	d, err := s.Registry.Lookup(kind)
	if err != nil {
		return err
	}
	link, err := tcp.Dial(addr, d.Size)
	if err != nil {
		return err
	}
	conn := &Conn{Addr: addr, Kind: kind, Link: link}
	conn.Ctx, conn.Cancel = context.WithCancel(context.Background())
	link.Handler = xfer.HandleRecordFunc(func(ctx context.Context, record []byte) {
		s.Shell.Printf("RCV %s % x\n", kind, record)
	})
	link.Notifier = xfer.FrameErrorFunc(func(ctx context.Context, err error) {
		s.Shell.Printf("ERR %s %v\n", kind, err)
	})
	s.Disconnect()
	s.lock.Lock()
	s.Conn = conn
	s.lock.Unlock()
	go func() {
		if err := link.Run(conn.Ctx); err != nil && conn.Ctx.Err() == nil {
			s.Shell.Printf("connection %s closed: %v\n", addr, err)
		}
	}()
	s.Shell.SetPrompt(fmt.Sprintf("%s/%s > ", addr, kind))
	return nil
}

// Disconnect disconnects current bridge.
func (s *Shell) Disconnect() {
	s.lock.Lock()
	conn := s.Conn
	s.Conn = nil
	s.lock.Unlock()
	if conn != nil {
		conn.Cancel()
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if connectTo != "" {
		if err := s.Connect(connectTo, device.TCPCommand); err != nil {
			log.Fatalf("connect %q failed: %v", connectTo, err)
		}
	}
	defer s.Disconnect()

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// DevicesCmd lists known devices.
	DevicesCmd = ishell.Cmd{
		Name:    "devices",
		Aliases: []string{"list", "l"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			ds := s.Registry.Descriptors()
			if s.OutputJSON {
				s.Print(c, ds, "")
				return
			}
			for _, d := range ds {
				c.Println(FormatDescriptor(d))
			}
		},
	}

	// ConnectCmd connects a bridge.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "ADDR [KIND]",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("ADDR required"))
				return
			}
			kind := device.TCPCommand
			if len(c.Args) > 1 {
				kind = device.Kind(c.Args[1])
			}
			if err := ShellFrom(c).Connect(c.Args[0], kind); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd disconnects current bridge.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}
)

// FormatDescriptor prints a descriptor for display.
func FormatDescriptor(d device.Descriptor) string {
	if len(d.IDs) == 0 {
		return fmt.Sprintf("%-16s size=%d", d.Kind, d.Size)
	}
	return fmt.Sprintf("%-16s size=%d ids=%v", d.Kind, d.Size, d.IDs)
}

// Main is a helper to provide a single call in main.
// registry is called after flags are parsed.
func Main(registry func() (*device.Registry, error)) {
	flag.Parse()
	reg, err := registry()
	if err != nil {
		log.Fatalln(err)
	}
	New(reg).Run(flag.Args()...)
}
